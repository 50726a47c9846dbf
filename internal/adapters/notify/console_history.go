package notify

import (
	"fmt"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/olekukonko/tablewriter"
)

// PrintHistoryReport imprime el ledger de ofertas recientes.
func (c *Console) PrintHistoryReport(since time.Time, records []ports.DispatchRecord) {
	fmt.Fprintf(c.out, "\n── DISPATCH LEDGER since %s (%d) ──\n", since.Local().Format("2006-01-02 15:04"), len(records))
	if len(records) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}

	counts := make(map[domain.BatchOutcome]int)
	table := tablewriter.NewWriter(c.out)
	table.Header("When", "Buyer", "Item", "Trades", "Assets", "Outcome", "Offer")
	for _, rec := range records {
		counts[rec.Outcome]++
		table.Append(
			rec.CreatedAt.Local().Format("01-02 15:04"),
			fmt.Sprintf("%d", rec.BuyerID),
			compactName(rec.ItemName, 35),
			fmt.Sprintf("%d", len(rec.TradeIDs)),
			fmt.Sprintf("%d", len(rec.Assets)),
			string(rec.Outcome),
			rec.OfferID,
		)
	}
	table.Render()

	fmt.Fprintf(c.out, "\n── SUMMARY ──\n")
	fmt.Fprintf(c.out, "  Offers sent:      %d\n", counts[domain.OutcomeDispatched])
	fmt.Fprintf(c.out, "  Confirmed later:  %d\n", counts[domain.OutcomeConfirmed])
	fmt.Fprintf(c.out, "  Missing assets:   %d\n", counts[domain.OutcomeMissing])
	fmt.Fprintf(c.out, "  Failed:           %d\n", counts[domain.OutcomeFailed])
	fmt.Fprintln(c.out)
}
