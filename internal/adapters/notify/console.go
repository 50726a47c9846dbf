package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/olekukonko/tablewriter"
)

var _ ports.Notifier = (*Console)(nil)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCycle imprime el resultado del ciclo en el modo configurado.
func (c *Console) NotifyCycle(_ context.Context, r *domain.CycleResult) error {
	if r == nil {
		return nil
	}
	if r.Skipped != "" {
		fmt.Fprintf(c.out, "[%s] cycle skipped: %s\n", stamp(r), r.Skipped)
		return nil
	}

	if c.table {
		c.printFull(r)
	} else {
		c.printCompact(r)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(r *domain.CycleResult) {
	covered, confirmed, dispatched, missing, failed := countOutcomes(r.Batches)

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] trades:%d accepted:%d batches:%d → covered:%d confirmed:%d sent:%d missing:%d failed:%d",
		stamp(r), r.Actionable, r.Accepted, len(r.Batches),
		covered, confirmed, dispatched, missing, failed)
	if r.AcceptDeferred {
		sb.WriteString(" | acceptance deferred")
	}

	shown := 0
	for _, b := range r.Batches {
		if shown >= 3 {
			break
		}
		if b.Outcome != domain.OutcomeDispatched && b.Outcome != domain.OutcomeMissing {
			continue
		}
		fmt.Fprintf(&sb, " | %s %s x%d", b.Outcome, compactName(b.Batch.Key.ItemName, 25), len(b.Batch.Assets))
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime la cabecera del ciclo y la tabla de batches.
func (c *Console) printFull(r *domain.CycleResult) {
	fmt.Fprintf(c.out, "\n[%s] cycle %s — counter:%d actionable:%d accepted:%d offers:%d confirmations:%d (%s)\n",
		stamp(r), shortID(r.ID), r.ActionableCounter, r.Actionable, r.Accepted,
		r.OffersCreated, r.Confirmations, r.Duration().Truncate(time.Millisecond))
	if r.AcceptDeferred {
		fmt.Fprintln(c.out, "  ⚠ acceptance did not converge, transfers deferred to next cycle")
	}

	if len(r.Batches) == 0 {
		fmt.Fprintln(c.out, "  no accepted trades waiting for transfer")
		c.printStages(r)
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Buyer", "Item", "Trades", "Assets", "Remaining", "Outcome", "Offer")
	for i, b := range r.Batches {
		offer := b.OfferID
		if b.Outcome == domain.OutcomeMissing {
			offer = fmt.Sprintf("missing %v", b.Missing)
		} else if b.Outcome == domain.OutcomeFailed {
			offer = compactName(b.Err, 30)
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", b.Batch.BuyerID()),
			compactName(b.Batch.Key.ItemName, 35),
			fmt.Sprintf("%d", len(b.Batch.TradeIDs)),
			fmt.Sprintf("%d", len(b.Batch.Assets)),
			fmt.Sprintf("%d", len(b.Batch.Remaining)),
			string(b.Outcome),
			offer,
		)
	}
	table.Render()
	c.printStages(r)
}

// printStages imprime la distribución de trades por etapa.
func (c *Console) printStages(r *domain.CycleResult) {
	if len(r.Stages) == 0 {
		return
	}
	parts := make([]string, 0, len(r.Stages))
	for s := domain.StageQueued; s <= domain.StageCancelled; s++ {
		if n := r.Stages[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s:%d", s, n))
		}
	}
	fmt.Fprintf(c.out, "  stages: %s\n", strings.Join(parts, " "))
}

// --- helpers ---

func countOutcomes(batches []domain.BatchReport) (covered, confirmed, dispatched, missing, failed int) {
	for _, b := range batches {
		switch b.Outcome {
		case domain.OutcomeCovered:
			covered++
		case domain.OutcomeConfirmed:
			confirmed++
		case domain.OutcomeDispatched:
			dispatched++
		case domain.OutcomeMissing:
			missing++
		case domain.OutcomeFailed:
			failed++
		}
	}
	return
}

func stamp(r *domain.CycleResult) string {
	if r.StartedAt.IsZero() {
		return time.Now().Format("15:04:05")
	}
	return r.StartedAt.Local().Format("15:04:05")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// compactName trunca s a max runas añadiendo "...".
func compactName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
