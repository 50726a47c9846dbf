package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

// Source lee la cola de trades del marketplace con reintentos.
// Un error significa "reintentar el próximo ciclo", nunca "no hay trades".
type Source struct {
	market  ports.Marketplace
	account uint64
	policy  retry.Policy
}

// NewSource crea la fuente para la cuenta dada (0 = se resuelve con Summary).
func NewSource(market ports.Marketplace, account uint64, policy retry.Policy) *Source {
	return &Source{market: market, account: account, policy: policy}
}

// Account devuelve el SteamID64 del vendedor, 0 si aún no se conoce.
func (s *Source) Account() uint64 { return s.account }

// Summary lee los contadores de la cuenta. Si la cuenta no estaba configurada
// la toma de la respuesta.
func (s *Source) Summary(ctx context.Context) (ports.AccountSummary, error) {
	sum, err := retry.Do(ctx, s.policy, "csfloat summary", s.market.FetchSummary)
	if err != nil {
		return ports.AccountSummary{}, fmt.Errorf("reconcile.Summary: %w", err)
	}
	if s.account == 0 && sum.SteamID != 0 {
		s.account = sum.SteamID
		slog.Info("reconcile: seller account resolved", "steam_id", s.account)
	}
	return sum, nil
}

// FetchActionable devuelve los trades de venta accionables de la cuenta.
func (s *Source) FetchActionable(ctx context.Context) ([]domain.Trade, error) {
	if s.account == 0 {
		return nil, fmt.Errorf("reconcile.FetchActionable: seller account unknown")
	}
	trades, err := retry.Do(ctx, s.policy, "csfloat trades", s.market.FetchTrades)
	if err != nil {
		return nil, fmt.Errorf("reconcile.FetchActionable: %w", err)
	}
	actionable := domain.FilterActionable(trades, s.account)
	slog.Debug("reconcile: trades fetched", "total", len(trades), "actionable", len(actionable))
	return actionable, nil
}
