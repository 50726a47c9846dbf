package ports

import (
	"context"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

// AccountSummary son los contadores por cuenta que expone el marketplace.
type AccountSummary struct {
	SteamID          uint64
	ActionableTrades int
	PendingOffers    int
	Username         string
}

// Marketplace es el lado de ventas: cola de trades y aceptación.
// Cada método hace un único intento; los reintentos los decide el engine.
type Marketplace interface {
	// FetchTrades devuelve los trades en estado queued/pending de la cuenta (comprador o vendedor).
	FetchTrades(ctx context.Context) ([]domain.Trade, error)

	// FetchSummary devuelve los contadores de la cuenta (actionable_trades).
	FetchSummary(ctx context.Context) (AccountSummary, error)

	// AcceptTrade acepta un único trade. false sin error = rechazado por la API.
	AcceptTrade(ctx context.Context, tradeID, tradeToken string) (bool, error)

	// AcceptTrades acepta varios trades en una sola llamada.
	AcceptTrades(ctx context.Context, tradeIDs []string) (bool, error)
}
