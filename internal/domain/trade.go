package domain

import (
	"strings"
	"time"
)

// TradeState es el estado de un trade según el marketplace.
type TradeState string

const (
	TradeQueued    TradeState = "queued"
	TradePending   TradeState = "pending"
	TradeAccepted  TradeState = "accepted"
	TradeVerified  TradeState = "verified"
	TradeCancelled TradeState = "cancelled"
)

// ParseTradeState normaliza el estado recibido de la API.
// Estados desconocidos se tratan como pending: el engine los re-lee cada ciclo.
func ParseTradeState(s string) TradeState {
	switch TradeState(strings.ToLower(strings.TrimSpace(s))) {
	case TradeQueued:
		return TradeQueued
	case TradeAccepted:
		return TradeAccepted
	case TradeVerified:
		return TradeVerified
	case TradeCancelled, "failed":
		return TradeCancelled
	default:
		return TradePending
	}
}

// Item es el asset vendido en un trade.
type Item struct {
	AssetID uint64
	Name    string // market_hash_name: define el "tipo" de item para agrupar
}

// Trade es una venta del marketplace. Copia transitoria, válida solo durante un ciclo.
type Trade struct {
	ID                string
	SellerID          uint64
	BuyerID           uint64
	Item              Item
	TradeToken        string
	TradeURL          string
	AcceptedAt        *time.Time
	VerifiedAt        *time.Time
	WaitForCancelPing bool
	State             TradeState
}

// Actionable indica si el trade requiere acción de la cuenta vendedora.
func (t Trade) Actionable(accountID uint64) bool {
	return t.SellerID == accountID && !t.WaitForCancelPing
}

// NeedsAcceptance indica que el marketplace todavía no registró la aceptación.
func (t Trade) NeedsAcceptance() bool {
	return t.AcceptedAt == nil
}

// ReadyToTransfer indica que el trade fue aceptado pero la entrega aún no se verificó.
func (t Trade) ReadyToTransfer() bool {
	return t.AcceptedAt != nil && t.VerifiedAt == nil
}

// FilterActionable devuelve los trades de venta accionables para la cuenta.
func FilterActionable(trades []Trade, accountID uint64) []Trade {
	out := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.Actionable(accountID) {
			out = append(out, t)
		}
	}
	return out
}

// FilterNeedsAcceptance devuelve los trades sin accepted_at.
func FilterNeedsAcceptance(trades []Trade) []Trade {
	var out []Trade
	for _, t := range trades {
		if t.NeedsAcceptance() {
			out = append(out, t)
		}
	}
	return out
}

// FilterReadyToTransfer devuelve los trades aceptados y no verificados.
func FilterReadyToTransfer(trades []Trade) []Trade {
	var out []Trade
	for _, t := range trades {
		if t.ReadyToTransfer() {
			out = append(out, t)
		}
	}
	return out
}

// TradeIDs extrae los IDs en el orden recibido.
func TradeIDs(trades []Trade) []string {
	ids := make([]string, len(trades))
	for i, t := range trades {
		ids[i] = t.ID
	}
	return ids
}
