package ports

import (
	"context"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

// TradingNetwork es el contrato que el engine necesita de la red de transferencias.
type TradingNetwork interface {
	// Inventory devuelve hasta pageSize items del inventario en vivo.
	Inventory(ctx context.Context, pageSize int) ([]domain.InventoryItem, error)

	// SentOffers devuelve las ofertas enviadas, incluidas las no activas.
	SentOffers(ctx context.Context) ([]domain.OutgoingOffer, error)

	// CreateOffer crea una oferta SIN confirmar y devuelve su ID.
	CreateOffer(ctx context.Context, req domain.OfferRequest) (string, error)

	// ConfirmOffer realiza la confirmación móvil de una oferta creada.
	ConfirmOffer(ctx context.Context, offerID string) error
}

// SessionKeeper recupera la sesión de la red cuando expira.
type SessionKeeper interface {
	// EnsureSession valida la sesión actual y hace login si no sirve.
	EnsureSession(ctx context.Context) error
}
