package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

// SessionStore persiste las cookies de la sesión con la red de trading.
type SessionStore interface {
	LoadCookies() ([]domain.SessionCookie, error)
	SaveCookies(cookies []domain.SessionCookie) error
}

// ProcessedStore persiste el set de trades manejados.
type ProcessedStore interface {
	Load() (*domain.ProcessedSet, error)
	Save(set *domain.ProcessedSet) error
}

// HistoryStorage guarda el historial de ciclos y ofertas creadas (auditoría).
type HistoryStorage interface {
	// SaveCycle persiste el resumen del ciclo y las ofertas que creó o confirmó.
	SaveCycle(ctx context.Context, result *domain.CycleResult) error

	// RecentDispatches devuelve las ofertas registradas desde la fecha dada.
	RecentDispatches(ctx context.Context, since time.Time) ([]DispatchRecord, error)

	Close() error
}

// DispatchRecord es una fila del ledger de ofertas.
type DispatchRecord struct {
	CycleID   string
	OfferID   string
	BuyerID   uint64
	ItemName  string
	TradeIDs  []string
	Assets    []uint64
	Outcome   domain.BatchOutcome
	CreatedAt time.Time
}
