package ports

import (
	"context"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

// Notifier presenta el resultado de cada ciclo al usuario.
type Notifier interface {
	NotifyCycle(ctx context.Context, result *domain.CycleResult) error
}
