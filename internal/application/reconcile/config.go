// Package reconcile implementa el engine de reconciliación entre la cola de
// ventas del marketplace y las ofertas de transferencia de la red de trading.
package reconcile

import (
	"math/rand/v2"
	"time"

	"github.com/alejandrodnm/autotrade/internal/retry"
)

// AcceptMode elige cómo se aceptan los trades en el marketplace.
type AcceptMode string

const (
	AcceptBulk   AcceptMode = "bulk"
	AcceptSingle AcceptMode = "single"
)

// Config contiene los parámetros del engine. Los tiempos en cero desactivan
// las esperas (tests).
type Config struct {
	// AccountID es el SteamID64 del vendedor. Si es 0 se toma de /me.
	AccountID  uint64
	AcceptMode AcceptMode

	MaxAcceptIterations int // tope del loop de aceptación
	RefreshEvery        int // cada cuántas iteraciones se relee la cola

	JitterMin         time.Duration // espera aleatoria antes de cada aceptación
	JitterMax         time.Duration
	LoopPause         time.Duration // pausa entre iteraciones de aceptación
	SingleAcceptDelay time.Duration // entre llamadas en modo single

	InventoryPageSize int
	Retry             retry.Policy
}

// DefaultConfig devuelve los valores de producción.
func DefaultConfig() Config {
	return Config{
		AcceptMode:          AcceptBulk,
		MaxAcceptIterations: 9,
		RefreshEvery:        3,
		JitterMin:           6 * time.Second,
		JitterMax:           11 * time.Second,
		LoopPause:           time.Second,
		SingleAcceptDelay:   250 * time.Millisecond,
		InventoryPageSize:   2000,
		Retry:               retry.Default,
	}
}

// withDefaults completa los campos estructurales que no pueden ser cero.
func (c Config) withDefaults() Config {
	if c.AcceptMode == "" {
		c.AcceptMode = AcceptBulk
	}
	if c.MaxAcceptIterations <= 0 {
		c.MaxAcceptIterations = 9
	}
	if c.RefreshEvery <= 0 {
		c.RefreshEvery = 3
	}
	if c.InventoryPageSize <= 0 {
		c.InventoryPageSize = 2000
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = retry.Default.Attempts
	}
	return c
}

// jitter devuelve una duración uniforme en [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
