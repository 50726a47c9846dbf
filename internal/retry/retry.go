// Package retry implementa el reintento con backoff fijo que usan todas las
// llamadas remotas del engine.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Policy define cuántas veces se intenta una operación y cuánto se espera entre intentos.
type Policy struct {
	Attempts int
	Delay    time.Duration
}

// Default es la política del engine: 5 intentos, 5s entre ellos.
var Default = Policy{Attempts: 5, Delay: 5 * time.Second}

// permanentError marca un error que no debe reintentarse.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent envuelve err para que Do no lo reintente (p.ej. errores de datos,
// assets faltantes, 4xx).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent indica si err fue marcado con Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do ejecuta op hasta que tenga éxito, devuelva un error permanente o se
// agoten los intentos. La espera entre intentos respeta el contexto.
// El error devuelto envuelve el último error de op.
func Do[T any](ctx context.Context, p Policy, action string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if IsPermanent(err) {
			return zero, err
		}
		slog.Warn("remote call failed",
			"action", action,
			"attempt", attempt,
			"max", attempts,
			"err", err,
		)
		if attempt == attempts {
			break
		}
		if err := Sleep(ctx, p.Delay); err != nil {
			return zero, err
		}
	}
	return zero, fmt.Errorf("%s: failed after %d attempts: %w", action, attempts, lastErr)
}

// Run es Do para operaciones sin valor de retorno.
func Run(ctx context.Context, p Policy, action string, op func(ctx context.Context) error) error {
	_, err := Do(ctx, p, action, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// Sleep espera d o hasta que el contexto se cancele.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
