package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrBadShape indica una respuesta remota con forma inesperada.
	ErrBadShape = errors.New("unexpected response shape")
	// ErrMissingAssets indica que algún asset del batch no está en el inventario.
	ErrMissingAssets = errors.New("assets not found in inventory")
	// ErrNoTarget indica que un batch no tiene ni trade URL ni comprador.
	ErrNoTarget = errors.New("offer has no trade url or partner")
	// ErrEmptyInventory indica que el inventario no pudo cargarse o está vacío.
	ErrEmptyInventory = errors.New("inventory empty or unavailable")
	// ErrAcceptanceDeferred indica que la aceptación no convergió dentro del límite.
	ErrAcceptanceDeferred = errors.New("acceptance deferred to next cycle")
	// ErrNotLoggedIn indica que la sesión de la red de trading no es válida.
	ErrNotLoggedIn = errors.New("trading network session not logged in")
	// ErrUnauthorized indica credenciales rechazadas por la API.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrRateLimited indica HTTP 429.
	ErrRateLimited = errors.New("rate limited")
)

// MissingAssetsError detalla qué assets no se encontraron.
type MissingAssetsError struct {
	Missing []uint64
}

func (e *MissingAssetsError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMissingAssets, e.Missing)
}

func (e *MissingAssetsError) Unwrap() error { return ErrMissingAssets }
