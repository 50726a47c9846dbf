package domain

import "time"

// SessionCookie es una cookie de la sesión con la red de trading, en la forma
// en que se persiste entre ejecuciones.
type SessionCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitzero"`
}
