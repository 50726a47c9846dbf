package domain

import "time"

// BatchOutcome describe qué pasó con un batch en un ciclo.
type BatchOutcome string

const (
	OutcomeCovered    BatchOutcome = "covered"    // todo ya estaba en ofertas existentes
	OutcomeConfirmed  BatchOutcome = "confirmed"  // se confirmó una oferta existente
	OutcomeDispatched BatchOutcome = "dispatched" // se creó una oferta nueva
	OutcomeMissing    BatchOutcome = "missing"    // assets no encontrados en inventario
	OutcomeFailed     BatchOutcome = "failed"     // transporte agotado, se reintenta el próximo ciclo
)

// BatchReport es el resultado de un batch dentro de un ciclo.
type BatchReport struct {
	Batch     TransferBatch
	Outcome   BatchOutcome
	OfferID   string
	Confirmed bool
	Missing   []uint64
	Err       string
}

// CycleResult contiene todo lo producido por un ciclo de reconciliación.
type CycleResult struct {
	ID                string
	StartedAt         time.Time
	FinishedAt        time.Time
	ActionableCounter int
	Actionable        int
	Accepted          int
	AcceptDeferred    bool
	Batches           []BatchReport
	Confirmations     int
	OffersCreated     int
	Skipped           string // motivo si el ciclo terminó antes de tiempo
	Stages            map[TradeStage]int

	// QueueSeen indica que la cola del marketplace se leyó completa en este
	// ciclo; TradeIDs son entonces los trades accionables vivos.
	QueueSeen bool
	TradeIDs  []string

	// SessionLost: Steam rechazó la sesión en algún paso del ciclo.
	SessionLost bool
}

// Duration devuelve cuánto tardó el ciclo.
func (r *CycleResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// HandledTradeIDs devuelve los trades cuyos batches quedaron cubiertos por
// una oferta (existente, confirmada o recién creada).
func (r *CycleResult) HandledTradeIDs() []string {
	var ids []string
	for _, b := range r.Batches {
		switch b.Outcome {
		case OutcomeCovered, OutcomeConfirmed, OutcomeDispatched:
			ids = append(ids, b.Batch.TradeIDs...)
		}
	}
	return ids
}
