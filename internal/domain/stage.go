package domain

// TradeStage es la posición de un trade en la máquina de estados de entrega:
//
//	queued → accepted → transfer-dispatched → confirmation-pending → verified
//
// El engine solo empuja queued→accepted y accepted→dispatched→confirmation-pending.
// verified se observa, nunca se asigna.
type TradeStage int

const (
	StageQueued TradeStage = iota
	StageAccepted
	StageDispatched
	StageConfirmationPending
	StageVerified
	StageCancelled
)

func (s TradeStage) String() string {
	switch s {
	case StageQueued:
		return "queued"
	case StageAccepted:
		return "accepted"
	case StageDispatched:
		return "transfer-dispatched"
	case StageConfirmationPending:
		return "confirmation-pending"
	case StageVerified:
		return "verified"
	case StageCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal indica si el engine no tiene nada más que hacer con el trade.
func (s TradeStage) Terminal() bool {
	return s == StageVerified || s == StageCancelled
}

// ClassifyTrade ubica un trade en la máquina de estados a partir de su estado
// en el marketplace y de la oferta saliente que lo cubre (si existe).
func ClassifyTrade(t Trade, covering *OutgoingOffer) TradeStage {
	switch {
	case t.State == TradeCancelled:
		return StageCancelled
	case t.VerifiedAt != nil || t.State == TradeVerified:
		return StageVerified
	case t.AcceptedAt == nil:
		return StageQueued
	case covering == nil:
		return StageAccepted
	case covering.Status == OfferNeedsConfirmation:
		return StageConfirmationPending
	default:
		return StageDispatched
	}
}
