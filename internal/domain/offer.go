package domain

// SteamID64Base es el offset entre un account ID (32 bits) y su forma
// "community" SteamID64.
const SteamID64Base uint64 = 76561197960265728

// NormalizeAccountID reduce un SteamID64 a su account ID. Valores que ya son
// account IDs se devuelven intactos.
func NormalizeAccountID(id uint64) uint64 {
	if id > SteamID64Base {
		return id - SteamID64Base
	}
	return id
}

// SameAccount compara dos identificadores de cuenta en cualquiera de sus formas.
func SameAccount(a, b uint64) bool {
	return NormalizeAccountID(a) == NormalizeAccountID(b)
}

// OfferStatus es el estado de una oferta de transferencia en la red.
type OfferStatus string

const (
	OfferActive            OfferStatus = "active"
	OfferAccepted          OfferStatus = "accepted"
	OfferNeedsConfirmation OfferStatus = "needs-confirmation"
	OfferOther             OfferStatus = "other"
)

// Covers indica si una oferta en este estado ya representa assets enviados.
func (s OfferStatus) Covers() bool {
	return s == OfferActive || s == OfferAccepted || s == OfferNeedsConfirmation
}

// OutgoingOffer es una oferta enviada por la cuenta. Solo lectura para el engine.
type OutgoingOffer struct {
	OfferID        string
	CounterpartyID uint64
	Status         OfferStatus
	AssetsGiven    []uint64
	Message        string
}

// InventoryItem es un item del inventario en vivo de la cuenta.
type InventoryItem struct {
	AppID     uint32
	ContextID uint64
	AssetID   uint64
	ClassID   uint64
	Amount    int
	Name      string
}

// OfferTarget identifica al destinatario de una oferta nueva.
// Si TradeURL está presente tiene prioridad sobre PartnerID/Token.
type OfferTarget struct {
	TradeURL  string
	PartnerID uint64
	Token     string
}

// OfferRequest son los datos para crear una oferta de transferencia.
type OfferRequest struct {
	Target    OfferTarget
	ToGive    []InventoryItem
	ToReceive []InventoryItem
	Message   string
}
