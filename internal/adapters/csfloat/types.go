package csfloat

import (
	"bytes"
	"strconv"
	"strings"
)

// DTOs raw de la API del marketplace. Solo se usan dentro de este paquete.
// La conversión a domain se hace en mapping.go.

// meResponse es la respuesta de GET /api/v1/me.
type meResponse struct {
	User             meUser `json:"user"`
	ActionableTrades int    `json:"actionable_trades"`
	PendingOffers    int    `json:"pending_offers"`
}

type meUser struct {
	SteamID  flexID `json:"steam_id"`
	Username string `json:"username"`
}

// tradesResponse es la respuesta de GET /api/v1/me/trades.
type tradesResponse struct {
	Trades []rawTrade `json:"trades"`
	Count  int        `json:"count"`
}

type rawTrade struct {
	ID                flexString  `json:"id"`
	SellerID          flexID      `json:"seller_id"`
	BuyerID           flexID      `json:"buyer_id"`
	Contract          rawContract `json:"contract"`
	TradeToken        string      `json:"trade_token"`
	TradeURL          string      `json:"trade_url"`
	State             string      `json:"state"`
	AcceptedAt        *string     `json:"accepted_at"`
	VerifySaleAt      *string     `json:"verify_sale_at"`
	VerifiedAt        *string     `json:"verified_at"`
	WaitForCancelPing flexBool    `json:"wait_for_cancel_ping"`
}

type rawContract struct {
	ID   flexString `json:"id"`
	Item rawItem    `json:"item"`
}

type rawItem struct {
	AssetID        flexID `json:"asset_id"`
	MarketHashName string `json:"market_hash_name"`
}

// acceptRequest es el body de POST /api/v1/trades/{id}/accept.
type acceptRequest struct {
	TradeToken string `json:"trade_token,omitempty"`
}

// bulkAcceptRequest es el body de POST /api/v1/trades/bulk/accept.
type bulkAcceptRequest struct {
	TradeIDs []string `json:"trade_ids"`
}

// flexID acepta IDs numéricos enviados como número o como string.
type flexID uint64

func (f *flexID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(v)
	return nil
}

// flexBool acepta true/"true"/"yes"/"1"/1.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.ToLower(strings.Trim(string(bytes.TrimSpace(b)), `"`))
	switch s {
	case "true", "yes", "t", "y", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// flexString acepta un ID enviado como string o como número.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "null" {
		s = ""
	}
	*f = flexString(s)
	return nil
}
