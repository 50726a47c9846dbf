package csfloat

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

// mapTrades convierte los DTOs a domain.Trade. Un trade sin los campos
// requeridos se descarta con un warning; solo si no queda ninguno válido
// se rechaza la respuesta entera.
func mapTrades(raw []rawTrade) ([]domain.Trade, error) {
	trades := make([]domain.Trade, 0, len(raw))
	var firstErr error
	for i, r := range raw {
		t, err := mapTrade(r)
		if err != nil {
			slog.Warn("csfloat: skipping malformed trade", "index", i, "id", string(r.ID), "err", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("trade %d: %v", i, err)
			}
			continue
		}
		trades = append(trades, t)
	}
	if len(trades) == 0 && firstErr != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBadShape, firstErr)
	}
	return trades, nil
}

// mapTrade valida y convierte un trade.
func mapTrade(r rawTrade) (domain.Trade, error) {
	switch {
	case r.ID == "":
		return domain.Trade{}, fmt.Errorf("missing id")
	case r.SellerID == 0:
		return domain.Trade{}, fmt.Errorf("trade %s: missing seller_id", r.ID)
	case r.BuyerID == 0:
		return domain.Trade{}, fmt.Errorf("trade %s: missing buyer_id", r.ID)
	case r.Contract.Item.AssetID == 0:
		return domain.Trade{}, fmt.Errorf("trade %s: missing asset_id", r.ID)
	}

	verified := parseTime(r.VerifySaleAt)
	if verified == nil {
		verified = parseTime(r.VerifiedAt)
	}

	return domain.Trade{
		ID:       string(r.ID),
		SellerID: uint64(r.SellerID),
		BuyerID:  uint64(r.BuyerID),
		Item: domain.Item{
			AssetID: uint64(r.Contract.Item.AssetID),
			Name:    r.Contract.Item.MarketHashName,
		},
		TradeToken:        r.TradeToken,
		TradeURL:          r.TradeURL,
		AcceptedAt:        parseTime(r.AcceptedAt),
		VerifiedAt:        verified,
		WaitForCancelPing: bool(r.WaitForCancelPing),
		State:             domain.ParseTradeState(r.State),
	}, nil
}

// parseTime interpreta timestamps ISO; vacío o inválido → nil.
// Un valor presente pero no parseable cuenta como "seteado" para no
// re-aceptar trades ya aceptados.
func parseTime(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
	} {
		if t, err := time.Parse(layout, *s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	t := time.Unix(0, 0).UTC()
	return &t
}
