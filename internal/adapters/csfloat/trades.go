package csfloat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

// FetchTrades devuelve los trades queued/pending de la cuenta.
func (c *Client) FetchTrades(ctx context.Context) ([]domain.Trade, error) {
	q := url.Values{}
	q.Set("state", "queued,pending")
	q.Set("limit", fmt.Sprint(c.tradesLimit))

	var resp tradesResponse
	if err := c.get(ctx, "/api/v1/me/trades?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("csfloat.FetchTrades: %w", err)
	}
	trades, err := mapTrades(resp.Trades)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("csfloat.FetchTrades: %w", err))
	}
	slog.Debug("fetched marketplace trades", "count", len(trades))
	return trades, nil
}

// FetchSummary devuelve los contadores de la cuenta.
func (c *Client) FetchSummary(ctx context.Context) (ports.AccountSummary, error) {
	var resp meResponse
	if err := c.get(ctx, "/api/v1/me", &resp); err != nil {
		return ports.AccountSummary{}, fmt.Errorf("csfloat.FetchSummary: %w", err)
	}
	return ports.AccountSummary{
		SteamID:          uint64(resp.User.SteamID),
		ActionableTrades: resp.ActionableTrades,
		PendingOffers:    resp.PendingOffers,
		Username:         resp.User.Username,
	}, nil
}

// AcceptTrade acepta un trade. Una respuesta no-2xx devuelve (false, nil):
// el trade queda pendiente y el driver de aceptación lo vuelve a intentar.
func (c *Client) AcceptTrade(ctx context.Context, tradeID, tradeToken string) (bool, error) {
	path := "/api/v1/trades/" + url.PathEscape(tradeID) + "/accept"
	err := c.post(ctx, c.acceptLimiter, path, acceptRequest{TradeToken: tradeToken}, nil)
	return acceptResult("csfloat.AcceptTrade", tradeID, err)
}

// AcceptTrades acepta varios trades con una única llamada.
func (c *Client) AcceptTrades(ctx context.Context, tradeIDs []string) (bool, error) {
	if len(tradeIDs) == 0 {
		return true, nil
	}
	err := c.post(ctx, c.limiter, "/api/v1/trades/bulk/accept", bulkAcceptRequest{TradeIDs: tradeIDs}, nil)
	return acceptResult("csfloat.AcceptTrades", fmt.Sprint(tradeIDs), err)
}

func acceptResult(op, ids string, err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var se *StatusError
	if errors.As(err, &se) {
		slog.Warn("marketplace rejected accept", "trades", ids, "status", se.Code, "detail", se.Body)
		return false, nil
	}
	return false, fmt.Errorf("%s: %w", op, err)
}

var _ ports.Marketplace = (*Client)(nil)
