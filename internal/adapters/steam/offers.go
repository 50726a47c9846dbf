package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

// Ofertas más antiguas que esto ya no pueden cubrir ventas pendientes.
const historicalCutoff = 14 * 24 * time.Hour

var (
	_ ports.TradingNetwork = (*Client)(nil)
	_ ports.SessionKeeper  = (*Client)(nil)
)

// SentOffers lista las ofertas enviadas por la cuenta, activas e históricas
// recientes.
func (c *Client) SentOffers(ctx context.Context) ([]domain.OutgoingOffer, error) {
	q := url.Values{
		"get_sent_offers":        {"1"},
		"get_received_offers":    {"0"},
		"active_only":            {"0"},
		"historical_only":        {"0"},
		"get_descriptions":       {"0"},
		"time_historical_cutoff": {strconv.FormatInt(c.now().Add(-historicalCutoff).Unix(), 10)},
	}
	if err := c.authorizeAPI(q); err != nil {
		return nil, fmt.Errorf("steam.SentOffers: %w", err)
	}

	var resp tradeOffersResponse
	if err := c.getJSON(ctx, c.apiURL+"/IEconService/GetTradeOffers/v1/?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("steam.SentOffers: %w", err)
	}
	return mapOffers(resp.Response.Sent), nil
}

// authorizeAPI añade la web API key o, sin ella, el access token de la sesión.
func (c *Client) authorizeAPI(q url.Values) error {
	if c.creds.APIKey != "" {
		q.Set("key", c.creds.APIKey)
		return nil
	}
	tok, err := c.accessToken()
	if err != nil {
		return retry.Permanent(err)
	}
	q.Set("access_token", tok)
	return nil
}

// CreateOffer envía una oferta sin confirmar y devuelve su id.
func (c *Client) CreateOffer(ctx context.Context, req domain.OfferRequest) (string, error) {
	target, err := resolveTarget(req.Target)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("steam.CreateOffer: %w", err))
	}
	if len(req.ToGive) == 0 && len(req.ToReceive) == 0 {
		return "", retry.Permanent(fmt.Errorf("steam.CreateOffer: empty offer"))
	}

	offer := jsonTradeOffer{
		NewVersion: true,
		Version:    len(req.ToGive) + len(req.ToReceive) + 1,
		Me:         offerSide(req.ToGive),
		Them:       offerSide(req.ToReceive),
	}
	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("steam.CreateOffer: %w", err))
	}
	paramsJSON, err := json.Marshal(createParams{AccessToken: target.Token})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("steam.CreateOffer: %w", err))
	}

	referer := c.community(fmt.Sprintf("/tradeoffer/new/?partner=%d", target.accountID()))
	if target.Token != "" {
		referer += "&token=" + url.QueryEscape(target.Token)
	}

	form := url.Values{
		"sessionid":                 {c.ensureSessionID()},
		"serverid":                  {"1"},
		"partner":                   {strconv.FormatUint(target.SteamID64, 10)},
		"tradeoffermessage":         {req.Message},
		"json_tradeoffer":           {string(offerJSON)},
		"captcha":                   {""},
		"trade_offer_create_params": {string(paramsJSON)},
	}

	var resp sendOfferResponse
	if err := c.postForm(ctx, c.community("/tradeoffer/new/send"), form, referer, &resp); err != nil {
		return "", fmt.Errorf("steam.CreateOffer: %w", err)
	}
	if resp.TradeOfferID == "" {
		if resp.StrError != "" {
			return "", fmt.Errorf("steam.CreateOffer: %s", resp.StrError)
		}
		return "", fmt.Errorf("steam.CreateOffer: %w: no tradeofferid", domain.ErrBadShape)
	}

	slog.Info("steam: offer created",
		"offer_id", resp.TradeOfferID,
		"partner", target.accountID(),
		"items", len(req.ToGive),
		"needs_confirmation", resp.NeedsConfirmation,
	)
	return resp.TradeOfferID, nil
}

func offerSide(items []domain.InventoryItem) tradeOfferSide {
	side := tradeOfferSide{Assets: make([]tradeOfferAsset, 0, len(items)), Currency: []any{}}
	for _, it := range items {
		appID := it.AppID
		if appID == 0 {
			appID = AppID
		}
		ctxID := it.ContextID
		if ctxID == 0 {
			ctxID = ContextID
		}
		amount := it.Amount
		if amount == 0 {
			amount = 1
		}
		side.Assets = append(side.Assets, tradeOfferAsset{
			AppID:     appID,
			ContextID: strconv.FormatUint(ctxID, 10),
			Amount:    amount,
			AssetID:   strconv.FormatUint(it.AssetID, 10),
		})
	}
	return side
}
