package steam

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

const confTypeTrade = 2

// ErrConfirmationNotFound: la oferta no aparece en la lista de confirmaciones
// pendientes (ya confirmada, cancelada o todavía no registrada).
var ErrConfirmationNotFound = errors.New("steam: confirmation not found")

// ConfirmOffer confirma con el autenticador móvil la oferta dada.
func (c *Client) ConfirmOffer(ctx context.Context, offerID string) error {
	confs, err := c.confirmations(ctx)
	if err != nil {
		return fmt.Errorf("steam.ConfirmOffer: %w", err)
	}

	var target *confirmation
	for i := range confs {
		if confs[i].CreatorID == offerID && confs[i].Type == confTypeTrade {
			target = &confs[i]
			break
		}
	}
	if target == nil {
		return fmt.Errorf("steam.ConfirmOffer: offer %s: %w", offerID, ErrConfirmationNotFound)
	}

	q, err := c.confQuery("allow")
	if err != nil {
		return retry.Permanent(fmt.Errorf("steam.ConfirmOffer: %w", err))
	}
	q.Set("op", "allow")
	q.Set("cid", target.ID)
	q.Set("ck", target.Nonce)

	var resp confOpResponse
	if err := c.getJSON(ctx, c.community("/mobileconf/ajaxop?"+q.Encode()), &resp); err != nil {
		return fmt.Errorf("steam.ConfirmOffer: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("steam.ConfirmOffer: offer %s: rejected", offerID)
	}
	slog.Info("steam: offer confirmed", "offer_id", offerID)
	return nil
}

func (c *Client) confirmations(ctx context.Context) ([]confirmation, error) {
	q, err := c.confQuery("list")
	if err != nil {
		return nil, retry.Permanent(err)
	}
	var resp confListResponse
	if err := c.getJSON(ctx, c.community("/mobileconf/getlist?"+q.Encode()), &resp); err != nil {
		return nil, err
	}
	if resp.NeedAuth {
		return nil, retry.Permanent(domain.ErrNotLoggedIn)
	}
	if !resp.Success {
		return nil, fmt.Errorf("mobileconf list: success=false")
	}
	return resp.Conf, nil
}

// confQuery arma los parámetros firmados comunes de mobileconf.
func (c *Client) confQuery(tag string) (url.Values, error) {
	if c.creds.IdentitySecret == "" {
		return nil, fmt.Errorf("identity secret not configured")
	}
	now := c.now()
	key, err := ConfirmationKey(c.creds.IdentitySecret, now, tag)
	if err != nil {
		return nil, err
	}
	return url.Values{
		"p":   {DeviceID(c.creds.SteamID)},
		"a":   {strconv.FormatUint(c.creds.SteamID, 10)},
		"k":   {key},
		"t":   {strconv.FormatInt(now.Unix(), 10)},
		"m":   {"react"},
		"tag": {tag},
	}, nil
}
