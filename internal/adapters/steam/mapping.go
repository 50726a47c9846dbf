package steam

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/alejandrodnm/autotrade/internal/domain"
)

// Estados de ETradeOfferState que importan.
const (
	offerStateActive            = 2
	offerStateAccepted          = 3
	offerStateNeedsConfirmation = 9
)

func offerStatus(state int) domain.OfferStatus {
	switch state {
	case offerStateActive:
		return domain.OfferActive
	case offerStateAccepted:
		return domain.OfferAccepted
	case offerStateNeedsConfirmation:
		return domain.OfferNeedsConfirmation
	default:
		return domain.OfferOther
	}
}

// mapOffers convierte las ofertas enviadas. Ofertas sin id o con asset ids
// no numéricos se descartan: no pueden cubrir nada.
func mapOffers(raw []rawOffer) []domain.OutgoingOffer {
	offers := make([]domain.OutgoingOffer, 0, len(raw))
	for _, r := range raw {
		if r.ID == "" {
			continue
		}
		assets := make([]uint64, 0, len(r.ItemsToGive))
		valid := true
		for _, it := range r.ItemsToGive {
			id, err := strconv.ParseUint(it.AssetID, 10, 64)
			if err != nil {
				valid = false
				break
			}
			assets = append(assets, id)
		}
		if !valid {
			continue
		}
		offers = append(offers, domain.OutgoingOffer{
			OfferID:        r.ID,
			CounterpartyID: r.AccountIDOther,
			Status:         offerStatus(r.State),
			AssetsGiven:    assets,
			Message:        r.Message,
		})
	}
	return offers
}

// mapInventory cruza assets con descriptions por (classid, instanceid).
func mapInventory(resp inventoryResponse) []domain.InventoryItem {
	names := make(map[string]string, len(resp.Descriptions))
	for _, d := range resp.Descriptions {
		names[d.ClassID+"_"+d.InstanceID] = d.MarketHashName
	}

	items := make([]domain.InventoryItem, 0, len(resp.Assets))
	for _, a := range resp.Assets {
		assetID, err := strconv.ParseUint(a.AssetID, 10, 64)
		if err != nil {
			continue
		}
		ctxID, _ := strconv.ParseUint(a.ContextID, 10, 64)
		classID, _ := strconv.ParseUint(a.ClassID, 10, 64)
		amount, err := strconv.Atoi(a.Amount)
		if err != nil || amount == 0 {
			amount = 1
		}
		items = append(items, domain.InventoryItem{
			AppID:     a.AppID,
			ContextID: ctxID,
			AssetID:   assetID,
			ClassID:   classID,
			Amount:    amount,
			Name:      names[a.ClassID+"_"+a.InstanceID],
		})
	}
	return items
}

// resolvedTarget es el destinatario ya resuelto a SteamID64 + token.
type resolvedTarget struct {
	SteamID64 uint64
	Token     string
}

func (r resolvedTarget) accountID() uint64 {
	return domain.NormalizeAccountID(r.SteamID64)
}

// resolveTarget prioriza la trade URL (partner=<accountid>&token=<t>) sobre
// el par PartnerID/Token.
func resolveTarget(t domain.OfferTarget) (resolvedTarget, error) {
	if t.TradeURL != "" {
		u, err := url.Parse(t.TradeURL)
		if err != nil {
			return resolvedTarget{}, fmt.Errorf("%w: trade url: %v", domain.ErrNoTarget, err)
		}
		q := u.Query()
		partner, err := strconv.ParseUint(q.Get("partner"), 10, 64)
		if err != nil || partner == 0 {
			return resolvedTarget{}, fmt.Errorf("%w: trade url without partner", domain.ErrNoTarget)
		}
		return resolvedTarget{SteamID64: toSteamID64(partner), Token: q.Get("token")}, nil
	}
	if t.PartnerID == 0 {
		return resolvedTarget{}, domain.ErrNoTarget
	}
	return resolvedTarget{SteamID64: toSteamID64(t.PartnerID), Token: t.Token}, nil
}

func toSteamID64(id uint64) uint64 {
	if id > domain.SteamID64Base {
		return id
	}
	return id + domain.SteamID64Base
}
