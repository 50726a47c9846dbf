package steam

import (
	"strconv"
	"strings"
)

// --- IAuthenticationService ---

type rsaKeyResponse struct {
	Response rsaKeyResponseBody `json:"response"`
}

type rsaKeyResponseBody struct {
	Mod       string `json:"publickey_mod"`
	Exp       string `json:"publickey_exp"`
	Timestamp string `json:"timestamp"`
}

type beginAuthResponse struct {
	Response struct {
		ClientID             string  `json:"client_id"`
		RequestID            string  `json:"request_id"`
		SteamID              string  `json:"steamid"`
		Interval             float64 `json:"interval"`
		AllowedConfirmations []struct {
			Type int `json:"confirmation_type"`
		} `json:"allowed_confirmations"`
	} `json:"response"`
}

func (b beginAuthResponse) needsDeviceCode() bool {
	for _, ac := range b.Response.AllowedConfirmations {
		if ac.Type == guardTypeDeviceCode {
			return true
		}
	}
	return false
}

type pollResponse struct {
	Response pollBody `json:"response"`
}

type pollBody struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"access_token"`
	AccountName  string `json:"account_name"`
}

// --- inventory ---

type inventoryResponse struct {
	Success      int                 `json:"success"`
	Assets       []inventoryAsset    `json:"assets"`
	Descriptions []inventoryDescript `json:"descriptions"`
	TotalCount   int                 `json:"total_inventory_count"`
}

type inventoryAsset struct {
	AppID      uint32 `json:"appid"`
	ContextID  string `json:"contextid"`
	AssetID    string `json:"assetid"`
	ClassID    string `json:"classid"`
	InstanceID string `json:"instanceid"`
	Amount     string `json:"amount"`
}

type inventoryDescript struct {
	ClassID        string `json:"classid"`
	InstanceID     string `json:"instanceid"`
	MarketHashName string `json:"market_hash_name"`
	Tradable       int    `json:"tradable"`
}

// --- IEconService/GetTradeOffers ---

type tradeOffersResponse struct {
	Response struct {
		Sent []rawOffer `json:"trade_offers_sent"`
	} `json:"response"`
}

type rawOffer struct {
	ID             string      `json:"tradeofferid"`
	AccountIDOther uint64      `json:"accountid_other"`
	Message        string      `json:"message"`
	State          int         `json:"trade_offer_state"`
	ItemsToGive    []offerItem `json:"items_to_give"`
}

type offerItem struct {
	AppID     flexUint `json:"appid"`
	ContextID string   `json:"contextid"`
	AssetID   string   `json:"assetid"`
	Amount    string   `json:"amount"`
}

// --- tradeoffer/new/send ---

type jsonTradeOffer struct {
	NewVersion bool           `json:"newversion"`
	Version    int            `json:"version"`
	Me         tradeOfferSide `json:"me"`
	Them       tradeOfferSide `json:"them"`
}

type tradeOfferSide struct {
	Assets   []tradeOfferAsset `json:"assets"`
	Currency []any             `json:"currency"`
	Ready    bool              `json:"ready"`
}

type tradeOfferAsset struct {
	AppID     uint32 `json:"appid"`
	ContextID string `json:"contextid"`
	Amount    int    `json:"amount"`
	AssetID   string `json:"assetid"`
}

type createParams struct {
	AccessToken string `json:"trade_offer_access_token,omitempty"`
}

type sendOfferResponse struct {
	TradeOfferID      string `json:"tradeofferid"`
	NeedsConfirmation bool   `json:"needs_mobile_confirmation"`
	NeedsEmailConfirm bool   `json:"needs_email_confirmation"`
	StrError          string `json:"strError"`
}

// --- mobileconf ---

type confListResponse struct {
	Success  bool           `json:"success"`
	NeedAuth bool           `json:"needauth"`
	Conf     []confirmation `json:"conf"`
}

type confirmation struct {
	ID        string `json:"id"`
	Nonce     string `json:"nonce"`
	CreatorID string `json:"creator_id"`
	Type      int    `json:"type"`
}

type confOpResponse struct {
	Success bool `json:"success"`
}

// flexUint acepta números o strings numéricos.
type flexUint uint64

func (f *flexUint) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = flexUint(v)
	return nil
}
