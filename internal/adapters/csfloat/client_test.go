package csfloat_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alejandrodnm/autotrade/internal/adapters/csfloat"
	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tradesFixture = `{
	"count": 3,
	"trades": [
		{
			"id": "901",
			"seller_id": "76561198000000042",
			"buyer_id": "76561198000000005",
			"state": "pending",
			"trade_token": "tok901",
			"trade_url": "https://steamcommunity.com/tradeoffer/new/?partner=39734277&token=tok901",
			"accepted_at": "2026-03-01T10:00:00.123Z",
			"verify_sale_at": null,
			"wait_for_cancel_ping": false,
			"contract": {"id": "77", "item": {"asset_id": "1001", "market_hash_name": "AK-47 | Redline (Field-Tested)"}}
		},
		{
			"id": 902,
			"seller_id": 76561198000000042,
			"buyer_id": 76561198000000006,
			"state": "queued",
			"wait_for_cancel_ping": "true",
			"contract": {"item": {"asset_id": 1002, "market_hash_name": "Sticker"}}
		},
		{
			"id": "903",
			"seller_id": "76561198000000042",
			"buyer_id": "76561198000000005",
			"state": "verified",
			"accepted_at": "2026-03-01T10:00:00Z",
			"verify_sale_at": "2026-03-02T10:00:00Z",
			"contract": {"item": {"asset_id": "1003", "market_hash_name": "Case"}}
		}
	]
}`

func newTestClient(srv *httptest.Server) *csfloat.Client {
	return csfloat.NewClient(csfloat.Options{BaseURL: srv.URL, APIKey: "secret-key", TradesLimit: 50})
}

func TestFetchTrades_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/me/trades", r.URL.Path)
		assert.Equal(t, "queued,pending", r.URL.Query().Get("state"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "secret-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(tradesFixture))
	}))
	defer srv.Close()

	trades, err := newTestClient(srv).FetchTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 3)

	t1 := trades[0]
	assert.Equal(t, "901", t1.ID)
	assert.Equal(t, uint64(76561198000000042), t1.SellerID)
	assert.Equal(t, uint64(1001), t1.Item.AssetID)
	assert.Equal(t, "AK-47 | Redline (Field-Tested)", t1.Item.Name)
	require.NotNil(t, t1.AcceptedAt)
	assert.Nil(t, t1.VerifiedAt)
	assert.True(t, t1.ReadyToTransfer())
	assert.Equal(t, "tok901", t1.TradeToken)

	t2 := trades[1]
	assert.Equal(t, "902", t2.ID)
	assert.True(t, t2.WaitForCancelPing)
	assert.Equal(t, domain.TradeQueued, t2.State)
	assert.Nil(t, t2.AcceptedAt)

	assert.NotNil(t, trades[2].VerifiedAt)
	assert.Equal(t, domain.TradeVerified, trades[2].State)
}

func TestFetchTrades_SkipsMalformedRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"trades":[
			{"id":"1","seller_id":"5","contract":{"item":{"asset_id":"9"}}},
			{"id":"2","seller_id":"5","buyer_id":"7","contract":{"item":{"asset_id":"10","market_hash_name":"AWP | Asiimov"}}},
			{"seller_id":"5","buyer_id":"7","contract":{"item":{"asset_id":"11"}}}
		]}`))
	}))
	defer srv.Close()

	trades, err := newTestClient(srv).FetchTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "2", trades[0].ID)
	assert.Equal(t, uint64(10), trades[0].Item.AssetID)
}

func TestFetchTrades_RejectsWhenEveryRecordIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"trades":[{"id":"1","seller_id":"5","contract":{"item":{"asset_id":"9"}}}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchTrades(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadShape)
}

func TestFetchTrades_BadJSONIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchTrades(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadShape)
	assert.True(t, retry.IsPermanent(err))
}

func TestFetchTrades_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchTrades(context.Background())
	require.Error(t, err)
	assert.False(t, retry.IsPermanent(err))
}

func TestFetchTrades_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchTrades(context.Background())
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, retry.IsPermanent(err))
}

func TestFetchSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/me", r.URL.Path)
		w.Write([]byte(`{"actionable_trades": 3, "pending_offers": 1, "user": {"steam_id": "76561198000000042", "username": "seller"}}`))
	}))
	defer srv.Close()

	s, err := newTestClient(srv).FetchSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, s.ActionableTrades)
	assert.Equal(t, 1, s.PendingOffers)
	assert.Equal(t, uint64(76561198000000042), s.SteamID)
	assert.Equal(t, "seller", s.Username)
}

func TestAcceptTrade(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/trades/901/accept", r.URL.Path)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tok901", body["trade_token"])
		w.Write([]byte(`{"id":"901"}`))
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).AcceptTrade(context.Background(), "901", "tok901")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcceptTrades_Bulk(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/trades/bulk/accept", r.URL.Path)
		var body struct {
			TradeIDs []string `json:"trade_ids"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		got = body.TradeIDs
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).AcceptTrades(context.Background(), []string{"1", "2"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestAcceptTrades_RejectedIsNotError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"trade not acceptable"}`))
	}))
	defer srv.Close()

	ok, err := newTestClient(srv).AcceptTrades(context.Background(), []string{"1"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAcceptTrades_EmptyIsNoop(t *testing.T) {
	c := csfloat.NewClient(csfloat.Options{BaseURL: "http://127.0.0.1:1"})
	ok, err := c.AcceptTrades(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, ok)
}
