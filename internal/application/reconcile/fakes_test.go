package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alejandrodnm/autotrade/internal/application/reconcile"
	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

const seller uint64 = 76561198000000042

var errTransport = errors.New("connection reset by peer")

func testConfig() reconcile.Config {
	return reconcile.Config{
		AccountID:  seller,
		AcceptMode: reconcile.AcceptBulk,
		Retry:      retry.Policy{Attempts: 3},
	}
}

func ts() *time.Time {
	t := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &t
}

func sale(id string, buyer, asset uint64, name string) domain.Trade {
	return domain.Trade{
		ID:         id,
		SellerID:   seller,
		BuyerID:    buyer,
		Item:       domain.Item{AssetID: asset, Name: name},
		TradeToken: "tok" + id,
		State:      domain.TradePending,
		AcceptedAt: ts(),
	}
}

func queued(id string, buyer, asset uint64, name string) domain.Trade {
	t := sale(id, buyer, asset, name)
	t.AcceptedAt = nil
	t.State = domain.TradeQueued
	return t
}

func inventory(assets ...uint64) []domain.InventoryItem {
	items := make([]domain.InventoryItem, 0, len(assets))
	for _, a := range assets {
		items = append(items, domain.InventoryItem{AppID: 730, ContextID: 2, AssetID: a, Amount: 1})
	}
	return items
}

// --- fakeMarket ---

type fakeMarket struct {
	mu sync.Mutex

	trades      []domain.Trade
	counter     int // -1 = len(actionable)
	summaryErr  error
	fetchErr    error
	neverAccept bool

	summaryCalls int
	fetchCalls   int
	bulkCalls    int
	singleCalls  int
	acceptedIDs  []string
}

var _ ports.Marketplace = (*fakeMarket)(nil)

func newFakeMarket(trades ...domain.Trade) *fakeMarket {
	return &fakeMarket{trades: trades, counter: -1}
}

func (m *fakeMarket) FetchSummary(context.Context) (ports.AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaryCalls++
	if m.summaryErr != nil {
		return ports.AccountSummary{}, m.summaryErr
	}
	n := m.counter
	if n < 0 {
		n = len(m.trades)
	}
	return ports.AccountSummary{SteamID: seller, ActionableTrades: n}, nil
}

func (m *fakeMarket) FetchTrades(context.Context) ([]domain.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchCalls++
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return slices.Clone(m.trades), nil
}

func (m *fakeMarket) AcceptTrades(_ context.Context, ids []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bulkCalls++
	if m.neverAccept {
		return false, nil
	}
	for _, id := range ids {
		m.accept(id)
	}
	return true, nil
}

func (m *fakeMarket) AcceptTrade(_ context.Context, id, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleCalls++
	if m.neverAccept {
		return false, nil
	}
	m.accept(id)
	return true, nil
}

func (m *fakeMarket) accept(id string) {
	m.acceptedIDs = append(m.acceptedIDs, id)
	for i := range m.trades {
		if m.trades[i].ID == id {
			m.trades[i].AcceptedAt = ts()
			m.trades[i].State = domain.TradePending
		}
	}
}

// --- fakeNetwork ---

type fakeNetwork struct {
	mu sync.Mutex

	inventory []domain.InventoryItem
	offers    []domain.OutgoingOffer

	invErr     error
	offersErr  error
	createErrs []error // se consumen en orden, nil = éxito
	lostCreate bool    // el primer error de create llega después de crear la oferta
	confirmErr error
	expired    bool // sesión caída hasta EnsureSession

	offersCalls  int
	sessionCalls int
	created     []domain.OfferRequest
	confirmed   []string
	nextID      int
}

var (
	_ ports.TradingNetwork = (*fakeNetwork)(nil)
	_ ports.SessionKeeper  = (*fakeNetwork)(nil)
)

func (n *fakeNetwork) EnsureSession(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sessionCalls++
	n.expired = false
	return nil
}

func (n *fakeNetwork) Inventory(context.Context, int) ([]domain.InventoryItem, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.invErr != nil {
		return nil, n.invErr
	}
	return slices.Clone(n.inventory), nil
}

func (n *fakeNetwork) SentOffers(context.Context) ([]domain.OutgoingOffer, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.offersCalls++
	if n.expired {
		return nil, retry.Permanent(domain.ErrNotLoggedIn)
	}
	if n.offersErr != nil {
		return nil, n.offersErr
	}
	return slices.Clone(n.offers), nil
}

func (n *fakeNetwork) CreateOffer(_ context.Context, req domain.OfferRequest) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var err error
	if len(n.createErrs) > 0 {
		err, n.createErrs = n.createErrs[0], n.createErrs[1:]
	}
	if err != nil && !n.lostCreate {
		return "", err
	}

	n.nextID++
	id := fmt.Sprintf("offer-%d", n.nextID)
	assets := make([]uint64, 0, len(req.ToGive))
	for _, it := range req.ToGive {
		assets = append(assets, it.AssetID)
	}
	n.created = append(n.created, req)
	n.offers = append(n.offers, domain.OutgoingOffer{
		OfferID:        id,
		CounterpartyID: req.Target.PartnerID,
		Status:         domain.OfferNeedsConfirmation,
		AssetsGiven:    assets,
		Message:        req.Message,
	})
	if err != nil {
		n.lostCreate = false
		return "", err
	}
	return id, nil
}

func (n *fakeNetwork) ConfirmOffer(_ context.Context, offerID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.confirmErr != nil {
		return n.confirmErr
	}
	n.confirmed = append(n.confirmed, offerID)
	for i := range n.offers {
		if n.offers[i].OfferID == offerID {
			n.offers[i].Status = domain.OfferActive
		}
	}
	return nil
}

func createdAssets(req domain.OfferRequest) []uint64 {
	out := make([]uint64, 0, len(req.ToGive))
	for _, it := range req.ToGive {
		out = append(out, it.AssetID)
	}
	return out
}

// --- persistence fakes ---

type fakeProcessedStore struct {
	saves int
	last  []string
	err   error
}

func (s *fakeProcessedStore) Load() (*domain.ProcessedSet, error) { return domain.NewProcessedSet(s.last), nil }

func (s *fakeProcessedStore) Save(set *domain.ProcessedSet) error {
	s.saves++
	if s.err != nil {
		return s.err
	}
	s.last = set.IDs()
	set.MarkClean()
	return nil
}

type fakeHistory struct {
	cycles []*domain.CycleResult
}

func (h *fakeHistory) SaveCycle(_ context.Context, r *domain.CycleResult) error {
	h.cycles = append(h.cycles, r)
	return nil
}

func (h *fakeHistory) RecentDispatches(context.Context, time.Time) ([]ports.DispatchRecord, error) {
	return nil, nil
}

func (h *fakeHistory) Close() error { return nil }

type fakeNotifier struct {
	results []*domain.CycleResult
}

func (n *fakeNotifier) NotifyCycle(_ context.Context, r *domain.CycleResult) error {
	n.results = append(n.results, r)
	return nil
}
