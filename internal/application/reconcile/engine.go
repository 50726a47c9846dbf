package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
	"github.com/google/uuid"
)

// Motivos por los que un ciclo termina antes de despachar.
const (
	SkipNoActionable   = "no actionable trades"
	SkipFetchFailed    = "trade queue unavailable"
	SkipAcceptDeferred = "acceptance deferred"
	SkipOffersFailed   = "sent offers unavailable"
)

// Engine ejecuta una pasada de reconciliación en orden fijo:
// summary → trades → aceptación → batches → ofertas enviadas → reconciliar → despachar.
type Engine struct {
	cfg        Config
	source     *Source
	acceptor   *Acceptor
	reconciler *Reconciler
	dispatcher *Dispatcher
	processed  *domain.ProcessedSet
	now        func() time.Time
}

// NewEngine crea el engine con todas las dependencias inyectadas.
// processed puede ser nil.
func NewEngine(cfg Config, market ports.Marketplace, network ports.TradingNetwork, processed *domain.ProcessedSet) *Engine {
	cfg = cfg.withDefaults()
	source := NewSource(market, cfg.AccountID, cfg.Retry)
	if processed == nil {
		processed = domain.NewProcessedSet(nil)
	}
	return &Engine{
		cfg:        cfg,
		source:     source,
		acceptor:   NewAcceptor(source, market, cfg),
		reconciler: NewReconciler(network, cfg.Retry),
		dispatcher: NewDispatcher(network, cfg.Retry, cfg.InventoryPageSize),
		processed:  processed,
		now:        time.Now,
	}
}

// Processed devuelve el set de trades manejados que el engine actualiza.
func (e *Engine) Processed() *domain.ProcessedSet { return e.processed }

// RunOnce ejecuta un ciclo completo. El error indica que una lectura remota
// necesaria falló: el ciclo se abandona y el siguiente reintenta desde cero.
// El resultado nunca es nil.
func (e *Engine) RunOnce(ctx context.Context) (*domain.CycleResult, error) {
	res := &domain.CycleResult{
		ID:        uuid.NewString(),
		StartedAt: e.now(),
		Stages:    make(map[domain.TradeStage]int),
	}
	defer func() { res.FinishedAt = e.now() }()

	// 1. Contador de trades accionables: en 0 no hay nada que hacer
	sum, err := e.source.Summary(ctx)
	if err != nil {
		res.Skipped = SkipFetchFailed
		return res, fmt.Errorf("reconcile.RunOnce: %w", err)
	}
	res.ActionableCounter = sum.ActionableTrades
	if sum.ActionableTrades <= 0 {
		// Sin leer la cola no se sabe qué sigue vivo: no se poda nada.
		res.Skipped = SkipNoActionable
		slog.Info("reconcile: no actionable trades")
		return res, nil
	}

	// 2. Cola de ventas accionables
	trades, err := e.source.FetchActionable(ctx)
	if err != nil {
		res.Skipped = SkipFetchFailed
		return res, fmt.Errorf("reconcile.RunOnce: %w", err)
	}

	// 3. Aceptación hasta converger (o diferir)
	if pending := domain.FilterNeedsAcceptance(trades); len(pending) > 0 {
		slog.Info("reconcile: accepting trades", "pending", len(pending), "mode", e.cfg.AcceptMode)
		acc, err := e.acceptor.Run(ctx, pending)
		res.Accepted = acc.Accepted
		if err != nil {
			res.Skipped = SkipFetchFailed
			e.observe(res, trades, nil)
			return res, fmt.Errorf("reconcile.RunOnce: %w", err)
		}
		if acc.Deferred {
			res.AcceptDeferred = true
			res.Skipped = SkipAcceptDeferred
			e.observe(res, trades, nil)
			return res, nil
		}

		// Relectura: accepted_at solo es fiable en una lectura posterior
		if err := retry.Sleep(ctx, jitter(e.cfg.JitterMin, e.cfg.JitterMax)); err != nil {
			return res, err
		}
		trades, err = e.source.FetchActionable(ctx)
		if err != nil {
			res.Skipped = SkipFetchFailed
			return res, fmt.Errorf("reconcile.RunOnce: %w", err)
		}
	}
	res.Actionable = len(trades)

	// 4. Batches de trades aceptados sin verificar
	ready := domain.FilterReadyToTransfer(trades)
	if len(ready) == 0 {
		slog.Info("reconcile: no accepted trades waiting for transfer", "actionable", len(trades))
		e.observe(res, trades, nil)
		return res, nil
	}
	batches := domain.BuildBatches(ready)

	// 5. Ofertas ya enviadas (una lectura por ciclo)
	offers, err := e.reconciler.SentOffers(ctx)
	if err != nil {
		res.Skipped = SkipOffersFailed
		res.SessionLost = errors.Is(err, domain.ErrNotLoggedIn)
		e.observe(res, trades, nil)
		return res, fmt.Errorf("reconcile.RunOnce: %w", err)
	}

	// 6. Reconciliar y despachar cada batch
	for i := range batches {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Batches = append(res.Batches, e.handleBatch(ctx, &batches[i], offers, res))
	}

	e.observe(res, trades, offers)
	e.processed.Add(res.HandledTradeIDs()...)

	slog.Info("reconcile: cycle complete",
		"actionable", res.Actionable,
		"batches", len(res.Batches),
		"offers_created", res.OffersCreated,
		"confirmations", res.Confirmations,
	)
	return res, nil
}

// handleBatch aplica el reconciliador y, si quedan assets, el dispatcher.
func (e *Engine) handleBatch(ctx context.Context, b *domain.TransferBatch, offers []domain.OutgoingOffer, res *domain.CycleResult) domain.BatchReport {
	cov := e.reconciler.Reconcile(ctx, b, offers)
	res.Confirmations += len(cov.Confirmed)
	if cov.SessionLost {
		res.SessionLost = true
	}

	log := slog.With("buyer", b.BuyerID(), "item", b.Key.ItemName, "trade_id", b.PrimaryTradeID)

	if b.Done() {
		rep := domain.BatchReport{Batch: *b, Outcome: domain.OutcomeCovered}
		if len(cov.Confirmed) > 0 {
			rep.Outcome = domain.OutcomeConfirmed
			rep.OfferID = cov.Confirmed[0]
			rep.Confirmed = true
		} else if len(cov.Covering) > 0 {
			rep.OfferID = cov.Covering[0]
		}
		log.Debug("reconcile: batch already covered", "offers", cov.Covering)
		return rep
	}

	if e.processed.Has(b.PrimaryTradeID) {
		log.Warn("reconcile: handled trade needs a new offer, previous one is gone",
			"remaining", domain.SortedAssets(b.Remaining))
	}

	offerID, err := e.dispatcher.Dispatch(ctx, *b)
	if err != nil {
		rep := domain.BatchReport{Batch: *b, Outcome: domain.OutcomeFailed, Err: err.Error()}
		if errors.Is(err, domain.ErrNotLoggedIn) {
			res.SessionLost = true
		}
		if missing, ok := missingAssets(err); ok {
			rep.Outcome = domain.OutcomeMissing
			rep.Missing = missing
			log.Warn("reconcile: assets not in inventory, batch skipped", "missing", missing)
		} else if errors.Is(err, domain.ErrNoTarget) {
			log.Warn("reconcile: batch has no offer target", "err", err)
		} else {
			log.Error("reconcile: dispatch failed", "err", err)
		}
		return rep
	}

	res.OffersCreated++
	log.Info("reconcile: offer created", "offer_id", offerID, "assets", len(b.Remaining))

	rep := domain.BatchReport{Batch: *b, Outcome: domain.OutcomeDispatched, OfferID: offerID}
	switch err := e.reconciler.Confirm(ctx, offerID); {
	case err == nil:
		rep.Confirmed = true
		res.Confirmations++
	case errors.Is(err, domain.ErrNotLoggedIn):
		res.SessionLost = true
	}
	return rep
}

// observe completa IDs vivos y la distribución por etapa para el reporte.
func (e *Engine) observe(res *domain.CycleResult, trades []domain.Trade, offers []domain.OutgoingOffer) {
	res.QueueSeen = true
	res.TradeIDs = domain.TradeIDs(trades)
	if res.Actionable == 0 {
		res.Actionable = len(trades)
	}

	covering := coveringOffers(offers)
	confirmed := make(map[string]bool)
	created := make(map[uint64]domain.OutgoingOffer)
	for _, b := range res.Batches {
		if b.Confirmed {
			confirmed[b.OfferID] = true
		}
		if b.Outcome != domain.OutcomeDispatched {
			continue
		}
		status := domain.OfferNeedsConfirmation
		if b.Confirmed {
			status = domain.OfferActive
		}
		for _, id := range b.Batch.Remaining {
			created[id] = domain.OutgoingOffer{OfferID: b.OfferID, Status: status}
		}
	}

	for _, t := range trades {
		var o *domain.OutgoingOffer
		key := assetKey{buyer: domain.NormalizeAccountID(t.BuyerID), asset: t.Item.AssetID}
		if off, ok := covering[key]; ok {
			if confirmed[off.OfferID] {
				off.Status = domain.OfferActive
			}
			o = &off
		} else if off, ok := created[t.Item.AssetID]; ok {
			o = &off
		}
		res.Stages[domain.ClassifyTrade(t, o)]++
	}
}

type assetKey struct {
	buyer uint64
	asset uint64
}

func coveringOffers(offers []domain.OutgoingOffer) map[assetKey]domain.OutgoingOffer {
	out := make(map[assetKey]domain.OutgoingOffer)
	for _, o := range offers {
		if !o.Status.Covers() {
			continue
		}
		for _, id := range o.AssetsGiven {
			out[assetKey{buyer: domain.NormalizeAccountID(o.CounterpartyID), asset: id}] = o
		}
	}
	return out
}
