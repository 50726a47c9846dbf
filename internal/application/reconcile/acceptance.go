package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

// AcceptResult resume una pasada del Acceptor.
type AcceptResult struct {
	Accepted   int  // trades confirmados como aceptados por la respuesta
	Iterations int  // iteraciones sin converger
	Calls      int  // llamadas de aceptación enviadas
	Deferred   bool // se alcanzó el tope: el ciclo debe abortar
}

// Acceptor lleva los trades pendientes a accepted_at != nil, releyendo la
// cola periódicamente porque la aceptación es eventualmente consistente.
type Acceptor struct {
	source *Source
	market ports.Marketplace
	cfg    Config
}

// NewAcceptor crea el driver de aceptación.
func NewAcceptor(source *Source, market ports.Marketplace, cfg Config) *Acceptor {
	return &Acceptor{source: source, market: market, cfg: cfg.withDefaults()}
}

// Run intenta aceptar pending. pending cuenta como la lectura de la
// iteración 0. Nunca devuelve error por no converger: marca Deferred.
// Solo falla si la relectura de la cola falla o el contexto se cancela.
func (a *Acceptor) Run(ctx context.Context, pending []domain.Trade) (AcceptResult, error) {
	var res AcceptResult
	pending = domain.FilterNeedsAcceptance(pending)

	for count := 0; ; {
		if count >= a.cfg.MaxAcceptIterations {
			slog.Warn("reconcile: acceptance did not converge, deferring",
				"iterations", count, "pending", len(pending))
			res.Deferred = true
			return res, nil
		}

		if count > 0 && count%a.cfg.RefreshEvery == 0 {
			fresh, err := a.source.FetchActionable(ctx)
			if err != nil {
				return res, fmt.Errorf("reconcile.Accept: refresh: %w", err)
			}
			pending = domain.FilterNeedsAcceptance(fresh)
			slog.Debug("reconcile: pending refreshed", "pending", len(pending))
		}
		if len(pending) == 0 {
			return res, nil
		}

		if err := retry.Sleep(ctx, jitter(a.cfg.JitterMin, a.cfg.JitterMax)); err != nil {
			return res, err
		}

		accepted, err := a.submit(ctx, pending, &res)
		if err != nil {
			return res, err
		}
		res.Accepted += len(accepted)
		pending = without(pending, accepted)
		if len(pending) == 0 {
			slog.Info("reconcile: all trades accepted", "accepted", res.Accepted)
			return res, nil
		}

		count++
		res.Iterations = count
		slog.Info("reconcile: could not accept all trades, retrying",
			"iteration", count, "pending", len(pending))

		if err := retry.Sleep(ctx, a.cfg.LoopPause); err != nil {
			return res, err
		}
	}
}

// submit envía la aceptación en el modo configurado y devuelve los IDs
// aceptados. Errores remotos cuentan como "no aceptado"; solo ctx corta.
func (a *Acceptor) submit(ctx context.Context, pending []domain.Trade, res *AcceptResult) (map[string]bool, error) {
	accepted := make(map[string]bool, len(pending))

	if a.cfg.AcceptMode == AcceptBulk {
		ids := domain.TradeIDs(pending)
		res.Calls++
		ok, err := a.market.AcceptTrades(ctx, ids)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("reconcile: bulk accept failed", "trades", len(ids), "err", err)
			return accepted, nil
		}
		if ok {
			for _, id := range ids {
				accepted[id] = true
			}
		}
		return accepted, nil
	}

	for i, t := range pending {
		if i > 0 {
			if err := retry.Sleep(ctx, a.cfg.SingleAcceptDelay); err != nil {
				return nil, err
			}
		}
		res.Calls++
		ok, err := a.market.AcceptTrade(ctx, t.ID, t.TradeToken)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("reconcile: accept failed", "trade_id", t.ID, "err", err)
			continue
		}
		if ok {
			accepted[t.ID] = true
		}
	}
	return accepted, nil
}

func without(trades []domain.Trade, ids map[string]bool) []domain.Trade {
	out := make([]domain.Trade, 0, len(trades))
	for _, t := range trades {
		if !ids[t.ID] {
			out = append(out, t)
		}
	}
	return out
}
