package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
)

// CycleRunner es lo que el Loop necesita del Engine.
type CycleRunner interface {
	RunOnce(ctx context.Context) (*domain.CycleResult, error)
}

// LoopConfig configura el loop externo.
type LoopConfig struct {
	// Interval devuelve la espera hasta el próximo ciclo (fija o aleatoria).
	Interval func() time.Duration
	// Once ejecuta un solo ciclo y sale.
	Once bool
}

// Loop repite ciclos de reconciliación uno a uno: nunca se solapan y el
// estado se persiste antes de dormir.
type Loop struct {
	cfg       LoopConfig
	engine    CycleRunner
	processed *domain.ProcessedSet
	store     ports.ProcessedStore
	history   ports.HistoryStorage
	notifier  ports.Notifier
	session   ports.SessionKeeper
}

// NewLoop crea el loop. store, history y notifier pueden ser nil.
func NewLoop(
	cfg LoopConfig,
	engine CycleRunner,
	processed *domain.ProcessedSet,
	store ports.ProcessedStore,
	history ports.HistoryStorage,
	notifier ports.Notifier,
) *Loop {
	if cfg.Interval == nil {
		cfg.Interval = func() time.Duration { return 600 * time.Second }
	}
	if processed == nil {
		processed = domain.NewProcessedSet(nil)
	}
	return &Loop{
		cfg:       cfg,
		engine:    engine,
		processed: processed,
		store:     store,
		history:   history,
		notifier:  notifier,
	}
}

// SetSession activa la recuperación de sesión: si un ciclo pierde la sesión
// de Steam, se hace login de nuevo y el ciclo se repite una vez.
func (l *Loop) SetSession(s ports.SessionKeeper) {
	l.session = s
}

// Run ejecuta ciclos hasta que el contexto se cancele. Los errores de un
// ciclo se loguean y el loop sigue.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("reconcile loop starting", "once", l.cfg.Once)

	for {
		wait := l.cfg.Interval()

		if l.runCycle(ctx) && ctx.Err() == nil {
			slog.Info("steam session restored, repeating cycle")
			l.runCycle(ctx)
		}

		if l.cfg.Once {
			return nil
		}
		if ctx.Err() != nil {
			slog.Info("reconcile loop stopped")
			return nil
		}

		slog.Info("waiting for next check", "interval", wait.Round(time.Second))
		if err := retry.Sleep(ctx, wait); err != nil {
			slog.Info("reconcile loop stopped")
			return nil
		}
	}
}

// runCycle ejecuta un ciclo y lo reporta. Devuelve true si el ciclo perdió
// la sesión y se pudo recuperar.
func (l *Loop) runCycle(ctx context.Context) bool {
	res, err := l.engine.RunOnce(ctx)
	if err != nil {
		slog.Error("reconcile cycle failed", "err", err)
	}
	lost := errors.Is(err, domain.ErrNotLoggedIn) || (res != nil && res.SessionLost)
	if res != nil {
		l.report(ctx, res)
	}
	if !lost {
		return false
	}
	return l.recoverSession(ctx)
}

// recoverSession hace login de nuevo; un fallo se reintenta en el próximo ciclo.
func (l *Loop) recoverSession(ctx context.Context) bool {
	if l.session == nil {
		slog.Warn("steam session lost, no session keeper configured")
		return false
	}
	slog.Warn("steam session lost, logging in again")
	if err := l.session.EnsureSession(ctx); err != nil {
		slog.Error("steam session recovery failed", "err", err)
		return false
	}
	return true
}

// report persiste el set de procesados, guarda el ciclo y lo notifica.
func (l *Loop) report(ctx context.Context, res *domain.CycleResult) {
	l.persistProcessed(res)

	// La persistencia y el reporte usan un contexto propio: un shutdown a
	// mitad de ciclo no debe perder el registro de lo ya hecho.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if l.history != nil {
		if err := l.history.SaveCycle(saveCtx, res); err != nil {
			slog.Warn("history storage error", "err", err)
		}
	}
	if l.notifier != nil {
		if err := l.notifier.NotifyCycle(saveCtx, res); err != nil {
			slog.Warn("notifier error", "err", err)
		}
	}

	slog.Info("reconcile cycle complete",
		"cycle", res.ID,
		"skipped", res.Skipped,
		"offers_created", res.OffersCreated,
		"confirmations", res.Confirmations,
		"duration", res.Duration().Round(time.Millisecond),
	)
}

// persistProcessed mantiene el set acotado a los trades vivos y lo guarda si cambió.
func (l *Loop) persistProcessed(res *domain.CycleResult) {
	if res.QueueSeen {
		if n := l.processed.Retain(res.TradeIDs); n > 0 {
			slog.Debug("processed trades pruned", "removed", n)
		}
	}
	l.processed.Add(res.HandledTradeIDs()...)

	if l.store == nil || !l.processed.Dirty() {
		return
	}
	if err := l.store.Save(l.processed); err != nil {
		slog.Warn("processed trades storage error", "err", err)
	}
}
