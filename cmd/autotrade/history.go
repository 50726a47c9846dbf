package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/autotrade/config"
	"github.com/alejandrodnm/autotrade/internal/adapters/notify"
	"github.com/alejandrodnm/autotrade/internal/adapters/storage"
)

func runHistory(ctx context.Context, cfg *config.Config, days int) error {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}
	defer store.Close()

	since := dayStart(days)
	records, err := store.RecentDispatches(ctx, since)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	cycles, err := store.CountCycles(ctx)
	if err != nil {
		slog.Warn("history: count cycles", "err", err)
	}

	slog.Info("history report", "since", since.Format("2006-01-02"), "dispatches", len(records), "cycles_stored", cycles)
	notify.NewConsole(true).PrintHistoryReport(since, records)
	return nil
}
