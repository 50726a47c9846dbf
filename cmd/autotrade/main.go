package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/autotrade/config"
	"github.com/alejandrodnm/autotrade/internal/adapters/csfloat"
	"github.com/alejandrodnm/autotrade/internal/adapters/notify"
	"github.com/alejandrodnm/autotrade/internal/adapters/steam"
	"github.com/alejandrodnm/autotrade/internal/adapters/storage"
	"github.com/alejandrodnm/autotrade/internal/adapters/transport"
	"github.com/alejandrodnm/autotrade/internal/application/reconcile"
	"github.com/alejandrodnm/autotrade/internal/domain"
	"github.com/alejandrodnm/autotrade/internal/ports"
	"github.com/alejandrodnm/autotrade/internal/retry"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one reconciliation cycle and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print full batch table per cycle (default: compact 1-line)")
	history := flag.Int("history", 0, "print offers dispatched in the last N days and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *history > 0 {
		err = runHistory(ctx, cfg, *history)
	} else {
		err = run(ctx, cfg, *once, *table)
	}
	if err != nil {
		slog.Error("autotrade exited with error", "err", err)
		cancel()
		os.Exit(1)
	}
	slog.Info("autotrade stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, once, table bool) error {
	slog.Info("autotrade starting",
		"steam_id", cfg.Steam.SteamID64,
		"accept_mode", cfg.CSFloat.AcceptMode,
		"random_interval", cfg.Loop.Random,
		"proxy", cfg.Steam.Proxy != "",
		"steam_proxy", cfg.SteamProxy() != "",
		"once", once,
	)

	// El marketplace siempre sale por el proxy si hay uno; Steam solo con use_proxy.
	marketHTTP, err := transport.NewClient(transport.Options{
		UserAgent: cfg.Steam.UserAgent,
		ProxyURL:  cfg.Steam.Proxy,
	})
	if err != nil {
		return fmt.Errorf("csfloat transport: %w", err)
	}
	steamHTTP, err := transport.NewClient(transport.Options{
		UserAgent: cfg.Steam.UserAgent,
		ProxyURL:  cfg.SteamProxy(),
		CookieJar: true,
	})
	if err != nil {
		return fmt.Errorf("steam transport: %w", err)
	}

	market := csfloat.NewClient(csfloat.Options{
		BaseURL:     cfg.CSFloat.BaseURL,
		APIKey:      cfg.CSFloat.APIKey,
		TradesLimit: cfg.CSFloat.TradesLimit,
		HTTPClient:  marketHTTP,
	})
	network, err := steam.NewClient(steam.Options{
		Credentials: steam.Credentials{
			SteamID:        cfg.Steam.SteamID64,
			Username:       cfg.Steam.Login,
			Password:       cfg.Steam.Password,
			SharedSecret:   cfg.Steam.SharedSecret,
			IdentitySecret: cfg.Steam.IdentitySecret,
			APIKey:         cfg.Steam.APIKey,
		},
		HTTPClient: steamHTTP,
	})
	if err != nil {
		return err
	}

	cookies := storage.NewCookieFile(cfg.Storage.CookieFile)
	processedStore := storage.NewProcessedFile(cfg.Storage.ProcessedFile)

	var processed *domain.ProcessedSet
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return startSession(gctx, network, cookies)
	})
	g.Go(func() error {
		set, err := processedStore.Load()
		if err != nil {
			slog.Warn("processed trades file unreadable, starting empty", "err", err, "path", cfg.Storage.ProcessedFile)
		}
		processed = set
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// Las cookies se guardan siempre al salir, también tras un error o señal.
	defer func() {
		if err := cookies.SaveCookies(network.Cookies()); err != nil {
			slog.Warn("failed to save session cookies", "err", err, "path", cfg.Storage.CookieFile)
			return
		}
		slog.Info("session cookies saved", "path", cfg.Storage.CookieFile)
	}()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("open storage %q: %w", cfg.Storage.DSN, err)
	}
	defer store.Close()

	engineCfg := reconcile.DefaultConfig()
	engineCfg.AccountID = cfg.Steam.SteamID64
	engineCfg.AcceptMode = reconcile.AcceptMode(cfg.CSFloat.AcceptMode)
	engineCfg.InventoryPageSize = cfg.Steam.InventoryCount

	engine := reconcile.NewEngine(engineCfg, market, network, processed)
	loop := reconcile.NewLoop(
		reconcile.LoopConfig{Interval: cfg.Interval, Once: once},
		engine,
		processed,
		processedStore,
		store,
		notify.NewConsole(table),
	)
	loop.SetSession(network)
	return loop.Run(ctx)
}

// startSession restaura las cookies guardadas y valida la sesión; si no
// sirven, hace login completo con reintentos.
func startSession(ctx context.Context, network *steam.Client, cookies ports.SessionStore) error {
	saved, err := cookies.LoadCookies()
	if err != nil {
		slog.Warn("saved cookies unreadable, logging in", "err", err)
	}
	if len(saved) > 0 {
		network.RestoreSession(saved)
		slog.Info("session cookies restored", "cookies", len(saved))
	}

	err = retry.Run(ctx, retry.Default, "steam session", network.EnsureSession)
	if err != nil {
		return fmt.Errorf("steam session: %w", err)
	}
	slog.Info("steam session ready", "steam_id", network.SteamID())
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// dayStart devuelve la medianoche UTC de hace n días.
func dayStart(n int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -n)
}
