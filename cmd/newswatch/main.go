package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"newswatch/internal/aggregate"
	"newswatch/internal/config"
	"newswatch/internal/coordinator"
	"newswatch/internal/fetcher"
	"newswatch/internal/model"
	"newswatch/internal/narrator"
	"newswatch/internal/notify"
	"newswatch/internal/player"
	"newswatch/internal/schedule"
	"newswatch/internal/server"
	"newswatch/internal/store"
	"newswatch/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	st, err := store.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database", "path", cfg.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer func() { _ = st.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sources, err := loadSources(ctx, st, cfg)
	if err != nil {
		log.Error("load feed sources", "error", err)
		os.Exit(1)
	}
	if len(sources) == 0 {
		log.Warn("no active feed subscriptions, nothing to poll")
	}

	agg := aggregate.New(fetcher.New(http.DefaultClient), sources, log)
	gate := schedule.NewGate(schedule.Window{
		StartHour: cfg.BlackoutStartHour,
		EndHour:   cfg.BlackoutEndHour,
	})

	// noteCh stays a nil interface unless a channel is actually configured.
	var noteCh notify.Channel
	var tg *telegram.Channel
	if cfg.TelegramEnabled() {
		tg, err = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Error("create telegram channel", "error", err)
			os.Exit(1)
		}
		noteCh = tg
	} else {
		log.Warn("telegram not configured, notifications disabled")
	}

	coord := coordinator.New(agg, gate, noteCh, log)
	defer coord.Close()
	if tg != nil {
		tg.OnDismiss(coord.HandleDismiss)
	}

	pl := player.New(coord, cfg.NarrationPause(), log)

	var nar server.Narrator
	if tg != nil {
		nar = narrator.New(tg, cfg.NarrationPause(), cfg.Narration.IncludeSummary, log)
	}

	srv := server.New(coord, pl, nar, st, log)
	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			cancel()
		}
	}()

	if tg != nil {
		go tg.Run(ctx)
	}

	log.Info("starting feed watcher",
		"feeds", len(sources),
		"interval", cfg.RefreshInterval(),
	)
	go coord.Run(ctx, cfg.RefreshInterval())

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	pl.Stop()

	log.Info("stopped")
}

// loadSources returns the active feed subscriptions, seeding the store from
// the config file when the store is empty.
func loadSources(ctx context.Context, st store.Store, cfg *config.Config) ([]model.FeedSource, error) {
	existing, err := st.ListFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	if len(existing) == 0 {
		for _, f := range cfg.Feeds {
			feed := model.FeedSource{
				Name:       f.Name,
				URL:        f.URL,
				MaxEntries: f.MaxEntries,
				IsActive:   true,
			}
			if err := st.CreateFeed(ctx, &feed); err != nil {
				return nil, fmt.Errorf("seed feed %q: %w", f.Name, err)
			}
		}
	}

	active, err := st.ListActiveFeeds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active feeds: %w", err)
	}
	for i := range active {
		if active[i].MaxEntries == 0 {
			active[i].MaxEntries = cfg.MaxEntriesPerFeed
		}
	}
	return active, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
