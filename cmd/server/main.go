package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/neexbeast/outage-ledger/internal/api"
	"github.com/neexbeast/outage-ledger/internal/cache"
	"github.com/neexbeast/outage-ledger/internal/config"
	"github.com/neexbeast/outage-ledger/internal/observability"
	"github.com/neexbeast/outage-ledger/internal/outage"
	"github.com/neexbeast/outage-ledger/internal/storage"
	"github.com/neexbeast/outage-ledger/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}

	log := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx := context.Background()

	pool, err := storage.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	if err := storage.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	locationCache, err := cache.Open(ctx, cfg.RedisURL, cfg.LocationCacheTTL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = locationCache.Close() }()

	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	repo := storage.NewRepository(pool)
	weatherClient := weather.NewClient(cfg.WeatherAPIURL, cfg.WeatherAPIKey, cfg.WeatherTimeout, metrics, log)

	locations := outage.NewLocationService(repo, locationCache, metrics, log)
	outages := outage.NewOutageService(repo, locations, weatherClient, clock, metrics, log)

	handlers := api.NewHandlers(locations, outages, clock, cfg.Debug, log)
	router := api.NewRouter(handlers, api.RouterConfig{
		Tokens:             cfg.APITokens,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DB:                 pool,
		Redis:              locationCache,
		Log:                log,
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, srv, cfg.ShutdownTimeout, log)
}

// serve runs srv until ctx is cancelled, then drains in-flight requests
// for at most grace.
func serve(ctx context.Context, srv *http.Server, grace time.Duration, log *slog.Logger) error {
	listenErr := make(chan error, 1)
	go func() {
		log.Info("outage ledger listening", "addr", srv.Addr)
		listenErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listening on %s: %w", srv.Addr, err)
	case <-ctx.Done():
		log.Info("stopping server")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("draining connections: %w", err)
	}
	log.Info("server stopped")
	return nil
}
