package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotbook/internal/api"
	"slotbook/internal/auth"
	"slotbook/internal/config"
	"slotbook/internal/events"
	"slotbook/internal/google"
	"slotbook/internal/logging"
	"slotbook/internal/metrics"
	"slotbook/internal/repository"
	"slotbook/internal/service"
	"slotbook/internal/storage"
	"slotbook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	store, closeStore, err := initStore(cfg, &logger)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	verifier := auth.NewVerifier(cfg.Auth.SharedSecret, cfg.Auth.AllowUnverified())
	if !verifier.HasSecret() {
		logger.Warn().Msg("no shared secret configured, identity payloads will not be verified")
	}

	bus := events.NewEventBus()
	booking := service.NewBookingService(store, verifier, bus, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := initRateLimiter(cfg, &logger)
	startSheetsMirror(ctx, cfg, bus, &logger)
	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.Server, booking, limiter, &logger)
	return serve(ctx, httpServer, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initStore(cfg *config.Config, logger *zerolog.Logger) (storage.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		store, err := storage.NewSQLiteStore(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init sqlite store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		store, err := storage.NewFileStore(cfg.Storage.Path, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("init file store: %w", err)
		}
		return store, nil, nil
	}
}

// initRateLimiter prefers the shared redis counter so limits hold across
// replicas, and falls back to per-process token buckets when redis is
// unavailable or not configured.
func initRateLimiter(cfg *config.Config, logger *zerolog.Logger) repository.RateLimiter {
	if cfg.RateLimit.RPS <= 0 {
		return nil
	}

	memory := repository.NewMemoryRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	if cfg.Redis.Address == "" {
		return memory
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing with in-memory rate limiting")
		_ = client.Close()
		return memory
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	redisLimiter := repository.NewRedisRateLimiter(client, int64(cfg.RateLimit.RPS), time.Second)
	return repository.NewFailoverRateLimiter(redisLimiter, memory, logger)
}

func startSheetsMirror(ctx context.Context, cfg *config.Config, bus *events.EventBus, logger *zerolog.Logger) {
	if cfg.Sheets.CredentialsFile == "" || cfg.Sheets.SpreadsheetID == "" {
		return
	}

	sheets, err := google.NewSheetsService(cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without sheets mirror")
		return
	}
	if err := sheets.TestConnection(ctx); err != nil {
		logger.Warn().Err(err).Msg("google sheets unreachable, continuing without sheets mirror")
		return
	}

	mirror := worker.NewMirrorWorker(sheets, worker.RetryPolicy{}, logger)
	mirror.Subscribe(bus)
	go mirror.Start(ctx)

	logger.Info().Msg("google sheets mirror started")
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
