package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/roadbuddy/internal/api"
	"github.com/example/roadbuddy/internal/booking"
	"github.com/example/roadbuddy/internal/config"
	"github.com/example/roadbuddy/internal/directions"
	"github.com/example/roadbuddy/internal/dispatch"
	httpapi "github.com/example/roadbuddy/internal/http"
	"github.com/example/roadbuddy/internal/identity"
	"github.com/example/roadbuddy/internal/ingest"
	"github.com/example/roadbuddy/internal/logging"
	"github.com/example/roadbuddy/internal/payments"
	"github.com/example/roadbuddy/internal/rides"
	"github.com/example/roadbuddy/internal/storage"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, "gateway")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := api.New(cfg.BackendURL, api.WithTimeout(cfg.BackendTimeout))
	if err != nil {
		logger.Error("backend client", "error", err)
		os.Exit(1)
	}

	ws := dispatch.NewWSRegistry(logger)
	notifier := dispatch.NewPushDispatcher(cfg.PushEndpoint, ws, logger)

	deps := httpapi.Deps{
		Backend:     backend,
		Identity:    identity.New(cfg.IdentityURL, cfg.FirebaseAPIKey),
		WS:          ws,
		DefaultSort: rides.SortKey(cfg.DefaultSort),
		Logger:      logger,
	}

	if cfg.GoogleMapsAPIKey != "" {
		schema := ""
		if cfg.RunMigrations && cfg.RedisAddr == "" && cfg.PGDSN != "" {
			b, err := os.ReadFile(filepath.Join("migrations", "001_create_route_cache.sql"))
			if err != nil {
				logger.Error("read migration", "error", err)
				os.Exit(1)
			}
			schema = string(b)
		}
		opened, err := storage.Open(ctx, storage.Options{
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisPrefix:   cfg.RedisRoutePrefix,
			PGDSN:         cfg.PGDSN,
			Schema:        schema,
		}, logger)
		if err != nil {
			logger.Error("route cache", "error", err)
			os.Exit(1)
		}
		defer opened.Close()
		provider, err := directions.NewGoogleClient(cfg.DirectionsURL, cfg.GoogleMapsAPIKey)
		if err != nil {
			logger.Error("directions client", "error", err)
			os.Exit(1)
		}
		deps.Directions = directions.NewService(provider, opened.Store, cfg.RouteCacheTTL, logger)
	} else {
		logger.Warn("GOOGLE_MAPS_API_KEY not set, ride routes disabled")
	}

	var verifier booking.Verifier
	if cfg.StripePublishableKey != "" {
		verifier = payments.NewVerifier(cfg.StripePublishableKey, cfg.StripeURL, nil)
	}
	var publisher booking.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
		logger.Info("publishing bookings", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}
	deps.Booking = booking.NewService(verifier, publisher, notifier, logger)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(deps),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("gateway listening", "addr", cfg.HTTPAddr, "backend", cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	logger.Info("gateway stopped")
}
