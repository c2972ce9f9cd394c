package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/kafka-go"

	"github.com/example/roadbuddy/internal/config"
	"github.com/example/roadbuddy/internal/directions"
	"github.com/example/roadbuddy/internal/logging"
	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/storage"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_consumed_total",
		Help: "Total booking events consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_messages_invalid_total",
		Help: "Total invalid messages received",
	})
	routesWarmed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_routes_warmed_total",
		Help: "Total routes fetched into the cache",
	})
	warmErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_warm_errors_total",
		Help: "Total routes that could not be warmed",
	})
	routesPurged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_routes_purged_total",
		Help: "Total expired routes removed from the cache",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, routesWarmed, warmErrors, routesPurged)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	// allow overriding the metrics address for local runs
	flag.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "address to serve prometheus metrics on")
	flag.Parse()

	logger := logging.NewLogger(cfg.LogLevel, "route-warmer")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opened, err := storage.Open(ctx, storage.Options{
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisPrefix:   cfg.RedisRoutePrefix,
		PGDSN:         cfg.PGDSN,
	}, logger)
	if err != nil {
		logger.Error("route cache", "error", err)
		os.Exit(1)
	}
	if opened.Kind == "memory" {
		logger.Warn("no shared route cache configured, warmed routes stay in this process")
	}
	if opened.Purge != nil {
		go purgeExpired(ctx, opened.Purge, cfg.PurgeInterval, logger)
	}
	provider, err := directions.NewGoogleClient(cfg.DirectionsURL, cfg.GoogleMapsAPIKey)
	if err != nil {
		logger.Error("directions client", "error", err)
		os.Exit(1)
	}
	svc := directions.NewService(provider, opened.Store, cfg.RouteCacheTTL, logger)

	// start metrics and health server
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := opened.Ping(r.Context()); err != nil {
				http.Error(w, opened.Kind+" not ready", 503)
				return
			}
			w.WriteHeader(200)
			w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = opened.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff)
			time.Sleep(backoff)
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		ev, err := decodeBooking(m.Value)
		if err != nil {
			msgsInvalid.Inc()
			logger.Warn("invalid message", "offset", m.Offset, "error", err)
			continue
		}

		if err := warmRouteWithRetry(ctx, svc, ev, cfg.WarmAttempts, cfg.WarmDelay); err != nil {
			warmErrors.Inc()
			logger.Error("route warm failed", "ride_id", ev.RideID, "from", ev.From, "to", ev.To, "error", err)
			continue
		}
		routesWarmed.Inc()
	}
}

var errIncompleteEvent = errors.New("booking event without ride, origin or destination")

func decodeBooking(b []byte) (models.BookingEvent, error) {
	var ev models.BookingEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		return models.BookingEvent{}, err
	}
	if ev.RideID == "" || ev.From == "" || ev.To == "" {
		return models.BookingEvent{}, errIncompleteEvent
	}
	return ev, nil
}

// RouteWarmer is the part of directions.Service the consumer needs.
type RouteWarmer interface {
	Route(ctx context.Context, origin, destination string) (models.Route, error)
}

// warmRouteWithRetry fetches the booked ride's route so that the first
// passenger to open it hits the cache. A ride with no route is not retried.
func warmRouteWithRetry(ctx context.Context, w RouteWarmer, ev models.BookingEvent, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < attempts; i++ {
		if _, err = w.Route(ctx, ev.From, ev.To); err == nil {
			return nil
		}
		if errors.Is(err, directions.ErrNoRoute) || i == attempts-1 {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}

// purgeExpired deletes expired cache rows every interval until ctx ends.
func purgeExpired(ctx context.Context, purge func(context.Context) (int64, error), every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := purge(ctx)
			if err != nil {
				logger.Warn("route cache purge failed", "error", err)
				continue
			}
			routesPurged.Add(float64(n))
			if n > 0 {
				logger.Info("route cache purged", "rows", n)
			}
		}
	}
}
