package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig captures all tunable parameters for the mobile gateway.
// Values are loaded from environment variables with defaults that work
// against a backend running on the same machine.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BackendURL     string
	BackendTimeout time.Duration

	FirebaseAPIKey string
	IdentityURL    string

	GoogleMapsAPIKey string
	DirectionsURL    string
	RouteCacheTTL    time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisRoutePrefix string

	KafkaBrokers []string
	KafkaTopic   string

	PGDSN string

	StripePublishableKey string
	StripeURL            string

	PushEndpoint string
	DefaultSort  string

	LogLevel      string
	RunMigrations bool
}

// ConsumerConfig configures the route warmer.
type ConsumerConfig struct {
	MetricsAddr string

	KafkaBrokers []string
	KafkaTopic   string
	KafkaGroup   string

	GoogleMapsAPIKey string
	DirectionsURL    string
	RouteCacheTTL    time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisRoutePrefix string
	PGDSN            string

	WarmAttempts int
	WarmDelay    time.Duration

	PurgeInterval time.Duration

	LogLevel string
}

const (
	defaultBackendURL    = "http://127.0.0.1:8090"
	defaultIdentityURL   = "https://identitytoolkit.googleapis.com"
	defaultDirectionsURL = "https://maps.googleapis.com"
	defaultTopic         = "ride-bookings"
	defaultRoutePrefix   = "route:"
	defaultRouteCacheTTL = 24 * time.Hour
)

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:         ":8080",
		ReadTimeout:      5 * time.Second,
		WriteTimeout:     10 * time.Second,
		IdleTimeout:      120 * time.Second,
		ShutdownTimeout:  15 * time.Second,
		BackendURL:       defaultBackendURL,
		BackendTimeout:   10 * time.Second,
		IdentityURL:      defaultIdentityURL,
		DirectionsURL:    defaultDirectionsURL,
		RouteCacheTTL:    defaultRouteCacheTTL,
		RedisRoutePrefix: defaultRoutePrefix,
		KafkaTopic:       defaultTopic,
		LogLevel:         "info",
	}
}

func defaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		MetricsAddr:      ":2112",
		KafkaBrokers:     []string{"localhost:9092"},
		KafkaTopic:       defaultTopic,
		KafkaGroup:       "route-warmer",
		DirectionsURL:    defaultDirectionsURL,
		RouteCacheTTL:    defaultRouteCacheTTL,
		RedisRoutePrefix: defaultRoutePrefix,
		WarmAttempts:     3,
		WarmDelay:        200 * time.Millisecond,
		PurgeInterval:    time.Hour,
		LogLevel:         "info",
	}
}

func LoadServerConfig() (ServerConfig, error) {
	cfg := defaultServerConfig()
	var errs []error

	setStringFromEnv(&cfg.HTTPAddr, "HTTP_ADDR")
	setDurationFromEnv(&cfg.ReadTimeout, "HTTP_READ_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.WriteTimeout, "HTTP_WRITE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.IdleTimeout, "HTTP_IDLE_TIMEOUT", &errs)
	setDurationFromEnv(&cfg.ShutdownTimeout, "HTTP_SHUTDOWN_TIMEOUT", &errs)

	setStringFromEnv(&cfg.BackendURL, "BACKEND_URL")
	setDurationFromEnv(&cfg.BackendTimeout, "BACKEND_TIMEOUT", &errs)

	cfg.FirebaseAPIKey = strings.TrimSpace(os.Getenv("FIREBASE_API_KEY"))
	setStringFromEnv(&cfg.IdentityURL, "IDENTITY_URL")

	cfg.GoogleMapsAPIKey = strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY"))
	setStringFromEnv(&cfg.DirectionsURL, "DIRECTIONS_URL")
	setDurationFromEnv(&cfg.RouteCacheTTL, "ROUTE_CACHE_TTL", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisRoutePrefix, "REDIS_ROUTE_PREFIX")

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")

	cfg.PGDSN = os.Getenv("PG_DSN")

	cfg.StripePublishableKey = strings.TrimSpace(os.Getenv("STRIPE_PUBLISHABLE_KEY"))
	cfg.StripeURL = strings.TrimSpace(os.Getenv("STRIPE_URL"))

	cfg.PushEndpoint = strings.TrimSpace(os.Getenv("PUSH_ENDPOINT"))
	cfg.DefaultSort = strings.TrimSpace(os.Getenv("DEFAULT_SORT"))

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	cfg.RunMigrations = strings.EqualFold(os.Getenv("MIGRATE"), "true")

	for name, d := range map[string]time.Duration{
		"HTTP_READ_TIMEOUT":     cfg.ReadTimeout,
		"HTTP_WRITE_TIMEOUT":    cfg.WriteTimeout,
		"HTTP_IDLE_TIMEOUT":     cfg.IdleTimeout,
		"HTTP_SHUTDOWN_TIMEOUT": cfg.ShutdownTimeout,
		"BACKEND_TIMEOUT":       cfg.BackendTimeout,
		"ROUTE_CACHE_TTL":       cfg.RouteCacheTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0", name))
		}
	}
	if err := checkAbsoluteURL("BACKEND_URL", cfg.BackendURL); err != nil {
		errs = append(errs, err)
	}

	return cfg, errors.Join(errs...)
}

func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := defaultConsumerConfig()
	var errs []error

	setStringFromEnv(&cfg.MetricsAddr, "METRICS_ADDR")

	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = os.Getenv("KAFKA_BROKER")
	}
	if brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	setStringFromEnv(&cfg.KafkaTopic, "KAFKA_TOPIC")
	setStringFromEnv(&cfg.KafkaGroup, "KAFKA_GROUP")

	cfg.GoogleMapsAPIKey = strings.TrimSpace(os.Getenv("GOOGLE_MAPS_API_KEY"))
	setStringFromEnv(&cfg.DirectionsURL, "DIRECTIONS_URL")
	setDurationFromEnv(&cfg.RouteCacheTTL, "ROUTE_CACHE_TTL", &errs)

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	setStringFromEnv(&cfg.RedisRoutePrefix, "REDIS_ROUTE_PREFIX")
	cfg.PGDSN = os.Getenv("PG_DSN")

	setIntFromEnv(&cfg.WarmAttempts, "WARM_ATTEMPTS", &errs)
	setDurationFromEnv(&cfg.WarmDelay, "WARM_DELAY", &errs)
	setDurationFromEnv(&cfg.PurgeInterval, "CACHE_PURGE_INTERVAL", &errs)

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	if cfg.GoogleMapsAPIKey == "" {
		errs = append(errs, fmt.Errorf("GOOGLE_MAPS_API_KEY is required"))
	}
	if cfg.WarmAttempts <= 0 {
		errs = append(errs, fmt.Errorf("WARM_ATTEMPTS must be > 0"))
	}
	if cfg.RouteCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("ROUTE_CACHE_TTL must be > 0"))
	}
	if cfg.PurgeInterval <= 0 {
		errs = append(errs, fmt.Errorf("CACHE_PURGE_INTERVAL must be > 0"))
	}

	return cfg, errors.Join(errs...)
}

func checkAbsoluteURL(key, v string) error {
	u, err := url.Parse(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s: %q is not an absolute URL", key, v)
	}
	return nil
}

func setDurationFromEnv(target *time.Duration, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = d
	}
}

func setIntFromEnv(target *int, key string, errs *[]error) {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*target = i
	}
}

func setStringFromEnv(target *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
