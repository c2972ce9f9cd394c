// Package directions turns a pair of addresses into a drawable route:
// provider lookup, route cache, polyline decoding and map viewport.
package directions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/roadbuddy/internal/geo"
	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/observability"
	"github.com/example/roadbuddy/internal/polyline"
	"github.com/example/roadbuddy/internal/storage"
)

var (
	ErrNoRoute        = errors.New("no route found")
	ErrMissingAddress = errors.New("origin and destination are required")
)

// Directions is a provider's answer before decoding.
type Directions struct {
	Polyline        string
	Origin          models.Coord
	Destination     models.Coord
	DistanceMeters  float64
	DurationSeconds float64
}

// Provider is the interface the service uses to look routes up.
type Provider interface {
	Directions(ctx context.Context, origin, destination string) (Directions, error)
}

const (
	defaultTTL     = 24 * time.Hour
	defaultPadding = 0.2
)

type Service struct {
	Provider Provider
	Store    storage.RouteStore // optional
	TTL      time.Duration
	Padding  float64 // map viewport padding, fraction of the span
	Logger   *slog.Logger
	now      func() time.Time
}

func NewService(p Provider, store storage.RouteStore, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Provider: p, Store: store, TTL: ttl, Padding: defaultPadding, Logger: logger, now: time.Now}
}

// Route returns the decoded route from origin to destination, serving it
// from the cache when possible. A polyline that does not decode is an
// error; a partial route is never returned.
func (s *Service) Route(ctx context.Context, origin, destination string) (models.Route, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return models.Route{}, ErrMissingAddress
	}
	key := storage.RouteKey(origin, destination)

	if s.Store != nil {
		cached, err := s.Store.Get(ctx, key)
		switch {
		case err == nil:
			r, berr := s.build(cached)
			if berr == nil {
				observability.RouteCacheHits.Inc()
				return r, nil
			}
			s.Logger.Warn("discarding cached route", "key", key, "error", berr)
		case !errors.Is(err, storage.ErrNotFound):
			s.Logger.Warn("route cache get failed", "key", key, "error", err)
		}
		observability.RouteCacheMisses.Inc()
	}

	d, err := s.Provider.Directions(ctx, origin, destination)
	if err != nil {
		return models.Route{}, fmt.Errorf("directions %q -> %q: %w", origin, destination, err)
	}
	cached := storage.CachedRoute{
		Polyline:        d.Polyline,
		Origin:          d.Origin,
		Destination:     d.Destination,
		DistanceMeters:  d.DistanceMeters,
		DurationSeconds: d.DurationSeconds,
		FetchedAt:       s.now().UTC(),
	}
	r, err := s.build(cached)
	if err != nil {
		return models.Route{}, err
	}
	if s.Store != nil {
		if err := s.Store.Put(ctx, key, cached, s.TTL); err != nil {
			s.Logger.Warn("route cache put failed", "key", key, "error", err)
		}
	}
	return r, nil
}

func (s *Service) build(c storage.CachedRoute) (models.Route, error) {
	points, err := polyline.Decode(c.Polyline)
	if err != nil {
		observability.PolylineDecodeErrors.Inc()
		return models.Route{}, fmt.Errorf("route polyline: %w", err)
	}
	observability.RoutesDecoded.Inc()

	distance := c.DistanceMeters
	if distance <= 0 {
		distance = geo.PathLength(points)
	}
	frame := points
	if len(frame) == 0 {
		frame = []models.Coord{c.Origin, c.Destination}
	}
	return models.Route{
		Origin:          c.Origin,
		Destination:     c.Destination,
		Points:          points,
		Polyline:        c.Polyline,
		DistanceMeters:  distance,
		DurationSeconds: c.DurationSeconds,
		Region:          geo.RegionFor(frame, s.Padding),
	}, nil
}
