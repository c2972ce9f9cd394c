package directions

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/polyline"
	"github.com/example/roadbuddy/internal/storage"
)

type fakeProvider struct {
	d     Directions
	err   error
	calls int
}

func (f *fakeProvider) Directions(ctx context.Context, origin, destination string) (Directions, error) {
	f.calls++
	return f.d, f.err
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func referenceDirections() Directions {
	return Directions{
		Polyline:        "_p~iF~ps|U_ulLnnqC_mqNvxq`@",
		Origin:          models.Coord{Lat: 38.5, Lon: -120.2},
		Destination:     models.Coord{Lat: 43.252, Lon: -126.453},
		DistanceMeters:  0,
		DurationSeconds: 3600,
	}
}

func TestRouteDecodesAndCaches(t *testing.T) {
	p := &fakeProvider{d: referenceDirections()}
	store := storage.NewMemoryStore()
	s := NewService(p, store, time.Hour, quietLogger())

	r, err := s.Route(context.Background(), "Sacramento", "Coos Bay")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if len(r.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(r.Points))
	}
	if r.DistanceMeters <= 0 {
		t.Fatalf("expected distance computed from the path, got %f", r.DistanceMeters)
	}
	if r.Region.Center.Lat < 38.5 || r.Region.Center.Lat > 43.252 {
		t.Fatalf("region center outside route: %+v", r.Region)
	}

	again, err := s.Route(context.Background(), " sacramento ", "COOS BAY")
	if err != nil {
		t.Fatalf("cached route: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("expected one provider call, got %d", p.calls)
	}
	if math.Abs(again.DistanceMeters-r.DistanceMeters) > 1e-6 || again.Polyline != r.Polyline {
		t.Fatalf("cached route differs: %+v vs %+v", again, r)
	}
}

func TestRouteMalformedPolylineIsError(t *testing.T) {
	d := referenceDirections()
	d.Polyline = "_p~iF~ps|"
	store := storage.NewMemoryStore()
	s := NewService(&fakeProvider{d: d}, store, time.Hour, quietLogger())

	_, err := s.Route(context.Background(), "a", "b")
	if !errors.Is(err, polyline.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("malformed route must not be cached")
	}
}

func TestRouteReplacesCorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	_ = store.Put(ctx, storage.RouteKey("a", "b"), storage.CachedRoute{Polyline: "_"}, time.Hour)
	p := &fakeProvider{d: referenceDirections()}
	s := NewService(p, store, time.Hour, quietLogger())

	if _, err := s.Route(ctx, "a", "b"); err != nil {
		t.Fatalf("route: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("expected provider fallback, got %d calls", p.calls)
	}
	cached, err := store.Get(ctx, storage.RouteKey("a", "b"))
	if err != nil || cached.Polyline != referenceDirections().Polyline {
		t.Fatalf("cache not refreshed: %+v err=%v", cached, err)
	}
}

func TestRouteErrors(t *testing.T) {
	s := NewService(&fakeProvider{err: ErrNoRoute}, nil, 0, quietLogger())
	if _, err := s.Route(context.Background(), "", "b"); !errors.Is(err, ErrMissingAddress) {
		t.Fatalf("expected ErrMissingAddress, got %v", err)
	}
	if _, err := s.Route(context.Background(), "a", "b"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestGoogleClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/maps/api/directions/json" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("origin") != "Irvine, CA" || q.Get("mode") != "driving" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		if q.Get("destination") == "Atlantis" {
			w.Write([]byte(`{"status":"ZERO_RESULTS","routes":[]}`))
			return
		}
		if q.Get("destination") == "Nowhere St" {
			w.Write([]byte(`{"status":"NOT_FOUND","routes":[]}`))
			return
		}
		if q.Get("destination") == "denied" {
			w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key"}`))
			return
		}
		w.Write([]byte(`{"status":"OK","routes":[{"overview_polyline":{"points":"_p~iF~ps|U"},
			"legs":[{"start_location":{"lat":33.68,"lng":-117.82},"end_location":{"lat":33.9,"lng":-118.1},
			"distance":{"value":1000},"duration":{"value":60}},
			{"start_location":{"lat":33.9,"lng":-118.1},"end_location":{"lat":33.94,"lng":-118.4},
			"distance":{"value":500},"duration":{"value":30}}]}]}`))
	}))
	defer srv.Close()

	g, err := NewGoogleClient(srv.URL+"/", "k")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	d, err := g.Directions(context.Background(), "Irvine, CA", "LAX")
	if err != nil {
		t.Fatalf("directions: %v", err)
	}
	if d.Polyline != "_p~iF~ps|U" || d.DistanceMeters != 1500 || d.DurationSeconds != 90 {
		t.Fatalf("unexpected directions %+v", d)
	}
	if d.Origin != (models.Coord{Lat: 33.68, Lon: -117.82}) || d.Destination != (models.Coord{Lat: 33.94, Lon: -118.4}) {
		t.Fatalf("unexpected endpoints %+v", d)
	}

	if _, err := g.Directions(context.Background(), "Irvine, CA", "Atlantis"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
	if _, err := g.Directions(context.Background(), "Irvine, CA", "Nowhere St"); !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute for NOT_FOUND, got %v", err)
	}
	if _, err := NewGoogleClient(srv.URL, ""); err == nil {
		t.Fatalf("expected missing key error")
	}
	if _, err := g.Directions(context.Background(), "Irvine, CA", "denied"); err == nil || errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected status error, got %v", err)
	}
}
