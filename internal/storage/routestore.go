package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/example/roadbuddy/internal/models"
)

var ErrNotFound = errors.New("route not cached")

// CachedRoute is the compact form of a route kept in the cache. Points are
// stored as the encoded polyline and decoded on the way out.
type CachedRoute struct {
	Polyline        string       `json:"polyline"`
	Origin          models.Coord `json:"origin"`
	Destination     models.Coord `json:"destination"`
	DistanceMeters  float64      `json:"distance_meters"`
	DurationSeconds float64      `json:"duration_seconds"`
	FetchedAt       time.Time    `json:"fetched_at"`
}

// RouteStore caches directions between two addresses.
type RouteStore interface {
	Get(ctx context.Context, key string) (CachedRoute, error)
	Put(ctx context.Context, key string, r CachedRoute, ttl time.Duration) error
}

// RouteKey normalises an origin/destination pair so that trivially
// different spellings of the same addresses share an entry.
func RouteKey(origin, destination string) string {
	return normalize(origin) + "|" + normalize(destination)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

type memoryEntry struct {
	r       CachedRoute
	expires time.Time
}

type MemoryStore struct {
	mu     sync.RWMutex
	routes map[string]memoryEntry
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{routes: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, key string) (CachedRoute, error) {
	m.mu.RLock()
	e, ok := m.routes[key]
	m.mu.RUnlock()
	if !ok {
		return CachedRoute{}, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		m.mu.Lock()
		delete(m.routes, key)
		m.mu.Unlock()
		return CachedRoute{}, ErrNotFound
	}
	return e.r, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, r CachedRoute, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routes[key] = memoryEntry{r: r, expires: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.routes)
}
