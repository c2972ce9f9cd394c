package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/observability"
)

// jsonConn is satisfied by *websocket.Conn.
type jsonConn interface {
	WriteJSON(v any) error
	Close() error
}

// WSSession is one connected device.
type WSSession struct {
	conn jsonConn
	mu   sync.Mutex
}

func (s *WSSession) Send(n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(n)
}

// WSRegistry holds the open sessions of each user. A user may be connected
// from several devices at once.
type WSRegistry struct {
	mu       sync.RWMutex
	sessions map[string]map[*WSSession]struct{}
	logger   *slog.Logger
}

func NewWSRegistry(logger *slog.Logger) *WSRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSRegistry{sessions: make(map[string]map[*WSSession]struct{}), logger: logger}
}

func (r *WSRegistry) Add(userID string, conn jsonConn) *WSSession {
	s := &WSSession{conn: conn}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sessions[userID] == nil {
		r.sessions[userID] = make(map[*WSSession]struct{})
	}
	r.sessions[userID][s] = struct{}{}
	observability.WSSessions.Inc()
	return s
}

// Remove forgets s and closes its connection. Removing twice is a no-op.
func (r *WSRegistry) Remove(userID string, s *WSSession) {
	r.mu.Lock()
	set := r.sessions[userID]
	_, ok := set[s]
	if ok {
		delete(set, s)
		if len(set) == 0 {
			delete(r.sessions, userID)
		}
	}
	r.mu.Unlock()
	if ok {
		observability.WSSessions.Dec()
		_ = s.conn.Close()
	}
}

// Connected reports how many sessions userID has open.
func (r *WSRegistry) Connected(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID])
}

// Notify writes n to every session of userID. Sessions that fail to write
// are dropped. ErrNoSession is returned when nothing was delivered.
func (r *WSRegistry) Notify(_ context.Context, userID string, n models.Notification) error {
	r.mu.RLock()
	targets := make([]*WSSession, 0, len(r.sessions[userID]))
	for s := range r.sessions[userID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if err := s.Send(n); err != nil {
			r.logger.Warn("ws send failed", "user_id", userID, "error", err)
			r.Remove(userID, s)
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return ErrNoSession
	}
	observability.NotificationsSent.WithLabelValues("ws").Add(float64(delivered))
	return nil
}
