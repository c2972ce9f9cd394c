package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/example/roadbuddy/internal/models"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   []any
	err    error
	closed bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, v)
	return nil
}

func (f *fakeConn) Close() error { f.closed = true; return nil }

func TestWSRegistryNotifiesEveryDevice(t *testing.T) {
	r := NewWSRegistry(nil)
	phone, tablet := &fakeConn{}, &fakeConn{}
	r.Add("u1", phone)
	r.Add("u1", tablet)

	n := models.Notification{Type: "ride_booked", RideID: "r1"}
	if err := r.Notify(context.Background(), "u1", n); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(phone.sent) != 1 || len(tablet.sent) != 1 {
		t.Fatalf("expected both devices notified, got %d and %d", len(phone.sent), len(tablet.sent))
	}
	if err := r.Notify(context.Background(), "u2", n); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestWSRegistryDropsBrokenSessions(t *testing.T) {
	r := NewWSRegistry(nil)
	good, bad := &fakeConn{}, &fakeConn{err: errors.New("broken pipe")}
	r.Add("u1", good)
	r.Add("u1", bad)

	if err := r.Notify(context.Background(), "u1", models.Notification{Type: "x"}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if r.Connected("u1") != 1 || !bad.closed {
		t.Fatalf("broken session not removed: connected=%d closed=%v", r.Connected("u1"), bad.closed)
	}
}

func TestWSRegistryRemove(t *testing.T) {
	r := NewWSRegistry(nil)
	c := &fakeConn{}
	s := r.Add("u1", c)
	r.Remove("u1", s)
	r.Remove("u1", s)
	if r.Connected("u1") != 0 || !c.closed {
		t.Fatalf("session not removed")
	}
}

func TestPushDispatcherFallsBackToWebhook(t *testing.T) {
	var got struct {
		UserID       string              `json:"user_id"`
		Notification models.Notification `json:"notification"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ws := NewWSRegistry(nil)
	live := &fakeConn{}
	ws.Add("online", live)
	p := NewPushDispatcher(srv.URL, ws, nil)
	ctx := context.Background()

	if err := p.Notify(ctx, "online", models.Notification{Type: "a"}); err != nil || len(live.sent) != 1 {
		t.Fatalf("expected ws delivery, err=%v", err)
	}
	if err := p.Notify(ctx, "offline", models.Notification{Type: "b", RideID: "r9"}); err != nil {
		t.Fatalf("webhook: %v", err)
	}
	if got.UserID != "offline" || got.Notification.RideID != "r9" {
		t.Fatalf("unexpected webhook body %+v", got)
	}
}

func TestPushDispatcherWithoutEndpoint(t *testing.T) {
	p := NewPushDispatcher("", NewWSRegistry(nil), nil)
	if err := p.Notify(context.Background(), "u1", models.Notification{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}
