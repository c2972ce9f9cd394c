package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/roadbuddy/internal/directions"
	"github.com/example/roadbuddy/internal/models"
)

// fakeWarmer implements RouteWarmer for tests
type fakeWarmer struct {
	fail  int // number of times to fail before succeeding
	err   error
	calls int
	last  [2]string
}

func (f *fakeWarmer) Route(ctx context.Context, origin, destination string) (models.Route, error) {
	f.calls++
	f.last = [2]string{origin, destination}
	if f.calls <= f.fail {
		if f.err != nil {
			return models.Route{}, f.err
		}
		return models.Route{}, errors.New("maps unavailable")
	}
	return models.Route{}, nil
}

func booked() models.BookingEvent {
	return models.BookingEvent{EventID: "e1", RideID: "r1", From: "Boston", To: "Providence"}
}

func TestWarmRouteWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeWarmer{fail: 2}
	start := time.Now()
	if err := warmRouteWithRetry(context.Background(), f, booked(), 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls != 3 || f.last != [2]string{"Boston", "Providence"} {
		t.Fatalf("expected 3 calls for Boston->Providence, got %d %v", f.calls, f.last)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatalf("expected exponential backoff")
	}
}

func TestWarmRouteWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeWarmer{fail: 5}
	if err := warmRouteWithRetry(context.Background(), f, booked(), 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", f.calls)
	}
}

func TestWarmRouteWithRetry_NoRouteIsFinal(t *testing.T) {
	f := &fakeWarmer{fail: 5, err: directions.ErrNoRoute}
	if err := warmRouteWithRetry(context.Background(), f, booked(), 3, 5*time.Millisecond); !errors.Is(err, directions.ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
	if f.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", f.calls)
	}
}

func TestWarmRouteWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &fakeWarmer{fail: 5}
	if err := warmRouteWithRetry(ctx, f, booked(), 3, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDecodeBooking(t *testing.T) {
	ev, err := decodeBooking([]byte(`{"event_id":"e1","ride_id":"r1","from":"Boston","to":"Providence","amount":12.5}`))
	if err != nil || ev.RideID != "r1" || ev.Amount != 12.5 {
		t.Fatalf("unexpected event %+v err=%v", ev, err)
	}
	if _, err := decodeBooking([]byte(`{"ride_id":"r1"}`)); !errors.Is(err, errIncompleteEvent) {
		t.Fatalf("expected errIncompleteEvent, got %v", err)
	}
	if _, err := decodeBooking([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPurgeExpiredRunsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	purge := func(context.Context) (int64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("db gone")
		}
		return 3, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		purgeExpired(ctx, purge, 5*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("purge ran %d times", calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("purge loop did not stop")
	}
}
