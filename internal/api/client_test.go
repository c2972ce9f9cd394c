package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/roadbuddy/internal/models"
)

// fakeBackend mimics the session handling of the real backend: /auth sets a
// cookie and every /api route except signup requires it.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie("session"); err != nil || c.Value != "s-123" {
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"User is not logged in"}`))
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"Unauthorized: Invalid token"}`))
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s-123", Path: "/"})
		w.Write([]byte(`{"message":"Logged in successfully","cookie":{"uid":"u1","name":"Pat","email":"pat@example.com"}}`))
	})
	mux.HandleFunc("/api/available-rides", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rides":[{"id":"r1","from":"A","to":"B","cost":"12","maxPassengers":3,"currentPassengers":[]},
			{"id":"r2","from":"C","to":"D","cost":8,"maxPassengers":"2","currentPassengers":["u9"]}]}`))
	}))
	mux.HandleFunc("/api/coming-up-rides", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rides":[{"id":"ok","cost":"$20","maxPassengers":2},
			{"id":"bad","cost":5,"maxPassengers":"1e30"},
			{"id":"also-ok","cost":7,"maxPassengers":1}]}`))
	}))
	mux.HandleFunc("/api/rides/", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/rides/r1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Ride not found"}`))
			return
		}
		w.Write([]byte(`{"ride":{"from":"A","to":"B","cost":12,"maxPassengers":3,"ownerID":"u2"}}`))
	}))
	mux.HandleFunc("/api/post-ride", authed(func(w http.ResponseWriter, r *http.Request) {
		var nr models.NewRide
		if err := json.NewDecoder(r.Body).Decode(&nr); err != nil || nr.MaxPassengers == 0 {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Missing required field(s): max_passengers"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"message":"Ride posted successfully","rideId":"new-ride"}`))
	}))
	mux.HandleFunc("/api/payment-sheet", authed(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["amount"] != "12.50" || body["refund"] != "false" || body["rideId"] != "r1" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"Invalid amount format."}`))
			return
		}
		w.Write([]byte(`{"paymentIntent":"pi_1_secret_2","ephemeralKey":"ek","customer":"cus_1"}`))
	}))
	mux.HandleFunc("/api/cancel-ride", authed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"An unexpected error occurred","details":"boom"}`))
	}))
	mux.HandleFunc("/api/user-id", authed(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"userId":"u1"}`))
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthorizeEstablishesSession(t *testing.T) {
	srv := fakeBackend(t)
	c, err := New(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := c.AvailableRides(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized before login, got %v", err)
	}
	if _, err := c.Authorize(ctx, "bad"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad token, got %v", err)
	}
	acct, err := c.Authorize(ctx, "good-token")
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if acct.UserID != "u1" || acct.Name != "Pat" {
		t.Fatalf("unexpected account %+v", acct)
	}

	rides, err := c.AvailableRides(ctx)
	if err != nil {
		t.Fatalf("available rides: %v", err)
	}
	if len(rides) != 2 || rides[0].Cost != 12 || rides[1].MaxPassengers != 2 || rides[1].SeatsLeft() != 1 {
		t.Fatalf("unexpected rides %+v", rides)
	}
	if id, err := c.UserID(ctx); err != nil || id != "u1" {
		t.Fatalf("user id: %q err=%v", id, err)
	}
}

func TestWithSessionForwardsCookies(t *testing.T) {
	srv := fakeBackend(t)
	base, _ := New(srv.URL)
	ctx := context.Background()

	if _, err := base.Authorize(ctx, "good-token"); err != nil {
		t.Fatalf("authorize: %v", err)
	}
	cookies := base.SessionCookies()
	if len(cookies) != 1 || cookies[0].Value != "s-123" {
		t.Fatalf("unexpected session cookies %v", cookies)
	}

	fresh, _ := New(srv.URL)
	if _, err := fresh.AvailableRides(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("fresh client must not be logged in, got %v", err)
	}
	sess := fresh.WithSession([]*http.Cookie{{Name: "session", Value: "s-123"}})
	if _, err := sess.AvailableRides(ctx); err != nil {
		t.Fatalf("session client: %v", err)
	}
	if _, err := fresh.AvailableRides(ctx); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("WithSession leaked cookies into the parent, got %v", err)
	}
}

func TestRideAndPostRide(t *testing.T) {
	srv := fakeBackend(t)
	c, _ := New(srv.URL)
	ctx := context.Background()
	if _, err := c.Authorize(ctx, "good-token"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	r, err := c.Ride(ctx, "r1")
	if err != nil {
		t.Fatalf("ride: %v", err)
	}
	if r.ID != "r1" || r.OwnerID != "u2" {
		t.Fatalf("unexpected ride %+v", r)
	}
	if _, err := c.Ride(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	id, err := c.PostRide(ctx, models.NewRide{From: "A", To: "B", Date: "2025-05-01", DepartureTime: "09:00", MaxPassengers: 3, Cost: 10})
	if err != nil || id != "new-ride" {
		t.Fatalf("post ride: %q err=%v", id, err)
	}
	_, err = c.PostRide(ctx, models.NewRide{From: "A"})
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || !errors.Is(err, ErrBadRequest) {
		t.Fatalf("expected bad request api error, got %v", err)
	}
}

func TestPaymentSheetAndErrors(t *testing.T) {
	srv := fakeBackend(t)
	c, _ := New(srv.URL)
	ctx := context.Background()
	if _, err := c.Authorize(ctx, "good-token"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	sheet, err := c.PaymentSheet(ctx, "r1", 12.5, false)
	if err != nil {
		t.Fatalf("payment sheet: %v", err)
	}
	if sheet.PaymentIntent != "pi_1_secret_2" || sheet.Customer != "cus_1" || sheet.Amount != "12.50" {
		t.Fatalf("unexpected sheet %+v", sheet)
	}

	err = c.CancelRide(ctx, "r1")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != 500 || apiErr.Details != "boom" {
		t.Fatalf("expected 500 api error with details, got %v", err)
	}
}

func TestNewRejectsRelativeURL(t *testing.T) {
	if _, err := New("localhost:8090"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestFormatAmount(t *testing.T) {
	for in, want := range map[float64]string{0: "0.00", 12.5: "12.50", 7.005: "7.00", 30: "30.00"} {
		if got := FormatAmount(in); got != want {
			t.Fatalf("%v: got %q, want %q", in, got, want)
		}
	}
}

func TestRideListSkipsUndecodableRides(t *testing.T) {
	srv := fakeBackend(t)
	c, err := New(srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	if _, err := c.Authorize(ctx, "good-token"); err != nil {
		t.Fatalf("authorize: %v", err)
	}

	rides, err := c.ComingUpRides(ctx)
	if err != nil {
		t.Fatalf("coming up rides: %v", err)
	}
	if len(rides) != 2 || rides[0].ID != "ok" || rides[1].ID != "also-ok" {
		t.Fatalf("unexpected rides %+v", rides)
	}
	if rides[0].CostKnown() || !rides[1].CostKnown() {
		t.Fatalf("expected only the first ride unpriced")
	}
}
