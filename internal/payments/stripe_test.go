package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fakeStripe(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		id := strings.TrimPrefix(r.URL.Path, "/v1/payment_intents/")
		secret := r.URL.Query().Get("client_secret")
		if !strings.HasPrefix(secret, id+"_secret_") {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent"}}`))
			return
		}
		status := "succeeded"
		switch id {
		case "pi_pending":
			status = "requires_payment_method"
		case "pi_held":
			status = "requires_capture"
		}
		w.Write([]byte(`{"id":"` + id + `","object":"payment_intent","status":"` + status + `","amount":1250,"currency":"usd"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIntentID(t *testing.T) {
	if id, err := IntentID("pi_3Abc_secret_xyz"); err != nil || id != "pi_3Abc" {
		t.Fatalf("got %q err=%v", id, err)
	}
	for _, bad := range []string{"", "pi_3Abc", "seti_1_secret_2", "pi__secret_x"} {
		if _, err := IntentID(bad); !errors.Is(err, ErrInvalidSecret) {
			t.Fatalf("%q: expected ErrInvalidSecret, got %v", bad, err)
		}
	}
}

func TestVerify(t *testing.T) {
	srv := fakeStripe(t)
	v := NewVerifier("pk_test_123", srv.URL, srv.Client())
	ctx := context.Background()

	in, err := v.Verify(ctx, "pi_paid_secret_a")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if in.ID != "pi_paid" || in.Amount != 1250 || in.Currency != "usd" {
		t.Fatalf("unexpected intent %+v", in)
	}
	if _, err := v.Verify(ctx, "pi_held_secret_a"); err != nil {
		t.Fatalf("held funds should verify: %v", err)
	}
	if _, err := v.Verify(ctx, "pi_pending_secret_a"); !errors.Is(err, ErrNotPaid) {
		t.Fatalf("expected ErrNotPaid, got %v", err)
	}
	if v.PublishableKey() != "pk_test_123" {
		t.Fatalf("unexpected key %q", v.PublishableKey())
	}
}

func TestCents(t *testing.T) {
	if Cents(12.5) != 1250 || Cents(0) != 0 || Cents(30) != 3000 {
		t.Fatalf("unexpected cents")
	}
}
