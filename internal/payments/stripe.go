package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

var (
	ErrNotPaid       = errors.New("payment not completed")
	ErrInvalidSecret = errors.New("invalid payment intent client secret")
)

// Intent is the part of a PaymentIntent the gateway cares about.
type Intent struct {
	ID       string
	Status   stripe.PaymentIntentStatus
	Amount   int64 // smallest currency unit
	Currency string
}

// Verifier reads PaymentIntents with a publishable key. Stripe allows that
// only together with the intent's client secret, which is exactly what the
// device holds after presenting the payment sheet.
type Verifier struct {
	pi             *paymentintent.Client
	publishableKey string
}

// NewVerifier builds a verifier. An empty apiURL uses Stripe's API.
func NewVerifier(publishableKey, apiURL string, httpClient *http.Client) *Verifier {
	cfg := &stripe.BackendConfig{
		LeveledLogger: &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	if apiURL != "" {
		cfg.URL = stripe.String(apiURL)
	}
	b := stripe.GetBackendWithConfig(stripe.APIBackend, cfg)
	return &Verifier{pi: &paymentintent.Client{B: b, Key: publishableKey}, publishableKey: publishableKey}
}

func (v *Verifier) PublishableKey() string { return v.publishableKey }

// IntentID extracts "pi_..." from a client secret "pi_..._secret_...".
func IntentID(clientSecret string) (string, error) {
	id, _, ok := strings.Cut(clientSecret, "_secret_")
	if !ok || !strings.HasPrefix(id, "pi_") || len(id) <= len("pi_") {
		return "", ErrInvalidSecret
	}
	return id, nil
}

// Status retrieves the PaymentIntent behind clientSecret.
func (v *Verifier) Status(ctx context.Context, clientSecret string) (Intent, error) {
	id, err := IntentID(clientSecret)
	if err != nil {
		return Intent{}, err
	}
	params := &stripe.PaymentIntentParams{ClientSecret: stripe.String(clientSecret)}
	params.Context = ctx
	pi, err := v.pi.Get(id, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return Intent{}, fmt.Errorf("%w: %s", ErrInvalidSecret, id)
		}
		return Intent{}, fmt.Errorf("stripe get %s: %w", id, err)
	}
	return Intent{ID: pi.ID, Status: pi.Status, Amount: pi.Amount, Currency: string(pi.Currency)}, nil
}

// Verify succeeds once funds are captured or held for capture.
func (v *Verifier) Verify(ctx context.Context, clientSecret string) (Intent, error) {
	in, err := v.Status(ctx, clientSecret)
	if err != nil {
		return Intent{}, err
	}
	switch in.Status {
	case stripe.PaymentIntentStatusSucceeded, stripe.PaymentIntentStatusRequiresCapture:
		return in, nil
	}
	return in, fmt.Errorf("%w: intent %s is %s", ErrNotPaid, in.ID, in.Status)
}

// Cents converts a dollar amount the way the backend does: truncating.
func Cents(amount float64) int64 {
	return int64(amount * 100)
}
