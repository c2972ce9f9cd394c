package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/observability"
)

// Account is what the backend decoded from the identity token.
type Account struct {
	UserID string `json:"uid"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Authorize exchanges an identity token for a backend session cookie.
func (c *Client) Authorize(ctx context.Context, idToken string) (Account, error) {
	var out struct {
		Message string  `json:"message"`
		Cookie  Account `json:"cookie"`
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer "+idToken)
	if err := c.do(ctx, "auth", http.MethodPost, "/auth", struct{}{}, &out, h); err != nil {
		return Account{}, err
	}
	return out.Cookie, nil
}

func (c *Client) Signup(ctx context.Context, s models.Signup) error {
	return c.do(ctx, "signup", http.MethodPost, "/api/signup", s, nil, nil)
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, "logout", http.MethodPost, "/api/logout", struct{}{}, nil, nil)
}

func (c *Client) AddCar(ctx context.Context, car models.Car) error {
	return c.do(ctx, "add_car", http.MethodPost, "/api/add-car", car, nil, nil)
}

// PostRide publishes a ride and returns its id.
func (c *Client) PostRide(ctx context.Context, r models.NewRide) (string, error) {
	var out struct {
		RideID string `json:"rideId"`
	}
	if err := c.do(ctx, "post_ride", http.MethodPost, "/api/post-ride", r, &out, nil); err != nil {
		return "", err
	}
	return out.RideID, nil
}

// AvailableRides lists open rides the caller neither owns nor has joined.
func (c *Client) AvailableRides(ctx context.Context) ([]models.Ride, error) {
	var out rideList
	if err := c.do(ctx, "available_rides", http.MethodGet, "/api/available-rides", nil, &out, nil); err != nil {
		return nil, err
	}
	return out.decode("available_rides"), nil
}

// ComingUpRides lists rides the caller has joined or posted.
func (c *Client) ComingUpRides(ctx context.Context) ([]models.Ride, error) {
	var out rideList
	if err := c.do(ctx, "coming_up_rides", http.MethodGet, "/api/coming-up-rides", nil, &out, nil); err != nil {
		return nil, err
	}
	return out.decode("coming_up_rides"), nil
}

func (c *Client) Ride(ctx context.Context, id string) (models.Ride, error) {
	var out struct {
		Ride models.Ride `json:"ride"`
	}
	if err := c.do(ctx, "ride", http.MethodGet, "/api/rides/"+url.PathEscape(id), nil, &out, nil); err != nil {
		return models.Ride{}, err
	}
	if out.Ride.ID == "" {
		out.Ride.ID = id
	}
	return out.Ride, nil
}

// rideList holds rides undecoded so that one malformed ride is skipped
// instead of failing the list.
type rideList struct {
	Rides []json.RawMessage `json:"rides"`
}

func (l rideList) decode(endpoint string) []models.Ride {
	out := make([]models.Ride, 0, len(l.Rides))
	for _, raw := range l.Rides {
		var r models.Ride
		if err := json.Unmarshal(raw, &r); err != nil {
			observability.RidesSkipped.WithLabelValues(endpoint).Inc()
			continue
		}
		out = append(out, r)
	}
	return out
}

// RideRequest joins the caller to a ride after payment.
type RideRequest struct {
	RideID    string `json:"rideId"`
	Amount    string `json:"amount"`
	CardToken string `json:"cardToken,omitempty"`
}

func (c *Client) RequestRide(ctx context.Context, rr RideRequest) error {
	return c.do(ctx, "request_ride", http.MethodPost, "/api/request-ride", rr, nil, nil)
}

func (c *Client) CancelRide(ctx context.Context, rideID string) error {
	body := map[string]string{"rideId": rideID}
	return c.do(ctx, "cancel_ride", http.MethodPost, "/api/cancel-ride", body, nil, nil)
}

// PaymentSheet asks the backend for a payment intent for amount dollars.
func (c *Client) PaymentSheet(ctx context.Context, rideID string, amount float64, refund bool) (models.PaymentSheet, error) {
	body := map[string]string{
		"rideId": rideID,
		"amount": FormatAmount(amount),
		"refund": strconv.FormatBool(refund),
	}
	var out models.PaymentSheet
	if err := c.do(ctx, "payment_sheet", http.MethodPost, "/api/payment-sheet", body, &out, nil); err != nil {
		return models.PaymentSheet{}, err
	}
	out.Amount = body["amount"]
	return out, nil
}

func (c *Client) UserID(ctx context.Context) (string, error) {
	var out struct {
		UserID string `json:"userId"`
	}
	if err := c.do(ctx, "user_id", http.MethodGet, "/api/user-id", nil, &out, nil); err != nil {
		return "", err
	}
	return out.UserID, nil
}

// FormatAmount renders dollars with two decimals, the form the backend parses.
func FormatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}
