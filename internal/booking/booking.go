package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/roadbuddy/internal/api"
	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/observability"
	"github.com/example/roadbuddy/internal/payments"
)

var (
	ErrRideFull         = errors.New("ride is full")
	ErrOwnRide          = errors.New("user cannot book its own ride")
	ErrAlreadyPassenger = errors.New("user already a passenger of this ride")
	ErrNotPassenger     = errors.New("user is not a passenger in this ride")
	ErrAmountMismatch   = errors.New("paid amount does not match ride cost")
	ErrUnpriced         = errors.New("ride has no readable cost")
)

// Backend is the slice of the RoadBuddy API a booking needs, bound to the
// caller's session.
type Backend interface {
	Ride(ctx context.Context, id string) (models.Ride, error)
	UserID(ctx context.Context) (string, error)
	PaymentSheet(ctx context.Context, rideID string, amount float64, refund bool) (models.PaymentSheet, error)
	RequestRide(ctx context.Context, rr api.RideRequest) error
	CancelRide(ctx context.Context, rideID string) error
}

type Verifier interface {
	Verify(ctx context.Context, clientSecret string) (payments.Intent, error)
	PublishableKey() string
}

type Publisher interface {
	PublishBooking(ctx context.Context, ev models.BookingEvent) error
}

type Notifier interface {
	Notify(ctx context.Context, userID string, n models.Notification) error
}

// Service books and cancels seats. Verifier, Publisher and Notifier are
// optional.
type Service struct {
	Backend   Backend
	Verifier  Verifier
	Publisher Publisher
	Notifier  Notifier
	Logger    *slog.Logger

	now func() time.Time
}

func NewService(v Verifier, p Publisher, n Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{Verifier: v, Publisher: p, Notifier: n, Logger: logger, now: time.Now}
}

// WithBackend returns a copy of s acting for the session behind b.
func (s *Service) WithBackend(b Backend) *Service {
	c := *s
	c.Backend = b
	return &c
}

// eligible loads the ride and the caller and refuses bookings the backend
// would reject anyway.
func (s *Service) eligible(ctx context.Context, rideID string) (models.Ride, string, error) {
	ride, err := s.Backend.Ride(ctx, rideID)
	if err != nil {
		return models.Ride{}, "", err
	}
	uid, err := s.Backend.UserID(ctx)
	if err != nil {
		return models.Ride{}, "", err
	}
	switch {
	case ride.OwnerID == uid:
		return ride, uid, ErrOwnRide
	case ride.HasPassenger(uid):
		return ride, uid, ErrAlreadyPassenger
	case ride.Full():
		return ride, uid, ErrRideFull
	case !ride.CostKnown():
		return ride, uid, ErrUnpriced
	}
	return ride, uid, nil
}

// PaymentSheet prepares a payment for one seat at the ride's cost.
func (s *Service) PaymentSheet(ctx context.Context, rideID string) (models.PaymentSheet, error) {
	ride, _, err := s.eligible(ctx, rideID)
	if err != nil {
		return models.PaymentSheet{}, err
	}
	sheet, err := s.Backend.PaymentSheet(ctx, ride.ID, ride.Cost, false)
	if err != nil {
		return models.PaymentSheet{}, err
	}
	if s.Verifier != nil {
		sheet.PublishableKey = s.Verifier.PublishableKey()
	}
	return sheet, nil
}

// Confirm joins the caller to the ride once the payment behind clientSecret
// went through.
func (s *Service) Confirm(ctx context.Context, rideID, clientSecret string) (models.BookingEvent, error) {
	ride, uid, err := s.eligible(ctx, rideID)
	if err != nil {
		return models.BookingEvent{}, err
	}

	var intentID string
	if s.Verifier != nil {
		in, err := s.Verifier.Verify(ctx, clientSecret)
		if err != nil {
			return models.BookingEvent{}, err
		}
		if in.Amount < payments.Cents(ride.Cost) {
			return models.BookingEvent{}, fmt.Errorf("%w: paid %d, want %d", ErrAmountMismatch, in.Amount, payments.Cents(ride.Cost))
		}
		intentID = in.ID
	} else {
		if intentID, err = payments.IntentID(clientSecret); err != nil {
			return models.BookingEvent{}, err
		}
		s.Logger.Warn("payment not verified, no stripe key configured", "ride_id", rideID)
	}

	rr := api.RideRequest{RideID: ride.ID, Amount: api.FormatAmount(ride.Cost), CardToken: intentID}
	if err := s.Backend.RequestRide(ctx, rr); err != nil {
		return models.BookingEvent{}, err
	}
	observability.BookingsTotal.Inc()

	ev := models.BookingEvent{
		EventID:         uuid.NewString(),
		RideID:          ride.ID,
		PassengerID:     uid,
		DriverID:        ride.OwnerID,
		From:            ride.From,
		To:              ride.To,
		Date:            ride.Date,
		DepartureTime:   ride.DepartureTime,
		Amount:          ride.Cost,
		PaymentIntentID: intentID,
		BookedAt:        s.now().UTC(),
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishBooking(ctx, ev); err != nil {
			s.Logger.Error("publish booking failed", "ride_id", ev.RideID, "event_id", ev.EventID, "error", err)
		}
	}
	s.notify(ctx, ride.OwnerID, models.Notification{
		Type:    "ride_booked",
		RideID:  ride.ID,
		Message: fmt.Sprintf("A passenger has booked a ride with you.\nFrom: %s\nTo: %s", ride.From, ride.To),
		At:      ev.BookedAt,
	})
	s.notify(ctx, uid, models.Notification{
		Type:    "booking_confirmed",
		RideID:  ride.ID,
		Message: fmt.Sprintf("You are booked with %s.\nFrom: %s\nTo: %s", ride.OwnerName, ride.From, ride.To),
		At:      ev.BookedAt,
	})
	return ev, nil
}

// Cancel removes the caller from a ride they joined.
func (s *Service) Cancel(ctx context.Context, rideID string) error {
	ride, err := s.Backend.Ride(ctx, rideID)
	if err != nil {
		return err
	}
	uid, err := s.Backend.UserID(ctx)
	if err != nil {
		return err
	}
	if ride.OwnerID == uid {
		return ErrOwnRide
	}
	if !ride.HasPassenger(uid) {
		return ErrNotPassenger
	}
	if err := s.Backend.CancelRide(ctx, ride.ID); err != nil {
		return err
	}
	s.notify(ctx, ride.OwnerID, models.Notification{
		Type:    "ride_cancelled",
		RideID:  ride.ID,
		Message: fmt.Sprintf("A passenger has cancelled a ride with you.\nFrom: %s\nTo: %s", ride.From, ride.To),
		At:      s.now().UTC(),
	})
	return nil
}

func (s *Service) notify(ctx context.Context, userID string, n models.Notification) {
	if s.Notifier == nil || userID == "" {
		return
	}
	if err := s.Notifier.Notify(ctx, userID, n); err != nil {
		s.Logger.Info("notification not delivered", "user_id", userID, "type", n.Type, "error", err)
	}
}
