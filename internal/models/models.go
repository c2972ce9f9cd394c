package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Ride is a read-only snapshot of a ride as served by the backend.
// Date is YYYY-MM-DD; DepartureTime is whatever the driver typed.
type Ride struct {
	ID                string   `json:"id"`
	From              string   `json:"from"`
	To                string   `json:"to"`
	Date              string   `json:"date"`
	DepartureTime     string   `json:"departureTime"`
	Cost              float64  `json:"cost"`
	MaxPassengers     int      `json:"maxPassengers"`
	CurrentPassengers []string `json:"currentPassengers"`
	OwnerID           string   `json:"ownerID,omitempty"`
	OwnerName         string   `json:"ownerName"`
	Car               string   `json:"car,omitempty"`
	LicensePlate      string   `json:"licensePlate,omitempty"`
	Status            string   `json:"status,omitempty"` // open, closed
}

// UnmarshalJSON accepts cost and maxPassengers as JSON numbers or numeric
// strings; the backend stores form input without coercion. A cost that is
// null, blank, unreadable or not finite leaves the ride unpriced (NaN) rather
// than failing, so one bad ride cannot sink a whole list. A missing cost is 0.
func (r *Ride) UnmarshalJSON(b []byte) error {
	type rideAlias Ride
	aux := struct {
		*rideAlias
		Cost          json.RawMessage `json:"cost"`
		MaxPassengers json.RawMessage `json:"maxPassengers"`
	}{rideAlias: (*rideAlias)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	r.Cost = 0
	if len(aux.Cost) > 0 {
		cost, err := flexFloat(aux.Cost)
		if err != nil || cost == nil || math.IsInf(*cost, 0) || math.IsNaN(*cost) {
			r.Cost = math.NaN()
		} else {
			r.Cost = *cost
		}
	}
	maxp, err := flexFloat(aux.MaxPassengers)
	if err != nil {
		return fmt.Errorf("ride %s: maxPassengers: %w", r.ID, err)
	}
	r.MaxPassengers = 0
	if maxp != nil {
		n := *maxp
		switch {
		case n != math.Trunc(n):
			return fmt.Errorf("ride %s: maxPassengers: %v is not an integer", r.ID, n)
		case n < 0 || n > math.MaxInt32:
			return fmt.Errorf("ride %s: maxPassengers: %v out of range", r.ID, n)
		}
		r.MaxPassengers = int(n)
	}
	return nil
}

// MarshalJSON writes an unpriced ride's cost as null.
func (r Ride) MarshalJSON() ([]byte, error) {
	type rideAlias Ride
	aux := struct {
		rideAlias
		Cost *float64 `json:"cost"`
	}{rideAlias: rideAlias(r)}
	if r.CostKnown() {
		c := r.Cost
		aux.Cost = &c
	}
	return json.Marshal(aux)
}

// flexFloat reads a number or numeric string. Absent, null and blank values
// give nil.
func flexFloat(raw json.RawMessage) (*float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return nil, err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			return nil, nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// CostKnown is false for rides whose cost could not be read.
func (r Ride) CostKnown() bool {
	return !math.IsNaN(r.Cost) && !math.IsInf(r.Cost, 0)
}

// SeatsLeft never goes negative even if the backend overbooked.
func (r Ride) SeatsLeft() int {
	if n := r.MaxPassengers - len(r.CurrentPassengers); n > 0 {
		return n
	}
	return 0
}

func (r Ride) Full() bool { return r.SeatsLeft() == 0 }

func (r Ride) HasPassenger(userID string) bool {
	for _, p := range r.CurrentPassengers {
		if p == userID {
			return true
		}
	}
	return false
}

// NewRide is the post-ride payload. Field names follow the backend's form keys.
type NewRide struct {
	CarSelect     string  `json:"car_select"`
	LicensePlate  string  `json:"license_plate"`
	From          string  `json:"from"`
	To            string  `json:"to"`
	Date          string  `json:"date"`
	DepartureTime string  `json:"departure_time"`
	MaxPassengers int     `json:"max_passengers"`
	Cost          float64 `json:"cost"`
}

type Car struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	LicensePlate string `json:"licensePlate"`
	VIN          string `json:"vin"`
	Year         int    `json:"year"`
	Color        string `json:"color"`
	IsPrimary    bool   `json:"isPrimary"`
}

type Signup struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PaymentSheet carries what the hosted payment sheet needs on the device.
type PaymentSheet struct {
	PaymentIntent  string `json:"paymentIntent"` // client secret
	EphemeralKey   string `json:"ephemeralKey"`
	Customer       string `json:"customer"`
	PublishableKey string `json:"publishableKey,omitempty"`
	Amount         string `json:"amount,omitempty"`
}

// Region is a map viewport: a center and the span shown around it.
type Region struct {
	Center   Coord   `json:"center"`
	LatDelta float64 `json:"lat_delta"`
	LonDelta float64 `json:"lon_delta"`
}

type Route struct {
	Origin          Coord   `json:"origin"`
	Destination     Coord   `json:"destination"`
	Points          []Coord `json:"points"`
	Polyline        string  `json:"polyline"`
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds float64 `json:"duration_seconds"`
	Region          Region  `json:"region"`
}

// BookingEvent is published once a passenger has paid for and joined a ride.
type BookingEvent struct {
	EventID         string    `json:"event_id"`
	RideID          string    `json:"ride_id"`
	PassengerID     string    `json:"passenger_id"`
	DriverID        string    `json:"driver_id"`
	From            string    `json:"from"`
	To              string    `json:"to"`
	Date            string    `json:"date"`
	DepartureTime   string    `json:"departure_time"`
	Amount          float64   `json:"amount"`
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	BookedAt        time.Time `json:"booked_at"`
}

type Notification struct {
	Type    string    `json:"type"` // ride_booked, booking_confirmed, ride_cancelled
	RideID  string    `json:"ride_id"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}
