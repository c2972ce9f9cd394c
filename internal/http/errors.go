package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/roadbuddy/internal/api"
	"github.com/example/roadbuddy/internal/booking"
	"github.com/example/roadbuddy/internal/directions"
	"github.com/example/roadbuddy/internal/identity"
	"github.com/example/roadbuddy/internal/payments"
	"github.com/example/roadbuddy/internal/polyline"
)

// errorBody matches the backend's error shape.
type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials), errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, identity.ErrUserDisabled):
		return http.StatusForbidden
	case errors.Is(err, identity.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, api.ErrNotFound), errors.Is(err, directions.ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, api.ErrBadRequest), errors.Is(err, directions.ErrMissingAddress),
		errors.Is(err, payments.ErrInvalidSecret):
		return http.StatusBadRequest
	case errors.Is(err, booking.ErrRideFull), errors.Is(err, booking.ErrOwnRide),
		errors.Is(err, booking.ErrAlreadyPassenger), errors.Is(err, booking.ErrNotPassenger),
		errors.Is(err, booking.ErrUnpriced):
		return http.StatusConflict
	case errors.Is(err, payments.ErrNotPaid), errors.Is(err, booking.ErrAmountMismatch):
		return http.StatusPaymentRequired
	case errors.Is(err, polyline.ErrMalformed):
		return http.StatusBadGateway
	}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		body = errorBody{Error: apiErr.Message, Details: apiErr.Details}
	}
	if status >= 500 {
		s.logger.Error("request failed", "route", routeTemplate(r), "request_id", requestID(r.Context()), "error", err)
		if status == http.StatusInternalServerError {
			body = errorBody{Error: "internal error"}
		}
	}
	writeJSON(w, status, body)
}

func writeJSONError(w http.ResponseWriter, status int, msg, details string) {
	writeJSON(w, status, errorBody{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decode reads a JSON body into v, answering 400 itself on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON payload", err.Error())
		return false
	}
	return true
}
