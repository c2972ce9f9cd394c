package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/roadbuddy/internal/api"
	"github.com/example/roadbuddy/internal/booking"
	"github.com/example/roadbuddy/internal/dispatch"
	"github.com/example/roadbuddy/internal/identity"
	"github.com/example/roadbuddy/internal/models"
	"github.com/example/roadbuddy/internal/rides"
)

type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (identity.Session, error)
}

type RouteFinder interface {
	Route(ctx context.Context, origin, destination string) (models.Route, error)
}

// Deps are the collaborators the gateway is built from. Backend is a
// session-less client; each request gets a copy carrying its cookies.
type Deps struct {
	Backend     *api.Client
	Identity    Authenticator
	Directions  RouteFinder
	Booking     *booking.Service
	WS          *dispatch.WSRegistry
	DefaultSort rides.SortKey
	Logger      *slog.Logger
}

type Server struct {
	backend     *api.Client
	identity    Authenticator
	directions  RouteFinder
	booking     *booking.Service
	ws          *dispatch.WSRegistry
	defaultSort rides.SortKey
	logger      *slog.Logger
	now         func() time.Time
	mux         *mux.Router
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.WS == nil {
		d.WS = dispatch.NewWSRegistry(d.Logger)
	}
	if d.Booking == nil {
		d.Booking = booking.NewService(nil, nil, d.WS, d.Logger)
	}
	s := &Server{
		backend:     d.Backend,
		identity:    d.Identity,
		directions:  d.Directions,
		booking:     d.Booking,
		ws:          d.WS,
		defaultSort: d.DefaultSort,
		logger:      d.Logger,
		now:         time.Now,
		mux:         mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.mux.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	v1.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	v1.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	v1.HandleFunc("/rides", s.handleListRides).Methods(http.MethodGet)
	v1.HandleFunc("/rides", s.handlePostRide).Methods(http.MethodPost)
	v1.HandleFunc("/rides/upcoming", s.handleUpcoming).Methods(http.MethodGet)
	v1.HandleFunc("/rides/{id}", s.handleRide).Methods(http.MethodGet)
	v1.HandleFunc("/rides/{id}/route", s.handleRoute).Methods(http.MethodGet)
	v1.HandleFunc("/rides/{id}/payment-sheet", s.handlePaymentSheet).Methods(http.MethodPost)
	v1.HandleFunc("/rides/{id}/book", s.handleBook).Methods(http.MethodPost)
	v1.HandleFunc("/rides/{id}/cancel", s.handleCancel).Methods(http.MethodPost)
	v1.HandleFunc("/cars", s.handleAddCar).Methods(http.MethodPost)

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// session returns a backend client carrying the caller's cookies.
func (s *Server) session(r *http.Request) *api.Client {
	return s.backend.WithSession(r.Cookies())
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if !decode(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		writeJSONError(w, http.StatusBadRequest, "email and password are required", "")
		return
	}
	sess, err := s.identity.SignIn(r.Context(), in.Email, in.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	backend := s.backend.WithSession(nil)
	acct, err := backend.Authorize(r.Context(), sess.IDToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for _, c := range backend.SessionCookies() {
		http.SetCookie(w, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	}
	writeJSON(w, http.StatusOK, acct)
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in models.Signup
	if !decode(w, r, &in) {
		return
	}
	if err := s.session(r).Signup(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "account created"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).Logout(r.Context()); err != nil && !errors.Is(err, api.ErrUnauthorized) {
		s.writeError(w, r, err)
		return
	}
	for _, c := range r.Cookies() {
		http.SetCookie(w, &http.Cookie{Name: c.Name, Value: "", Path: "/", MaxAge: -1})
	}
	w.WriteHeader(http.StatusNoContent)
}

type rideList struct {
	Rides []models.Ride `json:"rides"`
	Sort  rides.SortKey `json:"sort"`
}

func (s *Server) handleListRides(w http.ResponseWriter, r *http.Request) {
	list, err := s.session(r).AvailableRides(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	key := rides.SortKey(r.URL.Query().Get("sort"))
	if key == "" {
		key = s.defaultSort
	}
	if q := r.URL.Query().Get("q"); q != "" {
		list = rides.Search(list, q)
	}
	rides.SortInPlace(list, key)
	if list == nil {
		list = []models.Ride{}
	}
	writeJSON(w, http.StatusOK, rideList{Rides: list, Sort: key})
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	list, err := s.session(r).ComingUpRides(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	list = rides.Upcoming(list, s.now())
	if list == nil {
		list = []models.Ride{}
	}
	writeJSON(w, http.StatusOK, rideList{Rides: list, Sort: rides.ByDate})
}

func (s *Server) handleRide(w http.ResponseWriter, r *http.Request) {
	ride, err := s.session(r).Ride(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	if s.directions == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "routing is not configured", "")
		return
	}
	ride, err := s.session(r).Ride(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	route, err := s.directions.Route(r.Context(), ride.From, ride.To)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

func (s *Server) handlePostRide(w http.ResponseWriter, r *http.Request) {
	var in models.NewRide
	if !decode(w, r, &in) {
		return
	}
	id, err := s.session(r).PostRide(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"rideId": id})
}

func (s *Server) handleAddCar(w http.ResponseWriter, r *http.Request) {
	var in models.Car
	if !decode(w, r, &in) {
		return
	}
	if err := s.session(r).AddCar(r.Context(), in); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "car added"})
}

func (s *Server) handlePaymentSheet(w http.ResponseWriter, r *http.Request) {
	sheet, err := s.booking.WithBackend(s.session(r)).PaymentSheet(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sheet)
}

type bookRequest struct {
	ClientSecret string `json:"clientSecret"`
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var in bookRequest
	if !decode(w, r, &in) {
		return
	}
	ev, err := s.booking.WithBackend(s.session(r)).Confirm(r.Context(), mux.Vars(r)["id"], in.ClientSecret)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.booking.WithBackend(s.session(r)).Cancel(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "ride cancelled"})
}

var upgrader = websocket.Upgrader{}

// handleWS attaches a device to the caller's notification stream. The
// session is checked with the backend before the upgrade.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	uid, err := s.session(r).UserID(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "user_id", uid, "error", err)
		return
	}
	sess := s.ws.Add(uid, conn)
	defer s.ws.Remove(uid, sess)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
