package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoutesDecoded        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadbuddy", Name: "routes_decoded_total", Help: "Total route polylines decoded"})
	PolylineDecodeErrors = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadbuddy", Name: "polyline_decode_errors_total", Help: "Polylines rejected as malformed"})
	RouteCacheHits       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadbuddy", Name: "route_cache_hits_total", Help: "Route cache hits"})
	RouteCacheMisses     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadbuddy", Name: "route_cache_misses_total", Help: "Route cache misses"})
	BookingsTotal        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "roadbuddy", Name: "bookings_total", Help: "Rides booked through the gateway"})
	WSSessions           = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "roadbuddy", Name: "ws_sessions", Help: "Open websocket sessions"})

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roadbuddy", Name: "notifications_sent_total", Help: "Notifications delivered by channel"},
		[]string{"channel"},
	)
	RidesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roadbuddy", Name: "backend_rides_skipped_total", Help: "Rides dropped from a list because they did not decode"},
		[]string{"endpoint"},
	)
	BackendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roadbuddy",
			Name:      "backend_request_duration_seconds",
			Help:      "Latency of calls to the RoadBuddy backend",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "roadbuddy", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roadbuddy",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
