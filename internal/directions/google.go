package directions

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"googlemaps.github.io/maps"

	"github.com/example/roadbuddy/internal/models"
)

// GoogleClient looks routes up with the Google Maps Directions API.
type GoogleClient struct {
	maps *maps.Client
}

// NewGoogleClient builds a client against endpoint (the Maps API host).
// An empty endpoint uses Google's.
func NewGoogleClient(endpoint, key string) (*GoogleClient, error) {
	opts := []maps.ClientOption{
		maps.WithAPIKey(key),
		maps.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
	}
	if endpoint = strings.TrimRight(endpoint, "/"); endpoint != "" {
		opts = append(opts, maps.WithBaseURL(endpoint))
	}
	c, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("maps client: %w", err)
	}
	return &GoogleClient{maps: c}, nil
}

func coord(l maps.LatLng) models.Coord { return models.Coord{Lat: l.Lat, Lon: l.Lng} }

// Directions fetches the first driving route between two addresses.
func (g *GoogleClient) Directions(ctx context.Context, origin, destination string) (Directions, error) {
	routes, _, err := g.maps.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		if strings.Contains(err.Error(), "NOT_FOUND") {
			return Directions{}, fmt.Errorf("%w: %v", ErrNoRoute, err)
		}
		return Directions{}, fmt.Errorf("directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return Directions{}, fmt.Errorf("%w: empty route list", ErrNoRoute)
	}

	route := routes[0]
	legs := route.Legs
	d := Directions{
		Polyline:    route.OverviewPolyline.Points,
		Origin:      coord(legs[0].StartLocation),
		Destination: coord(legs[len(legs)-1].EndLocation),
	}
	for _, leg := range legs {
		d.DistanceMeters += float64(leg.Distance.Meters)
		d.DurationSeconds += leg.Duration.Seconds()
	}
	return d, nil
}
