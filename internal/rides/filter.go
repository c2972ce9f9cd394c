package rides

import (
	"strings"
	"time"

	"github.com/example/roadbuddy/internal/models"
)

// Search keeps rides whose origin, destination or driver name contains
// query, ignoring case. An empty query keeps everything.
func Search(list []models.Ride, query string) []models.Ride {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Ride, 0, len(list))
	for _, r := range list {
		if q == "" ||
			strings.Contains(strings.ToLower(r.From), q) ||
			strings.Contains(strings.ToLower(r.To), q) ||
			strings.Contains(strings.ToLower(r.OwnerName), q) {
			out = append(out, r)
		}
	}
	return out
}

// Upcoming returns the rides departing at or after now in default order.
// Rides whose date or time cannot be read are kept, at the end.
func Upcoming(list []models.Ride, now time.Time) []models.Ride {
	out := make([]models.Ride, 0, len(list))
	for _, r := range list {
		in := rideInstant(r)
		if in.ok && in.t.Before(now) {
			continue
		}
		out = append(out, r)
	}
	SortInPlace(out, ByDate)
	return out
}
