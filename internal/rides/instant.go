package rides

import (
	"strings"
	"time"

	"github.com/example/roadbuddy/internal/models"
)

// instant is a parsed point in time. A zero ok marks an unparseable value,
// which sorts after every parseable one.
type instant struct {
	t  time.Time
	ok bool
}

var absoluteLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T3:04 PM",
	"2006-01-02T3:04PM",
	"2006-01-02 3:04 PM",
	"2006-01-02 3:04PM",
}

var clockLayouts = []string{
	"15:04",
	"15:04:05",
	"3:04 PM",
	"3:04PM",
	"3 PM",
	"3PM",
}

const dateLayout = "2006-01-02"

// parseInstant reads an absolute date-time. Values without a zone are UTC.
func parseInstant(s string) instant {
	s = strings.TrimSpace(s)
	if s == "" {
		return instant{}
	}
	upper := strings.ToUpper(s)
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, upper, time.UTC); err == nil {
			return instant{t: t, ok: true}
		}
	}
	return instant{}
}

// rideInstant combines the ride's calendar date with its departure time.
// A departure time that is already absolute wins over the date.
func rideInstant(r models.Ride) instant {
	date := strings.TrimSpace(r.Date)
	clock := strings.TrimSpace(r.DepartureTime)
	if in := parseInstant(date + "T" + clock); in.ok {
		return in
	}
	if in := parseInstant(clock); in.ok {
		return in
	}
	day, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return instant{}
	}
	upper := strings.ToUpper(clock)
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, upper); err == nil {
			offset := time.Duration(c.Hour())*time.Hour + time.Duration(c.Minute())*time.Minute + time.Duration(c.Second())*time.Second
			return instant{t: day.Add(offset), ok: true}
		}
	}
	return instant{}
}

func compareInstant(a, b instant) int {
	switch {
	case a.ok && b.ok:
		return a.t.Compare(b.t)
	case a.ok:
		return -1
	case b.ok:
		return 1
	default:
		return 0
	}
}
