// Package rides orders and filters ride listings for display.
package rides

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/example/roadbuddy/internal/models"
)

// SortKey selects the ride field that determines ordering.
type SortKey string

const (
	ByID          SortKey = "id"
	ByOrigin      SortKey = "from"
	ByDestination SortKey = "to"
	ByDeparture   SortKey = "departure"
	ByCost        SortKey = "cost"
	ByCapacity    SortKey = "maxPassengers"
	ByDriver      SortKey = "ownerName"
	ByDate        SortKey = "default"
)

// Keys lists the recognised sort keys.
func Keys() []SortKey {
	return []SortKey{ByID, ByOrigin, ByDestination, ByDeparture, ByCost, ByCapacity, ByDriver, ByDate}
}

// Compare orders two rides; negative means a sorts first.
type Compare func(a, b models.Ride) int

// Comparator returns the comparison for key. Unknown keys, the empty key
// included, get the default date+departure ordering. A returned Compare
// holds no mutable state and may be shared across goroutines.
func Comparator(key SortKey) Compare {
	switch key {
	case ByID:
		return byText(func(r models.Ride) string { return r.ID })
	case ByOrigin:
		return byText(func(r models.Ride) string { return r.From })
	case ByDestination:
		return byText(func(r models.Ride) string { return r.To })
	case ByDriver:
		return byText(func(r models.Ride) string { return r.OwnerName })
	case ByDeparture:
		return func(a, b models.Ride) int {
			return compareInstant(parseInstant(a.DepartureTime), parseInstant(b.DepartureTime))
		}
	case ByCost:
		return func(a, b models.Ride) int { return compareAmount(a.Cost, b.Cost) }
	case ByCapacity:
		return func(a, b models.Ride) int { return cmp.Compare(a.MaxPassengers, b.MaxPassengers) }
	default:
		return byDefault
	}
}

// Sort returns a new slice holding list ordered by key. Rides with equal
// keys keep their relative order. list is not modified.
func Sort(list []models.Ride, key SortKey) []models.Ride {
	out := slices.Clone(list)
	SortInPlace(out, key)
	return out
}

// SortInPlace is Sort for callers that own the slice.
func SortInPlace(list []models.Ride, key SortKey) {
	slices.SortStableFunc(list, Comparator(key))
}

func byDefault(a, b models.Ride) int {
	return compareInstant(rideInstant(a), rideInstant(b))
}

// byText compares with locale-aware collation and breaks collation ties
// bytewise, which keeps the order total.
func byText(field func(models.Ride) string) Compare {
	return func(a, b models.Ride) int {
		x, y := field(a), field(b)
		col := collators.Get().(*collate.Collator)
		c := col.CompareString(x, y)
		collators.Put(col)
		if c != 0 {
			return c
		}
		return strings.Compare(x, y)
	}
}

// A *collate.Collator keeps scratch buffers, so each comparison borrows one.
var collators = sync.Pool{New: func() any { return collate.New(language.English) }}

// compareAmount sorts NaN after every number.
func compareAmount(a, b float64) int {
	an, bn := math.IsNaN(a), math.IsNaN(b)
	switch {
	case an && bn:
		return 0
	case an:
		return 1
	case bn:
		return -1
	}
	return cmp.Compare(a, b)
}
