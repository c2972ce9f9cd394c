// Package polyline implements Google's encoded polyline format: an ordered
// coordinate sequence stored as zig-zag, base-32, delta-encoded ASCII.
package polyline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/example/roadbuddy/internal/models"
)

// ErrMalformed is wrapped by every decode failure.
var ErrMalformed = errors.New("malformed polyline")

const (
	precision = 1e5

	minChar  = '?' // 63, the offset every encoded byte carries
	maxChar  = '~' // 63 + 0x3f
	contBit  = 0x20
	dataMask = 0x1f

	// A zig-zag encoded 32-bit value needs at most 7 groups of 5 bits.
	maxShift = 30
)

// Decode converts an encoded polyline into coordinates in input order.
// The empty string decodes to an empty, non-nil slice.
func Decode(encoded string) ([]models.Coord, error) {
	points := make([]models.Coord, 0, len(encoded)/4)
	var lat, lon int64
	i := 0
	for i < len(encoded) {
		dLat, next, err := readValue(encoded, i)
		if err != nil {
			return nil, err
		}
		if next >= len(encoded) {
			return nil, fmt.Errorf("%w: point %d has no longitude", ErrMalformed, len(points))
		}
		dLon, next, err := readValue(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next

		lat += dLat
		lon += dLon
		points = append(points, models.Coord{
			Lat: float64(lat) / precision,
			Lon: float64(lon) / precision,
		})
	}
	return points, nil
}

// readValue consumes one variable-length value starting at offset i and
// returns the signed delta together with the offset just past it.
func readValue(s string, i int) (int64, int, error) {
	var result uint64
	var shift uint
	for {
		if i >= len(s) {
			return 0, i, fmt.Errorf("%w: truncated value at offset %d", ErrMalformed, i)
		}
		c := s[i]
		if c < minChar || c > maxChar {
			return 0, i, fmt.Errorf("%w: invalid byte %q at offset %d", ErrMalformed, c, i)
		}
		b := uint64(c - minChar)
		i++
		result |= (b & dataMask) << shift
		if b < contBit {
			break
		}
		shift += 5
		if shift > maxShift {
			return 0, i, fmt.Errorf("%w: value too long at offset %d", ErrMalformed, i)
		}
	}
	if result > math.MaxUint32 {
		return 0, i, fmt.Errorf("%w: value overflows 32 bits at offset %d", ErrMalformed, i)
	}
	v := int64(result >> 1)
	if result&1 != 0 {
		v = ^v
	}
	return v, i, nil
}

// Encode is the inverse of Decode. Coordinates are rounded to 1e-5 degrees.
func Encode(points []models.Coord) string {
	var sb strings.Builder
	sb.Grow(len(points) * 8)
	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * precision))
		lon := int64(math.Round(p.Lon * precision))
		writeValue(&sb, lat-prevLat)
		writeValue(&sb, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return sb.String()
}

func writeValue(sb *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= contBit {
		sb.WriteByte(byte((contBit | (u & dataMask)) + minChar))
		u >>= 5
	}
	sb.WriteByte(byte(u + minChar))
}
