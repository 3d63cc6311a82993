package tile

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Web mercator is undefined at the poles; tile servers stop here.
const MercatorLatLimit = 85.05112878

// ErrInvalidBounds is returned for bounding boxes with swapped or
// out-of-range corners.
var ErrInvalidBounds = errors.New("invalid bounding box")

// BoundingBox represents geographic bounds in degrees. MinLat/MinLon is the
// southwest corner, MaxLat/MaxLon the northeast corner.
type BoundingBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Validate rejects swapped corners and coordinates outside the web mercator
// domain. Swapped corners are never silently normalized.
func (b BoundingBox) Validate() error {
	if b.MinLat >= b.MaxLat {
		return fmt.Errorf("%w: min-lat %g must be less than max-lat %g", ErrInvalidBounds, b.MinLat, b.MaxLat)
	}
	if b.MinLon >= b.MaxLon {
		return fmt.Errorf("%w: min-lon %g must be less than max-lon %g", ErrInvalidBounds, b.MinLon, b.MaxLon)
	}
	if b.MinLat < -MercatorLatLimit || b.MaxLat > MercatorLatLimit {
		return fmt.Errorf("%w: latitude must be within ±%g", ErrInvalidBounds, MercatorLatLimit)
	}
	if b.MinLon < -180 || b.MaxLon > 180 {
		return fmt.Errorf("%w: longitude must be within ±180", ErrInvalidBounds)
	}
	return nil
}

// Bound converts to an orb.Bound (lon/lat point order).
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLon, b.MinLat},
		Max: orb.Point{b.MaxLon, b.MaxLat},
	}
}

// ParseBBox parses a "min-lat,min-lon,max-lat,max-lon" string.
func ParseBBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("%w: bbox must be 'min-lat,min-lon,max-lat,max-lon'", ErrInvalidBounds)
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("%w: bad coordinate %q", ErrInvalidBounds, p)
		}
		vals[i] = v
	}

	bbox := BoundingBox{MinLat: vals[0], MinLon: vals[1], MaxLat: vals[2], MaxLon: vals[3]}
	if err := bbox.Validate(); err != nil {
		return BoundingBox{}, err
	}
	return bbox, nil
}
