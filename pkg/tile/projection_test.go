package tile

import (
	"math"
	"testing"

	"github.com/paulmach/orb/maptile"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestProjectDateline(t *testing.T) {
	for zoom := maptile.Zoom(0); zoom <= 18; zoom++ {
		x, y := Project(0, -180, zoom)
		n := math.Exp2(float64(zoom))

		if !almostEqual(x, 0) {
			t.Errorf("zoom %d: x = %g, want 0", zoom, x)
		}
		if !almostEqual(y, n/2) {
			t.Errorf("zoom %d: y = %g, want %g", zoom, y, n/2)
		}
	}
}

func TestProjectOrigin(t *testing.T) {
	for zoom := maptile.Zoom(0); zoom <= 18; zoom++ {
		x, y := Project(0, 0, zoom)
		n := math.Exp2(float64(zoom))

		if !almostEqual(x, n/2) || !almostEqual(y, n/2) {
			t.Errorf("zoom %d: got (%g, %g), want (%g, %g)", zoom, x, y, n/2, n/2)
		}
	}
}

func TestProjectMonotonicInLongitude(t *testing.T) {
	prev := math.Inf(-1)
	for lon := -180.0; lon <= 180.0; lon += 7.5 {
		x, _ := Project(35.0, lon, 10)
		if x <= prev {
			t.Fatalf("x not increasing at lon %g: %g <= %g", lon, x, prev)
		}
		prev = x
	}
}

func TestProjectYIncreasesSouthward(t *testing.T) {
	_, yNorth := Project(50, 0, 10)
	_, ySouth := Project(-50, 0, 10)

	if ySouth <= yNorth {
		t.Errorf("tile y must grow southward: south %g <= north %g", ySouth, yNorth)
	}
}

func TestUnprojectRoundTrip(t *testing.T) {
	coords := []struct{ lat, lon float64 }{
		{29.4225, -98.49},
		{52.52, 13.405},
		{-33.86, 151.21},
		{0, 0},
	}

	for _, c := range coords {
		x, y := Project(c.lat, c.lon, 14)
		lat, lon := Unproject(x, y, 14)

		if math.Abs(lat-c.lat) > 1e-6 || math.Abs(lon-c.lon) > 1e-6 {
			t.Errorf("round trip (%g, %g) -> (%g, %g)", c.lat, c.lon, lat, lon)
		}
	}
}
