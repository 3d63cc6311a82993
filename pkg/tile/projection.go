package tile

import (
	"math"

	"github.com/paulmach/orb/maptile"
)

// Project converts lat/lon in degrees to fractional tile coordinates at the
// given zoom level using the spherical mercator projection.
// http://wiki.openstreetmap.org/wiki/Slippy_map_tilenames
//
// No bounds checking is applied; latitudes approaching ±90° diverge.
func Project(lat, lon float64, zoom maptile.Zoom) (x, y float64) {
	latRad := lat * math.Pi / 180
	n := math.Exp2(float64(zoom))

	x = (lon + 180) / 360 * n
	y = (1 - math.Log(math.Tan(latRad)+1/math.Cos(latRad))/math.Pi) / 2 * n

	return x, y
}

// Unproject converts fractional tile coordinates back to lat/lon degrees.
func Unproject(x, y float64, zoom maptile.Zoom) (lat, lon float64) {
	n := math.Exp2(float64(zoom))

	lon = x/n*360 - 180
	latRad := math.Atan(math.Sinh(math.Pi * (1 - 2*y/n)))
	lat = latRad * 180 / math.Pi

	return lat, lon
}
