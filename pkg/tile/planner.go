package tile

import (
	"image"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// CropRect is the sub-region of a stitched canvas, in fractional pixels,
// corresponding exactly to the requested bounding box.
type CropRect struct {
	Left, Top, Right, Bottom float64
}

// Width returns the fractional pixel width of the crop region.
func (c CropRect) Width() float64 { return c.Right - c.Left }

// Height returns the fractional pixel height of the crop region.
func (c CropRect) Height() float64 { return c.Bottom - c.Top }

// Rect truncates all four edges toward zero, matching the reference
// behavior pixel for pixel.
func (c CropRect) Rect() image.Rectangle {
	return image.Rect(int(c.Left), int(c.Top), int(c.Right), int(c.Bottom))
}

// GridPlan is the integer tile range covering a bounding box at one zoom
// level, plus the pixel-space crop rectangle that trims the tile-aligned
// excess. Tile indices span [X0,X1) × [Y0,Y1).
type GridPlan struct {
	X0, X1, Y0, Y1 int
	Zoom           maptile.Zoom
	TileSize       int
	Crop           CropRect
}

// Plan computes the smallest tile grid fully containing bound at the given
// zoom, and the crop rectangle for the exact bounds. Tile y grows southward,
// so the top edge of the crop comes from the northern latitude (bound.Max.Y)
// and the bottom from the southern one.
//
// Degenerate (zero-area) bounds still yield a valid one-tile plan with an
// empty crop; callers validate their boxes before planning.
func Plan(bound orb.Bound, zoom maptile.Zoom, tileSize int) GridPlan {
	xMin, yMax := Project(bound.Min.Y(), bound.Min.X(), zoom)
	xMax, yMin := Project(bound.Max.Y(), bound.Max.X(), zoom)

	x0 := int(math.Floor(xMin))
	x1 := int(math.Ceil(xMax))
	y0 := int(math.Floor(yMin))
	y1 := int(math.Ceil(yMax))

	// A point or line box still occupies one tile.
	if x1 == x0 {
		x1 = x0 + 1
	}
	if y1 == y0 {
		y1 = y0 + 1
	}

	ts := float64(tileSize)
	return GridPlan{
		X0:       x0,
		X1:       x1,
		Y0:       y0,
		Y1:       y1,
		Zoom:     zoom,
		TileSize: tileSize,
		Crop: CropRect{
			Left:   (xMin - float64(x0)) * ts,
			Right:  (xMax - float64(x0)) * ts,
			Top:    (yMin - float64(y0)) * ts,
			Bottom: (yMax - float64(y0)) * ts,
		},
	}
}

// Columns returns the grid width in tiles.
func (p GridPlan) Columns() int { return p.X1 - p.X0 }

// Rows returns the grid height in tiles.
func (p GridPlan) Rows() int { return p.Y1 - p.Y0 }

// TileCount returns the total number of tiles in the grid.
func (p GridPlan) TileCount() int { return p.Columns() * p.Rows() }

// CanvasBounds returns the pixel bounds of the stitched canvas.
func (p GridPlan) CanvasBounds() image.Rectangle {
	return image.Rect(0, 0, p.Columns()*p.TileSize, p.Rows()*p.TileSize)
}

// Tiles enumerates the covering grid row-major.
func (p GridPlan) Tiles() []maptile.Tile {
	tiles := make([]maptile.Tile, 0, p.TileCount())
	for y := p.Y0; y < p.Y1; y++ {
		for x := p.X0; x < p.X1; x++ {
			tiles = append(tiles, maptile.New(uint32(x), uint32(y), p.Zoom))
		}
	}
	return tiles
}

// TileRect returns the exclusive canvas rectangle owned by t. No two tiles
// of the same plan overlap, which is what makes concurrent pasting safe.
func (p GridPlan) TileRect(t maptile.Tile) image.Rectangle {
	x := (int(t.X) - p.X0) * p.TileSize
	y := (int(t.Y) - p.Y0) * p.TileSize
	return image.Rect(x, y, x+p.TileSize, y+p.TileSize)
}
