package tile

import (
	"image"
	"testing"

	"github.com/paulmach/orb/maptile"
)

var testBoxes = []BoundingBox{
	{MinLat: 29.4115, MinLon: -98.5055, MaxLat: 29.4335, MaxLon: -98.4790},
	{MinLat: 52.3, MinLon: 13.0, MaxLat: 52.7, MaxLon: 13.8},
	{MinLat: -34.0, MinLon: 150.9, MaxLat: -33.7, MaxLon: 151.3},
	{MinLat: -1.0, MinLon: -1.0, MaxLat: 1.0, MaxLon: 1.0},
}

func TestPlanCoversFractionalBox(t *testing.T) {
	for _, bbox := range testBoxes {
		for _, zoom := range []maptile.Zoom{3, 10, 14} {
			plan := Plan(bbox.Bound(), zoom, 1024)

			xMin, yMax := Project(bbox.MinLat, bbox.MinLon, zoom)
			xMax, yMin := Project(bbox.MaxLat, bbox.MaxLon, zoom)

			if float64(plan.X0) > xMin || float64(plan.X1) < xMax {
				t.Errorf("zoom %d bbox %+v: x range [%d,%d) misses [%g,%g]",
					zoom, bbox, plan.X0, plan.X1, xMin, xMax)
			}
			if float64(plan.Y0) > yMin || float64(plan.Y1) < yMax {
				t.Errorf("zoom %d bbox %+v: y range [%d,%d) misses [%g,%g]",
					zoom, bbox, plan.Y0, plan.Y1, yMin, yMax)
			}
		}
	}
}

func TestPlanCropWithinCanvas(t *testing.T) {
	const tileSize = 1024

	for _, bbox := range testBoxes {
		plan := Plan(bbox.Bound(), 14, tileSize)
		crop := plan.Crop

		if crop.Left < 0 || crop.Left >= crop.Right {
			t.Errorf("bbox %+v: bad horizontal crop [%g,%g]", bbox, crop.Left, crop.Right)
		}
		if crop.Right > float64(plan.Columns()*tileSize) {
			t.Errorf("bbox %+v: crop right %g outside canvas width %d",
				bbox, crop.Right, plan.Columns()*tileSize)
		}
		if crop.Top < 0 || crop.Top >= crop.Bottom {
			t.Errorf("bbox %+v: bad vertical crop [%g,%g]", bbox, crop.Top, crop.Bottom)
		}
		if crop.Bottom > float64(plan.Rows()*tileSize) {
			t.Errorf("bbox %+v: crop bottom %g outside canvas height %d",
				bbox, crop.Bottom, plan.Rows()*tileSize)
		}
	}
}

func TestPlanSanAntonio(t *testing.T) {
	bbox := BoundingBox{MinLat: 29.4115, MinLon: -98.5055, MaxLat: 29.4335, MaxLon: -98.4790}
	plan := Plan(bbox.Bound(), 14, 1024)

	if plan.Columns() < 1 || plan.Rows() < 1 {
		t.Fatalf("grid %dx%d, want at least 1x1", plan.Columns(), plan.Rows())
	}
	if plan.Crop.Width() <= 0 || plan.Crop.Height() <= 0 {
		t.Fatalf("crop %gx%g, want positive dimensions", plan.Crop.Width(), plan.Crop.Height())
	}

	// Final image dimensions follow truncation toward zero on all edges.
	rect := plan.Crop.Rect()
	wantW := int(plan.Crop.Right) - int(plan.Crop.Left)
	wantH := int(plan.Crop.Bottom) - int(plan.Crop.Top)
	if rect.Dx() != wantW || rect.Dy() != wantH {
		t.Errorf("crop rect %dx%d, want %dx%d", rect.Dx(), rect.Dy(), wantW, wantH)
	}
}

func TestPlanYInversion(t *testing.T) {
	bbox := BoundingBox{MinLat: 29.4115, MinLon: -98.5055, MaxLat: 29.4335, MaxLon: -98.4790}
	plan := Plan(bbox.Bound(), 14, 1024)

	// The northern edge (max lat) maps to the smaller tile y.
	_, yNorth := Project(bbox.MaxLat, bbox.MinLon, 14)
	if int(yNorth) != plan.Y0 {
		t.Errorf("north edge tile row %d, want Y0 %d", int(yNorth), plan.Y0)
	}
}

func TestPlanDegenerateBox(t *testing.T) {
	point := BoundingBox{MinLat: 29.42, MinLon: -98.49, MaxLat: 29.42, MaxLon: -98.49}
	plan := Plan(point.Bound(), 14, 1024)

	if plan.Columns() < 1 || plan.Rows() < 1 {
		t.Errorf("degenerate box must still occupy a tile, got %dx%d", plan.Columns(), plan.Rows())
	}
	if plan.Crop.Width() != 0 || plan.Crop.Height() != 0 {
		t.Errorf("degenerate box crop %gx%g, want 0x0", plan.Crop.Width(), plan.Crop.Height())
	}
}

func TestTileRectsAreDisjoint(t *testing.T) {
	bbox := BoundingBox{MinLat: 52.3, MinLon: 13.0, MaxLat: 52.7, MaxLon: 13.8}
	plan := Plan(bbox.Bound(), 10, 256)

	tiles := plan.Tiles()
	if len(tiles) != plan.TileCount() {
		t.Fatalf("enumerated %d tiles, want %d", len(tiles), plan.TileCount())
	}

	canvas := plan.CanvasBounds()
	seen := make(map[image.Rectangle]bool)
	for _, tl := range tiles {
		rect := plan.TileRect(tl)
		if !rect.In(canvas) {
			t.Errorf("tile %v rect %v outside canvas %v", tl, rect, canvas)
		}
		if seen[rect] {
			t.Errorf("tile %v rect %v reused", tl, rect)
		}
		seen[rect] = true

		for other := range seen {
			if other != rect && rect.Overlaps(other) {
				t.Errorf("rects %v and %v overlap", rect, other)
			}
		}
	}
}
