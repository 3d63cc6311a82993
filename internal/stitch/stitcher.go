// Package stitch assembles the tile acquisition pipeline: plan the covering
// grid for a bounding box, fetch every tile through a bounded worker pool,
// paste successes into a shared canvas, then crop and optionally rescale.
package stitch

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/errgroup"

	"github.com/mapsnap/mapsnap/internal/tilesource"
	"github.com/mapsnap/mapsnap/pkg/tile"
)

// Upper bound on the stitched canvas before allocation.
const maxCanvasPixels = 10000 * 10000

// ErrCanvasTooLarge is returned when the planned canvas exceeds the size limit.
var ErrCanvasTooLarge = fmt.Errorf("requested region exceeds %d pixels", maxCanvasPixels)

// ProgressFunc reports tiles completed out of total. It may be called from
// multiple goroutines.
type ProgressFunc func(done, total int)

// Options contains the stitching parameters.
type Options struct {
	Zoom        maptile.Zoom
	TileSize    int
	Scale       float64 // uniform rescale of the cropped output; 1.0 is a no-op
	Concurrency int
	OnProgress  ProgressFunc
}

// Report summarizes one stitch operation. Missing tiles are non-fatal: the
// corresponding canvas regions stay at the default (transparent) fill.
type Report struct {
	Missing []maptile.Tile
	Fetched int
	Total   int
}

// Stitcher downloads and composites tiles for bounding boxes.
type Stitcher struct {
	source tilesource.Fetcher
	opts   Options
}

// New creates a stitcher. Zero-value options fall back to a scale of 1.0 and
// four fetch workers.
func New(source tilesource.Fetcher, opts Options) *Stitcher {
	if opts.Scale == 0 {
		opts.Scale = 1.0
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Stitcher{source: source, opts: opts}
}

// Stitch fetches every tile covering bbox, composites them, and returns the
// image cropped to the exact bounds along with a report of missing tiles.
// Per-tile failures never abort the operation; only context cancellation or
// an oversized plan do.
func (s *Stitcher) Stitch(ctx context.Context, bbox tile.BoundingBox) (*image.NRGBA, *Report, error) {
	if err := bbox.Validate(); err != nil {
		return nil, nil, err
	}

	plan := tile.Plan(bbox.Bound(), s.opts.Zoom, s.opts.TileSize)

	bounds := plan.CanvasBounds()
	if int64(bounds.Dx())*int64(bounds.Dy()) > maxCanvasPixels {
		return nil, nil, ErrCanvasTooLarge
	}

	slog.Info("stitching region",
		"zoom", plan.Zoom,
		"grid", fmt.Sprintf("%dx%d", plan.Columns(), plan.Rows()),
		"canvas", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()))

	canvas := image.NewNRGBA(bounds)
	total := plan.TileCount()

	var (
		mu      sync.Mutex
		missing []maptile.Tile
		done    atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)

	for _, t := range plan.Tiles() {
		t := t
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			res := s.source.Fetch(gctx, t)
			if res.Missing() {
				slog.Warn("missing tile", "z", t.Z, "x", t.X, "y", t.Y, "error", res.Err)
				mu.Lock()
				missing = append(missing, t)
				mu.Unlock()
			} else {
				// Each tile owns a disjoint rectangle of the canvas, so
				// workers paste without holding a lock.
				draw.Draw(canvas, plan.TileRect(t), res.Img, res.Img.Bounds().Min, draw.Src)
			}

			if s.opts.OnProgress != nil {
				s.opts.OnProgress(int(done.Add(1)), total)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	report := &Report{
		Missing: missing,
		Fetched: total - len(missing),
		Total:   total,
	}

	out := imaging.Crop(canvas, plan.Crop.Rect())

	if s.opts.Scale != 1.0 {
		w := int(math.Round(float64(out.Bounds().Dx()) * s.opts.Scale))
		h := int(math.Round(float64(out.Bounds().Dy()) * s.opts.Scale))
		out = imaging.Resize(out, w, h, imaging.Lanczos)
	}

	return out, report, nil
}

// SavePNG writes the final image losslessly. A failure here is fatal to the
// overall operation.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}
