// Package tilesource retrieves raster tile images from a Mapbox-style HTTP
// endpoint. Per-tile failures (network errors, non-2xx responses, undecodable
// payloads, wrong dimensions) are folded into a Missing result rather than
// raised, so one bad tile never aborts a stitch.
package tilesource

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/maptile"
)

// Result is the per-tile fetch outcome.
type Result struct {
	Tile maptile.Tile
	Img  image.Image
	Err  error
}

// Missing reports whether the tile could not be retrieved or decoded.
func (r Result) Missing() bool { return r.Err != nil }

// Fetcher retrieves one tile image. Implementations must report ordinary
// retrieval failures through the Result, not panic or abort.
type Fetcher interface {
	Fetch(ctx context.Context, t maptile.Tile) Result
}

// Options configures a MapboxSource.
type Options struct {
	BaseURL     string // style API root, e.g. https://api.mapbox.com/styles/v1
	StyleID     string // "username/style_id"
	AccessToken string
	TileSize    int           // delivered tile edge in pixels (@2x upscale)
	CacheDir    string        // on-disk tile cache; empty disables it
	Timeout     time.Duration // per-tile request timeout
	UserAgent   string
}

// MapboxSource fetches raster tiles over HTTP with a read-through,
// best-effort on-disk cache keyed by zoom/x/y.
type MapboxSource struct {
	client *http.Client
	opts   Options
}

// NewMapboxSource creates a tile source for the Mapbox raster tiles API.
func NewMapboxSource(opts Options) *MapboxSource {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mapsnap/1.0.0"
	}
	return &MapboxSource{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// URL builds the tile request URL. The tilesize query parameter is the
// source pixel size; the server upscales @2x to the delivered TileSize.
func (s *MapboxSource) URL(t maptile.Tile) string {
	return fmt.Sprintf("%s/%s/tiles/%d/%d/%d@2x?access_token=%s&tilesize=%d",
		s.opts.BaseURL, s.opts.StyleID, t.Z, t.X, t.Y,
		url.QueryEscape(s.opts.AccessToken), s.opts.TileSize/2)
}

// Fetch retrieves one tile, preferring the on-disk cache. All retrieval
// failures are returned as a Missing result.
func (s *MapboxSource) Fetch(ctx context.Context, t maptile.Tile) Result {
	if img, ok := s.readCache(t); ok {
		return Result{Tile: t, Img: img}
	}

	data, err := s.download(ctx, t)
	if err != nil {
		return Result{Tile: t, Err: err}
	}

	img, err := decodeTile(data)
	if err != nil {
		return Result{Tile: t, Err: fmt.Errorf("decode: %w", err)}
	}

	b := img.Bounds()
	if b.Dx() != s.opts.TileSize || b.Dy() != s.opts.TileSize {
		return Result{Tile: t, Err: fmt.Errorf("got %dx%d tile, expected %d", b.Dx(), b.Dy(), s.opts.TileSize)}
	}

	s.writeCache(t, img)
	return Result{Tile: t, Img: img}
}

func (s *MapboxSource) download(ctx context.Context, t maptile.Tile) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL(t), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func (s *MapboxSource) cachePath(t maptile.Tile) string {
	return filepath.Join(s.opts.CacheDir, fmt.Sprintf("%d_%d_%d.png", t.Z, t.X, t.Y))
}

func (s *MapboxSource) readCache(t maptile.Tile) (image.Image, bool) {
	if s.opts.CacheDir == "" {
		return nil, false
	}

	f, err := os.Open(s.cachePath(t))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		// Stale or truncated entry; refetch instead.
		return nil, false
	}
	return img, true
}

// writeCache persists the tile so overlapping runs avoid refetching.
// Failures are logged and ignored; the in-memory stitch is unaffected.
func (s *MapboxSource) writeCache(t maptile.Tile, img image.Image) {
	if s.opts.CacheDir == "" {
		return
	}

	if err := os.MkdirAll(s.opts.CacheDir, 0o755); err != nil {
		slog.Warn("tile cache unavailable", "dir", s.opts.CacheDir, "error", err)
		return
	}

	f, err := os.Create(s.cachePath(t))
	if err != nil {
		slog.Warn("tile cache write failed", "tile", t, "error", err)
		return
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		slog.Warn("tile cache encode failed", "tile", t, "error", err)
	}
}

// decodeTile sniffs the magic bytes before decoding, falling back to the
// registered-format decoder for anything else.
func decodeTile(data []byte) (image.Image, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}) {
		return png.Decode(bytes.NewReader(data))
	}
	if len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xD8}) {
		return jpeg.Decode(bytes.NewReader(data))
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
