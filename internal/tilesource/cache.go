package tilesource

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/karlseguin/ccache/v3"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/sync/singleflight"
)

// CachingSource wraps a Fetcher with an in-memory LRU of decoded tiles and
// collapses concurrent fetches of the same tile into one upstream request.
// The serve path uses it so overlapping snapshot requests re-hitting the
// same tiles don't refetch them.
type CachingSource struct {
	inner    Fetcher
	cache    *ccache.Cache[image.Image]
	inflight singleflight.Group
	ttl      time.Duration
}

// NewCachingSource caches up to maxTiles decoded tiles for ttl.
func NewCachingSource(inner Fetcher, maxTiles int64, ttl time.Duration) *CachingSource {
	return &CachingSource{
		inner: inner,
		cache: ccache.New(ccache.Configure[image.Image]().MaxSize(maxTiles)),
		ttl:   ttl,
	}
}

// Fetch returns the cached tile when present, otherwise delegates to the
// wrapped source. Missing results are never cached; a later request may
// find the tile server recovered.
func (c *CachingSource) Fetch(ctx context.Context, t maptile.Tile) Result {
	key := fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)

	if item := c.cache.Get(key); item != nil && !item.Expired() {
		return Result{Tile: t, Img: item.Value()}
	}

	v, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		res := c.inner.Fetch(ctx, t)
		if res.Err != nil {
			return nil, res.Err
		}
		c.cache.Set(key, res.Img, c.ttl)
		return res.Img, nil
	})
	if err != nil {
		return Result{Tile: t, Err: err}
	}

	return Result{Tile: t, Img: v.(image.Image)}
}
