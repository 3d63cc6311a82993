package tilesource

import (
	"context"
	"errors"
	"image/color"
	"sync/atomic"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/paulmach/orb/maptile"
)

type fetcherFunc func(ctx context.Context, t maptile.Tile) Result

func (f fetcherFunc) Fetch(ctx context.Context, t maptile.Tile) Result { return f(ctx, t) }

func TestCachingSourceHit(t *testing.T) {
	var calls atomic.Int64
	img := imaging.New(testTileSize, testTileSize, color.NRGBA{G: 128, A: 255})

	inner := fetcherFunc(func(ctx context.Context, tl maptile.Tile) Result {
		calls.Add(1)
		return Result{Tile: tl, Img: img}
	})

	src := NewCachingSource(inner, 16, time.Minute)
	tl := maptile.New(1, 2, 3)

	for i := 0; i < 3; i++ {
		if res := src.Fetch(context.Background(), tl); res.Missing() {
			t.Fatalf("fetch %d failed: %v", i, res.Err)
		}
	}

	if n := calls.Load(); n != 1 {
		t.Errorf("inner fetcher called %d times, want 1", n)
	}
}

func TestCachingSourceDoesNotCacheMisses(t *testing.T) {
	var calls atomic.Int64
	inner := fetcherFunc(func(ctx context.Context, tl maptile.Tile) Result {
		calls.Add(1)
		return Result{Tile: tl, Err: errors.New("tile server down")}
	})

	src := NewCachingSource(inner, 16, time.Minute)
	tl := maptile.New(1, 2, 3)

	for i := 0; i < 2; i++ {
		if res := src.Fetch(context.Background(), tl); !res.Missing() {
			t.Fatal("expected a missing result")
		}
	}

	if n := calls.Load(); n != 2 {
		t.Errorf("inner fetcher called %d times, want 2 (misses are retried)", n)
	}
}

func TestCachingSourceSeparateTiles(t *testing.T) {
	var calls atomic.Int64
	img := imaging.New(testTileSize, testTileSize, color.NRGBA{B: 128, A: 255})

	inner := fetcherFunc(func(ctx context.Context, tl maptile.Tile) Result {
		calls.Add(1)
		return Result{Tile: tl, Img: img}
	})

	src := NewCachingSource(inner, 16, time.Minute)
	src.Fetch(context.Background(), maptile.New(0, 0, 3))
	src.Fetch(context.Background(), maptile.New(1, 0, 3))

	if n := calls.Load(); n != 2 {
		t.Errorf("inner fetcher called %d times, want 2 for distinct tiles", n)
	}
}
