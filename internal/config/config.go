package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Defaults matching the Mapbox @2x raster tile endpoint.
const (
	DefaultBaseURL     = "https://api.mapbox.com/styles/v1"
	DefaultZoom        = 14
	DefaultTileSize    = 1024
	DefaultScale       = 1.0
	DefaultCacheDir    = "tiles"
	DefaultOutput      = "map.png"
	DefaultConcurrency = 4
	DefaultTimeout     = 30 * time.Second
)

// ErrMissingCredentials is returned when the Mapbox access token or style id
// is absent. Nothing touches the network before this check passes.
var ErrMissingCredentials = errors.New("MAPBOX_ACCESS_TOKEN and MAPBOX_STYLE_ID must be set")

// Config is the immutable run configuration. It is constructed once at
// startup and passed into the planner, tile source and stitcher; there are
// no ambient globals.
type Config struct {
	AccessToken string
	StyleID     string
	BaseURL     string
	Zoom        int
	TileSize    int
	Scale       float64
	CacheDir    string
	Output      string
	Concurrency int
	Timeout     time.Duration
}

// FromViper resolves a Config from bound flags and environment variables,
// falling back to defaults for anything unset.
func FromViper(v *viper.Viper) Config {
	cfg := Config{
		AccessToken: v.GetString("token"),
		StyleID:     v.GetString("style"),
		BaseURL:     v.GetString("base-url"),
		Zoom:        v.GetInt("zoom"),
		TileSize:    v.GetInt("tilesize"),
		Scale:       v.GetFloat64("scale"),
		CacheDir:    v.GetString("cache-dir"),
		Output:      v.GetString("output"),
		Concurrency: v.GetInt("concurrency"),
		Timeout:     v.GetDuration("timeout"),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Zoom == 0 {
		cfg.Zoom = DefaultZoom
	}
	if cfg.TileSize == 0 {
		cfg.TileSize = DefaultTileSize
	}
	if cfg.Scale == 0 {
		cfg.Scale = DefaultScale
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return cfg
}

// Validate checks the configuration before any work starts.
func (c Config) Validate() error {
	if c.AccessToken == "" || c.StyleID == "" {
		return ErrMissingCredentials
	}
	if c.Zoom < 0 || c.Zoom > 22 {
		return fmt.Errorf("zoom %d out of range [0,22]", c.Zoom)
	}
	if c.TileSize <= 0 {
		return fmt.Errorf("tile size must be positive, got %d", c.TileSize)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale factor must be positive, got %g", c.Scale)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", c.Concurrency)
	}
	return nil
}
