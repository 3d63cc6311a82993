package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/paulmach/orb/maptile"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapsnap/mapsnap/internal/config"
	"github.com/mapsnap/mapsnap/internal/stitch"
	"github.com/mapsnap/mapsnap/internal/tilesource"
	"github.com/mapsnap/mapsnap/pkg/tile"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mapsnap",
	Short: "Fetch, stitch and crop Mapbox raster tiles for a bounding box",
	Long: `mapsnap downloads Mapbox raster tiles covering a geographic bounding box,
stitches them into a single image and writes a PNG cropped to the exact bounds.

Credentials are read from MAPBOX_ACCESS_TOKEN and MAPBOX_STYLE_ID (a .env file
in the working directory is honored). Fetched tiles are cached on disk so
repeated runs over overlapping regions avoid refetching.

Examples:
  # San Antonio downtown at the default zoom 14
  mapsnap --bbox 29.4115,-98.5055,29.4335,-98.4790 -o alamo.png

  # Individual coordinate flags, custom zoom and output scale
  mapsnap --min-lat 29.4115 --min-lon -98.5055 --max-lat 29.4335 --max-lon -98.4790 --zoom 15 --scale 0.5 -o map.png

  # Start the HTTP API
  mapsnap serve --port 8080`,
	RunE: runSnap,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mapsnap.yaml)")

	// Bounding box
	rootCmd.Flags().String("bbox", "", "bounding box as 'min-lat,min-lon,max-lat,max-lon'")
	rootCmd.Flags().Float64("min-lat", 0, "minimum latitude (south boundary)")
	rootCmd.Flags().Float64("min-lon", 0, "minimum longitude (west boundary)")
	rootCmd.Flags().Float64("max-lat", 0, "maximum latitude (north boundary)")
	rootCmd.Flags().Float64("max-lon", 0, "maximum longitude (east boundary)")

	// Tile options
	rootCmd.Flags().Int("zoom", config.DefaultZoom, "zoom level")
	rootCmd.Flags().IntP("tilesize", "t", config.DefaultTileSize, "delivered tile size in pixels (@2x)")
	rootCmd.Flags().Int("concurrency", config.DefaultConcurrency, "parallel tile fetches")
	rootCmd.Flags().Duration("timeout", config.DefaultTimeout, "per-tile request timeout")
	rootCmd.Flags().String("cache-dir", config.DefaultCacheDir, "directory for cached tiles")
	rootCmd.Flags().String("base-url", config.DefaultBaseURL, "tile service base URL")
	rootCmd.Flags().String("style", "", "Mapbox style id (or MAPBOX_STYLE_ID)")
	rootCmd.Flags().String("token", "", "Mapbox access token (or MAPBOX_ACCESS_TOKEN)")

	// Output options
	rootCmd.Flags().StringP("output", "o", config.DefaultOutput, "output file")
	rootCmd.Flags().Float64("scale", config.DefaultScale, "uniform rescale of the final image")

	for _, name := range []string{
		"bbox", "min-lat", "min-lon", "max-lat", "max-lon",
		"zoom", "tilesize", "concurrency", "timeout", "cache-dir",
		"base-url", "style", "token", "output", "scale",
	} {
		viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}

	viper.BindEnv("token", "MAPBOX_ACCESS_TOKEN")
	viper.BindEnv("style", "MAPBOX_STYLE_ID")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// A .env in the working directory may carry the credentials.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mapsnap")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runSnap(cmd *cobra.Command, args []string) error {
	bbox, err := bboxFromFlags()
	if err != nil {
		return err
	}

	cfg := config.FromViper(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return err
	}

	source := tilesource.NewMapboxSource(tilesource.Options{
		BaseURL:     cfg.BaseURL,
		StyleID:     cfg.StyleID,
		AccessToken: cfg.AccessToken,
		TileSize:    cfg.TileSize,
		CacheDir:    cfg.CacheDir,
		Timeout:     cfg.Timeout,
	})

	plan := tile.Plan(bbox.Bound(), maptile.Zoom(cfg.Zoom), cfg.TileSize)
	bar := progressbar.Default(int64(plan.TileCount()), "Downloading tiles")

	stitcher := stitch.New(source, stitch.Options{
		Zoom:        maptile.Zoom(cfg.Zoom),
		TileSize:    cfg.TileSize,
		Scale:       cfg.Scale,
		Concurrency: cfg.Concurrency,
		OnProgress: func(done, total int) {
			_ = bar.Set(done)
		},
	})

	img, report, err := stitcher.Stitch(cmd.Context(), bbox)
	if err != nil {
		return err
	}
	_ = bar.Finish()

	if err := stitch.SavePNG(cfg.Output, img); err != nil {
		return err
	}

	if n := len(report.Missing); n > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %d of %d tiles missing\n", n, report.Total)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Saved stitched map to %s (%dx%d)\n",
		cfg.Output, img.Bounds().Dx(), img.Bounds().Dy())

	return nil
}

// bboxFromFlags accepts either the --bbox string or the four coordinate
// flags; swapped corners are rejected, never normalized.
func bboxFromFlags() (tile.BoundingBox, error) {
	if s := viper.GetString("bbox"); s != "" {
		return tile.ParseBBox(s)
	}

	bbox := tile.BoundingBox{
		MinLat: viper.GetFloat64("min-lat"),
		MinLon: viper.GetFloat64("min-lon"),
		MaxLat: viper.GetFloat64("max-lat"),
		MaxLon: viper.GetFloat64("max-lon"),
	}
	if bbox == (tile.BoundingBox{}) {
		return bbox, fmt.Errorf("a bounding box is required (--bbox or --min-lat/--min-lon/--max-lat/--max-lon)")
	}
	return bbox, bbox.Validate()
}
