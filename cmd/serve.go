package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mapsnap/mapsnap/internal/config"
	"github.com/mapsnap/mapsnap/internal/server"
	"github.com/mapsnap/mapsnap/internal/tilesource"
)

const version = "1.0.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP snapshot API",
	Long: `Start an HTTP server exposing the tile stitching pipeline.

POST /api/v1/snapshot renders a bounding box to PNG; GET /api/v1/health
reports liveness. Decoded tiles are cached in memory across requests.

Examples:
  # Start server on default port 8080
  mapsnap serve

  # Custom bind address and port
  mapsnap serve --bind 0.0.0.0 --port 3000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("bind", "b", "localhost", "bind address")
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().Duration("request-timeout", 120*time.Second, "whole-request timeout")

	viper.BindPFlag("server.bind", serveCmd.Flags().Lookup("bind"))
	viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("server.timeout", serveCmd.Flags().Lookup("request-timeout"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.FromViper(viper.GetViper())
	if err := cfg.Validate(); err != nil {
		return err
	}

	bind := viper.GetString("server.bind")
	port := viper.GetInt("server.port")
	timeout := viper.GetDuration("server.timeout")

	addr := fmt.Sprintf("%s:%d", bind, port)

	source := tilesource.NewCachingSource(
		tilesource.NewMapboxSource(tilesource.Options{
			BaseURL:     cfg.BaseURL,
			StyleID:     cfg.StyleID,
			AccessToken: cfg.AccessToken,
			TileSize:    cfg.TileSize,
			CacheDir:    cfg.CacheDir,
			Timeout:     cfg.Timeout,
		}),
		512,            // decoded tiles kept in memory
		10*time.Minute, // entry ttl
	)

	apiServer := server.New(cfg, source, version, timeout)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      apiServer.Router(),
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		fmt.Fprintf(cmd.ErrOrStderr(), "\nShutting down server...\n")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			slog.Error("server shutdown", "error", err)
		}
	}()

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting mapsnap server on %s\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Health check: http://%s/api/v1/health\n", addr)
	fmt.Fprintf(cmd.ErrOrStderr(), "Snapshot endpoint: http://%s/api/v1/snapshot\n", addr)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %v", err)
	}

	return nil
}
