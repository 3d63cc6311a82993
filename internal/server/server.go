package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/paulmach/orb/maptile"

	"github.com/mapsnap/mapsnap/internal/config"
	"github.com/mapsnap/mapsnap/internal/stitch"
	"github.com/mapsnap/mapsnap/internal/tilesource"
	"github.com/mapsnap/mapsnap/pkg/tile"
)

// Server exposes the stitching pipeline over HTTP.
type Server struct {
	cfg       config.Config
	source    tilesource.Fetcher
	startTime time.Time
	version   string
	timeout   time.Duration
}

// New creates a server instance. The source is shared between requests, so
// callers typically hand in a CachingSource.
func New(cfg config.Config, source tilesource.Fetcher, version string, timeout time.Duration) *Server {
	return &Server{
		cfg:       cfg,
		source:    source,
		startTime: time.Now(),
		version:   version,
		timeout:   timeout,
	}
}

// Router builds the chi router with the standard middleware stack.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(s.timeout))

	// Permissive CORS for API access
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.GetHealth)
		r.Post("/snapshot", s.CreateSnapshot)
	})

	return r
}

// GetHealth implements the health check endpoint.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Uptime:    int(time.Since(s.startTime).Seconds()),
		Version:   s.version,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding health response", "error", err)
	}
}

// CreateSnapshot stitches a bounding box and streams the cropped PNG.
// Missing-tile counts are surfaced through response headers; a partially
// missing region is still a 200.
func (s *Server) CreateSnapshot(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	var req SnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_JSON",
			"Invalid JSON in request body", requestID)
		return
	}

	bbox := tile.BoundingBox{
		MinLat: req.BBox.MinLat,
		MinLon: req.BBox.MinLon,
		MaxLat: req.BBox.MaxLat,
		MaxLon: req.BBox.MaxLon,
	}
	if err := bbox.Validate(); err != nil {
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
		return
	}

	zoom := s.cfg.Zoom
	if req.Zoom != nil {
		zoom = *req.Zoom
	}
	if zoom < 0 || zoom > 22 {
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("zoom must be between 0 and 22, got %d", zoom), requestID)
		return
	}

	scale := s.cfg.Scale
	if req.Scale != nil {
		scale = *req.Scale
	}
	if scale <= 0 {
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			fmt.Sprintf("scale must be positive, got %g", scale), requestID)
		return
	}

	st := stitch.New(s.source, stitch.Options{
		Zoom:        maptile.Zoom(zoom),
		TileSize:    s.cfg.TileSize,
		Scale:       scale,
		Concurrency: s.cfg.Concurrency,
	})

	img, report, err := st.Stitch(r.Context(), bbox)
	if err != nil {
		s.handleStitchError(w, err, requestID)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		s.writeError(w, http.StatusInternalServerError, "ENCODING_ERROR",
			"Failed to encode output image", requestID)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Request-ID", requestID)
	w.Header().Set("X-Missing-Tiles", strconv.Itoa(len(report.Missing)))
	w.Header().Set("X-Total-Tiles", strconv.Itoa(report.Total))

	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("writing snapshot response", "error", err)
	}
}

func (s *Server) handleStitchError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, tile.ErrInvalidBounds):
		s.writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), requestID)
	case errors.Is(err, stitch.ErrCanvasTooLarge):
		s.writeError(w, http.StatusBadRequest, "REGION_TOO_LARGE", err.Error(), requestID)
	case errors.Is(err, context.DeadlineExceeded):
		s.writeError(w, http.StatusGatewayTimeout, "TILE_SERVER_TIMEOUT",
			"Tile requests timed out", requestID)
	default:
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"Internal server error", requestID)
	}
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, errorCode, message, requestID string) {
	response := ErrorResponse{
		Error:     errorCode,
		Message:   message,
		RequestID: requestID,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("encoding error response", "error", err)
	}
}
