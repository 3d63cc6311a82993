package server

// Request and response types for the snapshot API.

import "time"

// BoundingBox mirrors pkg/tile.BoundingBox with JSON field names.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// SnapshotRequest asks for a stitched, cropped PNG of a bounding box.
// Zoom and Scale fall back to the server's configured defaults.
type SnapshotRequest struct {
	BBox  BoundingBox `json:"bbox"`
	Zoom  *int        `json:"zoom,omitempty"`
	Scale *float64    `json:"scale,omitempty"`
}

// HealthResponse reports server liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
	Version   string    `json:"version"`
}

// ErrorResponse is the JSON error envelope for all non-2xx responses.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}
