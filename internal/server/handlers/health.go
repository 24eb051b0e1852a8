package handlers

import (
	"context"

	"github.com/maruel/mdcms/internal/server/dto"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a health handler reporting version.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// Health returns the health status of the server.
func (h *HealthHandler) Health(_ context.Context, _ *dto.EmptyRequest) (*dto.HealthResponse, error) {
	return &dto.HealthResponse{Status: "ok", Version: h.version}, nil
}
