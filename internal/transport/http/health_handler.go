package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	"costcompare/internal/dataprocessing"
	"costcompare/internal/infrastructure"
)

// Health statuses
const (
	StatusHealthy     = "healthy"
	StatusUnavailable = "unavailable"
)

// HealthResponse reports whether reference data is being served
type HealthResponse struct {
	Status   string                     `json:"status"`
	Version  string                     `json:"version"`
	LoadedAt *time.Time                 `json:"loaded_at,omitempty"`
	Tables   []dataprocessing.LoadStats `json:"tables,omitempty"`
	Uptime   string                     `json:"uptime"`
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	data    DatasetProvider
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(data DatasetProvider, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		data:    data,
		started: time.Now(),
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:  StatusHealthy,
		Version: infrastructure.ServiceVersion,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	}

	ds := h.data.Dataset()
	if ds == nil || ds.Costs == nil || ds.Salaries == nil {
		h.logger.WarnContext(r.Context(), "health check without dataset")
		resp.Status = StatusUnavailable
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, resp)
		return
	}

	loadedAt := ds.LoadedAt
	resp.LoadedAt = &loadedAt
	resp.Tables = ds.Stats
	render.JSON(w, r, resp)
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "alive"})
}
