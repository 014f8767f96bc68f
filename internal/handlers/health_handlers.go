package handlers

import (
	"context"
	"net/http"
	"time"

	"catalogfacets/internal/caching"
	"catalogfacets/internal/services"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobStatusProvider exposes the background scheduler state
type JobStatusProvider interface {
	GetJobStatus() map[string]any
}

// HealthHandlers handles health check endpoints
type HealthHandlers struct {
	db      Pinger
	cache   caching.ResultCache
	storage services.MinioService
	jobs    JobStatusProvider
	version string
	started time.Time
}

// NewHealthHandlers creates a new health handlers instance
func NewHealthHandlers(db Pinger, cache caching.ResultCache, storage services.MinioService, jobs JobStatusProvider, version string) *HealthHandlers {
	return &HealthHandlers{
		db:      db,
		cache:   cache,
		storage: storage,
		jobs:    jobs,
		version: version,
		started: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Jobs      map[string]any    `json:"jobs,omitempty"`
}

const healthCheckTimeout = 2 * time.Second

// HealthCheck handles GET /health. A failing dependency degrades the status
// but the endpoint still answers 200 so the process is not restarted.
func (h *HealthHandlers) HealthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	health := &HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  make(map[string]string),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   h.version,
	}

	checks := map[string]func(context.Context) error{
		"database": h.db.Ping,
		"redis":    h.cache.Ping,
		"storage":  h.storage.Ping,
	}
	for name, check := range checks {
		if err := check(ctx); err != nil {
			health.Services[name] = "unhealthy"
			health.Status = "degraded"
		} else {
			health.Services[name] = "healthy"
		}
	}
	if h.jobs != nil {
		health.Jobs = h.jobs.GetJobStatus()
	}

	return c.JSON(http.StatusOK, health)
}

// ReadinessCheck handles GET /health/ready. Listings need the database; a
// missing cache only makes them slower.
func (h *HealthHandlers) ReadinessCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":  "not_ready",
			"message": "Database unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ready",
		"message": "All systems operational",
	})
}
