package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is a dependency the health check pings
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// PingContext calls f
func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// HealthHandler reports service and dependency status
type HealthHandler struct {
	version  string
	checks   map[string]Pinger
	required map[string]bool
	timeout  time.Duration
}

// NewHealthHandler creates a health handler reporting version
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{
		version:  version,
		checks:   make(map[string]Pinger),
		required: make(map[string]bool),
		timeout:  2 * time.Second,
	}
}

// Require adds a dependency whose failure makes the service unhealthy
func (h *HealthHandler) Require(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	h.required[name] = true
	return h
}

// Optional adds a dependency whose failure only degrades the service
func (h *HealthHandler) Optional(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	return h
}

// Check godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200 {object} map[string]any
// @Failure      503 {object} map[string]any
// @Router       /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := "healthy"
	code := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			deps[name] = "down"
			if h.required[name] {
				status = "unhealthy"
				code = http.StatusServiceUnavailable
			} else if status == "healthy" {
				status = "degraded"
			}
			continue
		}
		deps[name] = "up"
	}

	c.JSON(code, gin.H{
		"status":       status,
		"version":      h.version,
		"dependencies": deps,
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
	})
}
