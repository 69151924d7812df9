package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadinessCheck reports whether one dependency can serve traffic
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves liveness and readiness probes
type HealthHandlers struct {
	checks map[string]ReadinessCheck
}

// NewHealthHandlers creates probe handlers for the named dependency checks
func NewHealthHandlers(checks map[string]ReadinessCheck) *HealthHandlers {
	if checks == nil {
		checks = map[string]ReadinessCheck{}
	}
	return &HealthHandlers{checks: checks}
}

// Health reports that the process is up
// GET /health
func (h *HealthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "kwentura-service"})
}

// Ready runs every dependency check
// GET /ready
func (h *HealthHandlers) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			continue
		}
		results[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "service": "kwentura-service", "checks": results})
}
