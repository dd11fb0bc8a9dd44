package common

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// HealthHandler reports the state of the optional ledger database and catalog cache
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthHandler creates a health handler over named checks
func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 2 * time.Second}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{
		"status":    state,
		"checks":    results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
