package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prohmpiriya/greenloop-event-service/internal/worker"
	"github.com/prohmpiriya/greenloop-event-service/pkg/response"
)

// HealthChecker is implemented by infrastructure clients
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type component struct {
	name    string
	checker HealthChecker
}

// HealthHandler handles health check and operational endpoints
type HealthHandler struct {
	components []component
	scheduler  *worker.StatusScheduler
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// WithComponent adds a dependency to the readiness check
func (h *HealthHandler) WithComponent(name string, checker HealthChecker) *HealthHandler {
	h.components = append(h.components, component{name: name, checker: checker})
	return h
}

// WithScheduler exposes the scheduler statistics
func (h *HealthHandler) WithScheduler(s *worker.StatusScheduler) *HealthHandler {
	h.scheduler = s
	return h
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ReadyResponse represents readiness check response
type ReadyResponse struct {
	Status     string            `json:"status"`
	Timestamp  string            `json:"timestamp"`
	Components map[string]string `json:"components"`
}

// Health returns a simple health check (liveness probe)
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready returns a readiness check (readiness probe)
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components := make(map[string]string)
	allHealthy := true

	for _, comp := range h.components {
		if err := comp.checker.HealthCheck(ctx); err != nil {
			components[comp.name] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			components[comp.name] = "healthy"
		}
	}

	resp := ReadyResponse{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	if allHealthy {
		resp.Status = "ready"
		c.JSON(http.StatusOK, resp)
	} else {
		resp.Status = "not ready"
		c.JSON(http.StatusServiceUnavailable, resp)
	}
}

// SchedulerStats handles GET /admin/scheduler/stats
func (h *HealthHandler) SchedulerStats(c *gin.Context) {
	if h.scheduler == nil {
		c.JSON(http.StatusOK, response.Success(&worker.StatusSchedulerStats{}))
		return
	}
	c.JSON(http.StatusOK, response.Success(h.scheduler.GetStats()))
}
