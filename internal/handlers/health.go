package handlers

import (
	"time"

	"controltower/internal/health"
	"controltower/internal/jobs"

	"github.com/gofiber/fiber/v2"
)

// JobStatusProvider reports the background jobs shown on /health
type JobStatusProvider interface {
	GetStatus() map[string]jobs.JobStatus
}

// HealthHandler handles health check requests
type HealthHandler struct {
	health *health.Service
	jobs   JobStatusProvider
}

// NewHealthHandler creates a new health handler; jobProvider may be nil
func NewHealthHandler(healthService *health.Service, jobProvider JobStatusProvider) *HealthHandler {
	return &HealthHandler{health: healthService, jobs: jobProvider}
}

// Root answers the platform liveness check
// GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "serving"})
}

// Handle responds with backend health status
// GET /health
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	status := h.health.GetStatus()
	status["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	if h.jobs != nil {
		status["jobs"] = h.jobs.GetStatus()
	}
	return c.JSON(status)
}
