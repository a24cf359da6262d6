package jobs

import (
	"context"
	"log"

	"controltower/internal/health"
)

// BackendHealthChecker pings every registered backend on a schedule
type BackendHealthChecker struct {
	healthService *health.Service
}

// NewBackendHealthChecker creates a new backend health checker job
func NewBackendHealthChecker(healthService *health.Service) *BackendHealthChecker {
	return &BackendHealthChecker{healthService: healthService}
}

// Run checks every registered backend
func (b *BackendHealthChecker) Run(ctx context.Context) error {
	failures := b.healthService.CheckAll(ctx)

	for component, err := range failures {
		log.Printf("[HEALTH-JOB] %s: FAILED (%v)", component, err)
	}
	log.Printf("[HEALTH-JOB] Health checks complete: %d failed", len(failures))
	return nil
}
