package health

import (
	"context"
	"time"
)

// Component identifies an external backend the service depends on
type Component string

const (
	ComponentIndex      Component = "index"
	ComponentEventStore Component = "event_store"
	// Only tracked when REDIS_URL is set
	ComponentRedis Component = "redis"
)

// HealthStatus represents the health state of a backend
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusCooldown  HealthStatus = "cooldown"
	StatusUnknown   HealthStatus = "unknown"
)

// ComponentHealth tracks the health of a single backend
type ComponentHealth struct {
	Component     Component    `json:"component"`
	Status        HealthStatus `json:"status"`
	LastChecked   time.Time    `json:"last_checked,omitempty"`
	LastSuccessAt time.Time    `json:"last_success_at,omitempty"`
	FailureCount  int          `json:"failure_count"`
	LastError     string       `json:"last_error,omitempty"`
	CooldownUntil time.Time    `json:"cooldown_until,omitempty"`
}

// Checker performs an active reachability check against one backend
type Checker interface {
	Ping(ctx context.Context) error
}

// CheckerFunc adapts a function to Checker
type CheckerFunc func(ctx context.Context) error

// Ping calls f
func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }
