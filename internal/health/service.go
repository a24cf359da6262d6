package health

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"
)

const (
	defaultFailureThreshold = 3
	defaultCheckTimeout     = 5 * time.Second
)

// Service tracks the health of the backends behind the tool endpoints.
// Request handlers report outcomes; the health job calls CheckAll.
type Service struct {
	mu               sync.RWMutex
	components       map[Component]*ComponentHealth
	checkers         map[Component]Checker
	failureThreshold int
	checkTimeout     time.Duration
}

// NewService creates a new health service
func NewService(failureThreshold int, checkTimeout time.Duration) *Service {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	if checkTimeout <= 0 {
		checkTimeout = defaultCheckTimeout
	}

	return &Service{
		components:       make(map[Component]*ComponentHealth),
		checkers:         make(map[Component]Checker),
		failureThreshold: failureThreshold,
		checkTimeout:     checkTimeout,
	}
}

// Register adds a backend to the tracker; a nil checker means passive tracking only
func (s *Service) Register(component Component, checker Checker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.components[component]; !exists {
		s.components[component] = &ComponentHealth{Component: component, Status: StatusUnknown}
		log.Printf("[HEALTH] Registered %s", component)
	}
	if checker != nil {
		s.checkers[component] = checker
	}
}

// MarkHealthy records a successful call
func (s *Service) MarkHealthy(component Component) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.components[component]
	if !exists {
		return
	}

	wasUnhealthy := h.Status == StatusUnhealthy || h.Status == StatusCooldown
	now := time.Now()
	h.Status = StatusHealthy
	h.FailureCount = 0
	h.LastError = ""
	h.LastSuccessAt = now
	h.LastChecked = now
	h.CooldownUntil = time.Time{}

	if wasUnhealthy {
		log.Printf("[HEALTH] %s recovered - now healthy", component)
	}
}

// MarkUnhealthy records a failure. Rate-limit errors put the backend into cooldown;
// other errors mark it unhealthy once the threshold is reached.
func (s *Service) MarkUnhealthy(component Component, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, exists := s.components[component]
	if !exists {
		return
	}

	h.FailureCount++
	h.LastError = truncateStr(errMsg, 200)
	h.LastChecked = time.Now()

	if cooldown, ok := Throttled(errMsg); ok {
		h.Status = StatusCooldown
		h.CooldownUntil = h.LastChecked.Add(cooldown)
		log.Printf("[HEALTH] %s in COOLDOWN until %s (reason: %s)",
			component, h.CooldownUntil.Format(time.RFC3339), truncateStr(errMsg, 100))
		return
	}

	if h.FailureCount >= s.failureThreshold {
		h.Status = StatusUnhealthy
		log.Printf("[HEALTH] %s marked UNHEALTHY after %d failures: %s",
			component, h.FailureCount, truncateStr(errMsg, 200))
	} else {
		log.Printf("[HEALTH] %s failure %d/%d: %s",
			component, h.FailureCount, s.failureThreshold, truncateStr(errMsg, 200))
	}
}

// IsHealthy reports whether a backend is usable; unknown backends are assumed healthy
func (s *Service) IsHealthy(component Component) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.components[component]
	if !exists {
		return true
	}

	switch h.Status {
	case StatusUnhealthy:
		return false
	case StatusCooldown:
		return time.Now().After(h.CooldownUntil)
	default:
		return true
	}
}

// Check pings one backend with its registered checker
func (s *Service) Check(ctx context.Context, component Component) error {
	s.mu.RLock()
	checker, ok := s.checkers[component]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	if err := checker.Ping(ctx); err != nil {
		s.MarkUnhealthy(component, err.Error())
		return err
	}
	s.MarkHealthy(component)
	return nil
}

// CheckAll pings every backend that has a checker and returns the failures
func (s *Service) CheckAll(ctx context.Context) map[Component]error {
	s.mu.RLock()
	components := make([]Component, 0, len(s.checkers))
	for c := range s.checkers {
		components = append(components, c)
	}
	s.mu.RUnlock()

	failures := make(map[Component]error)
	for _, c := range components {
		if err := s.Check(ctx, c); err != nil {
			failures[c] = err
		}
	}
	return failures
}

// Snapshot returns every tracked backend ordered by name
func (s *Service) Snapshot() []ComponentHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]ComponentHealth, 0, len(s.components))
	for _, h := range s.components {
		c := *h
		if c.Status == StatusCooldown && time.Now().After(c.CooldownUntil) {
			c.Status = StatusUnknown
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Component < result[j].Component })
	return result
}

// GetStatus returns a summary suitable for the /health endpoint
func (s *Service) GetStatus() map[string]interface{} {
	components := s.Snapshot()

	overall := "healthy"
	for _, c := range components {
		if c.Status == StatusUnhealthy || c.Status == StatusCooldown {
			overall = "degraded"
		}
	}

	return map[string]interface{}{
		"status":     overall,
		"components": components,
	}
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
