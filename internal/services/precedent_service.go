package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"controltower/internal/events"
	"controltower/internal/health"
	"controltower/internal/mode"
	"controltower/internal/models"
)

const (
	// DefaultPrecedentLimit applies when the caller sends no positive limit
	DefaultPrecedentLimit = 3
	// MaxPrecedentLimit caps a single precedent lookup
	MaxPrecedentLimit = 50
)

// PrecedentService looks up past successful resolutions of similar exceptions
type PrecedentService struct {
	health  *health.Service
	metrics *Metrics
}

// NewPrecedentService creates the precedent retriever
func NewPrecedentService(healthSvc *health.Service, metrics *Metrics) *PrecedentService {
	return &PrecedentService{health: healthSvc, metrics: metrics}
}

// NormalizeLimit applies the default for non-positive limits and the ceiling
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultPrecedentLimit
	}
	if limit > MaxPrecedentLimit {
		return MaxPrecedentLimit
	}
	return limit
}

// FindPrecedents returns at most limit successful resolutions whose type contains eventType,
// most recent first
func (s *PrecedentService) FindPrecedents(ctx context.Context, ds mode.DataSource, eventType string, limit int) ([]models.HistoricalEvent, error) {
	if strings.TrimSpace(eventType) == "" {
		s.metrics.RecordPrecedentRequest("malformed")
		return nil, fmt.Errorf("%w: event_type is required", models.ErrMalformedInput)
	}
	limit = NormalizeLimit(limit)

	found, err := ds.Events.FindPrecedents(ctx, events.PrecedentQuery{
		EventType:   eventType,
		SuccessOnly: true,
		Limit:       limit,
	})
	observeBackend(s.health, ds, health.ComponentEventStore, err)
	if err != nil {
		s.metrics.RecordPrecedentRequest("error")
		slog.Warn("precedent lookup failed", "event_type", eventType, "error", err)
		return nil, ensureUnavailable(err)
	}

	results := make([]models.HistoricalEvent, 0, len(found))
	for _, ev := range found {
		if ev.Outcome != models.OutcomeSuccess {
			slog.Warn("event store returned a non-successful precedent", "event_id", ev.EventID, "outcome", ev.Outcome)
			continue
		}
		if len(results) == limit {
			break
		}
		results = append(results, ev)
	}

	s.metrics.RecordPrecedentRequest("success")
	return results, nil
}
