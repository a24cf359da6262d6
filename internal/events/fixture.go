package events

import (
	"context"
	"time"

	"controltower/internal/models"
)

const defaultFixtureEventType = "LATE_SHIPMENT"

// FixtureStore serves canned precedents for simulation mode and persists nothing
type FixtureStore struct{}

// NewFixtureStore creates the simulation store
func NewFixtureStore() *FixtureStore {
	return &FixtureStore{}
}

// FindPrecedents returns the two canned successful resolutions for the requested type
func (f *FixtureStore) FindPrecedents(ctx context.Context, q PrecedentQuery) ([]models.HistoricalEvent, error) {
	eventType := q.EventType
	if eventType == "" {
		eventType = defaultFixtureEventType
	}

	return []models.HistoricalEvent{
		{
			EventID:   "EVT-SIM-001",
			EventType: eventType,
			Action:    "update_eta",
			Reasoning: "Standard delay < 4 hours, updating ETA as per SLA.",
			Outcome:   models.OutcomeSuccess,
		},
		{
			EventID:   "EVT-SIM-002",
			EventType: eventType,
			Action:    "request_reshipment",
			Reasoning: "Shipment lost in transit (>72h no scan). Triggering reshipment for VIP customer.",
			Outcome:   models.OutcomeSuccess,
		},
	}, nil
}

// AppendDecision discards the record
func (f *FixtureStore) AppendDecision(ctx context.Context, rec models.DecisionLogRecord) error {
	return nil
}

// DecisionStats always reports no activity
func (f *FixtureStore) DecisionStats(ctx context.Context, since time.Time) ([]models.DailyActionCount, error) {
	return []models.DailyActionCount{}, nil
}
