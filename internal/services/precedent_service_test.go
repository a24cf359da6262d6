package services

import (
	"context"
	"errors"
	"testing"

	"controltower/internal/health"
	"controltower/internal/mode"
	"controltower/internal/models"
)

func TestNormalizeLimit(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultPrecedentLimit},
		{-4, DefaultPrecedentLimit},
		{1, 1},
		{7, 7},
		{MaxPrecedentLimit + 1, MaxPrecedentLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Errorf("NormalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPrecedentService_QueryShape(t *testing.T) {
	store := &stubStore{precedent: []models.HistoricalEvent{}}
	svc := NewPrecedentService(nil, nil)

	got, err := svc.FindPrecedents(context.Background(), mode.DataSource{Events: store}, "LATE_SHIPMENT", 0)
	if err != nil {
		t.Fatalf("FindPrecedents failed: %v", err)
	}
	if got == nil {
		t.Error("Expected an empty slice, got nil")
	}
	if store.lastQuery.EventType != "LATE_SHIPMENT" || !store.lastQuery.SuccessOnly || store.lastQuery.Limit != DefaultPrecedentLimit {
		t.Errorf("Unexpected query: %+v", store.lastQuery)
	}
}

func TestPrecedentService_DropsNonSuccessAndCaps(t *testing.T) {
	store := &stubStore{precedent: []models.HistoricalEvent{
		{EventID: "E1", Outcome: models.OutcomeSuccess},
		{EventID: "E2", Outcome: models.OutcomeFailure},
		{EventID: "E3", Outcome: models.OutcomeSuccess},
		{EventID: "E4", Outcome: models.OutcomeEscalated},
		{EventID: "E5", Outcome: models.OutcomeSuccess},
	}}
	svc := NewPrecedentService(nil, nil)

	got, err := svc.FindPrecedents(context.Background(), mode.DataSource{Events: store}, "LATE", 2)
	if err != nil {
		t.Fatalf("FindPrecedents failed: %v", err)
	}
	if len(got) != 2 || got[0].EventID != "E1" || got[1].EventID != "E3" {
		t.Errorf("Expected [E1 E3], got %+v", got)
	}
}

func TestPrecedentService_MissingEventType(t *testing.T) {
	svc := NewPrecedentService(nil, nil)

	_, err := svc.FindPrecedents(context.Background(), mode.DataSource{Events: &stubStore{}}, "", 3)
	if !errors.Is(err, models.ErrMalformedInput) {
		t.Fatalf("Expected ErrMalformedInput, got %v", err)
	}
}

func TestPrecedentService_BackendError(t *testing.T) {
	h := health.NewService(1, 0)
	h.Register(health.ComponentEventStore, nil)
	svc := NewPrecedentService(h, nil)

	_, err := svc.FindPrecedents(context.Background(), mode.DataSource{Events: &stubStore{err: errors.New("timeout")}}, "LATE", 3)
	if !errors.Is(err, models.ErrBackendUnavailable) {
		t.Fatalf("Expected ErrBackendUnavailable, got %v", err)
	}
	if h.IsHealthy(health.ComponentEventStore) {
		t.Error("Expected event store marked unhealthy")
	}
}

func TestPrecedentService_Simulation(t *testing.T) {
	ds := mode.NewDefaultSelector(nil, nil).Select(true)
	svc := NewPrecedentService(nil, nil)

	got, err := svc.FindPrecedents(context.Background(), ds, "DAMAGED_GOODS", 5)
	if err != nil {
		t.Fatalf("FindPrecedents failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected two simulated precedents, got %d", len(got))
	}
	if got[0].EventID != "EVT-SIM-001" || got[0].EventType != "DAMAGED_GOODS" {
		t.Errorf("Unexpected first precedent: %+v", got[0])
	}
}
