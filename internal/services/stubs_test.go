package services

import (
	"context"
	"sync"
	"time"

	"controltower/internal/events"
	"controltower/internal/index"
	"controltower/internal/models"
)

type stubIndex struct {
	hits      []index.RawHit
	err       error
	panicMsg  string
	lastLimit int
	docs      []models.IndexedDocument
}

func (s *stubIndex) Search(ctx context.Context, query string, limit int) ([]index.RawHit, error) {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	s.lastLimit = limit
	return s.hits, s.err
}

func (s *stubIndex) List(ctx context.Context, max int) ([]models.IndexedDocument, error) {
	return s.docs, s.err
}

type stubStore struct {
	mu        sync.Mutex
	precedent []models.HistoricalEvent
	err       error
	appendErr error
	appended  []models.DecisionLogRecord
	lastQuery events.PrecedentQuery
	stats     []models.DailyActionCount
	statCalls int
	since     time.Time
}

func (s *stubStore) FindPrecedents(ctx context.Context, q events.PrecedentQuery) ([]models.HistoricalEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastQuery = q
	return s.precedent, s.err
}

func (s *stubStore) AppendDecision(ctx context.Context, rec models.DecisionLogRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.appended = append(s.appended, rec)
	return nil
}

func (s *stubStore) DecisionStats(ctx context.Context, since time.Time) ([]models.DailyActionCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statCalls++
	s.since = since
	return s.stats, s.err
}

func (s *stubStore) records() []models.DecisionLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.DecisionLogRecord(nil), s.appended...)
}
