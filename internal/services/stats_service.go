package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"controltower/internal/health"
	"controltower/internal/mode"
	"controltower/internal/models"

	cache "github.com/patrickmn/go-cache"
)

const (
	// DefaultStatsDays is the dashboard window when days is not given
	DefaultStatsDays = 7
	// MaxStatsDays bounds how far back the dashboard aggregates
	MaxStatsDays = 90
)

// StatsService aggregates the decision log for the dashboard
type StatsService struct {
	cache  *cache.Cache
	health *health.Service
	now    func() time.Time
}

// NewStatsService creates the stats service; results are cached for ttl
func NewStatsService(ttl time.Duration, healthSvc *health.Service) *StatsService {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsService{
		cache:  cache.New(ttl, 2*ttl),
		health: healthSvc,
		now:    time.Now,
	}
}

// NormalizeDays applies the default window and clamps it to [1, MaxStatsDays]
func NormalizeDays(days int) int {
	if days <= 0 {
		return DefaultStatsDays
	}
	if days > MaxStatsDays {
		return MaxStatsDays
	}
	return days
}

// DecisionStats returns per-day per-action decision counts for the last days days
func (s *StatsService) DecisionStats(ctx context.Context, ds mode.DataSource, days int) ([]models.DailyActionCount, error) {
	days = NormalizeDays(days)
	key := fmt.Sprintf("stats:%s:%d", modeLabel(ds.Simulated), days)

	if cached, found := s.cache.Get(key); found {
		return cached.([]models.DailyActionCount), nil
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	stats, err := ds.Events.DecisionStats(ctx, since)
	observeBackend(s.health, ds, health.ComponentEventStore, err)
	if err != nil {
		slog.Warn("decision stats failed", "days", days, "error", err)
		return nil, ensureUnavailable(err)
	}
	if stats == nil {
		stats = []models.DailyActionCount{}
	}

	s.cache.Set(key, stats, cache.DefaultExpiration)
	return stats, nil
}
