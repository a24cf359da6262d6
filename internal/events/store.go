package events

import (
	"context"
	"strings"
	"time"

	"controltower/internal/models"
)

// PrecedentQuery selects past resolutions, always ordered most-recent first
type PrecedentQuery struct {
	EventType   string // matched as a substring of the stored event type
	SuccessOnly bool
	Limit       int
}

// Store is the contract the service needs from a tabular event store
type Store interface {
	FindPrecedents(ctx context.Context, q PrecedentQuery) ([]models.HistoricalEvent, error)
	AppendDecision(ctx context.Context, rec models.DecisionLogRecord) error
	DecisionStats(ctx context.Context, since time.Time) ([]models.DailyActionCount, error)
}

// Pinger is implemented by stores that support a reachability check
type Pinger interface {
	Ping(ctx context.Context) error
}

// Seeder is implemented by stores that accept historical resolutions directly
type Seeder interface {
	RecordResolution(ctx context.Context, resolutionID string, ev models.HistoricalEvent, at time.Time) error
}

// likePattern wraps s in % wildcards, escaping LIKE metacharacters with '!'
func likePattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(s) + "%"
}

var (
	_ Store  = (*SQLStore)(nil)
	_ Store  = (*MongoStore)(nil)
	_ Store  = (*FixtureStore)(nil)
	_ Seeder = (*SQLStore)(nil)
	_ Seeder = (*MongoStore)(nil)
)
