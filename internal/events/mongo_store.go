package events

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"controltower/internal/backoff"
	"controltower/internal/database"
	"controltower/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps denormalized resolutions and the decision log in MongoDB.
// Resolution documents carry their event_type so no join is needed.
type MongoStore struct {
	db     *database.MongoDB
	policy backoff.Policy
}

// NewMongoStore creates a store over a connected MongoDB
func NewMongoStore(db *database.MongoDB, policy backoff.Policy) *MongoStore {
	return &MongoStore{db: db, policy: policy}
}

// precedentFilter matches event types containing q.EventType, case-insensitively
func precedentFilter(q PrecedentQuery) bson.M {
	filter := bson.M{
		"event_type": bson.M{"$regex": regexp.QuoteMeta(q.EventType), "$options": "i"},
	}
	if q.SuccessOnly {
		filter["execution_status"] = string(models.OutcomeSuccess)
	}
	return filter
}

// precedentFindOptions orders newest first and caps at q.Limit
func precedentFindOptions(q PrecedentQuery) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(q.Limit))
}

// FindPrecedents returns matching resolutions, newest first
func (s *MongoStore) FindPrecedents(ctx context.Context, q PrecedentQuery) ([]models.HistoricalEvent, error) {
	filter := precedentFilter(q)
	opts := precedentFindOptions(q)

	return backoff.Do(ctx, s.policy, "find precedents", func(ctx context.Context) ([]models.HistoricalEvent, error) {
		cursor, err := s.db.Collection(database.CollectionResolutions).Find(ctx, filter, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		defer cursor.Close(ctx)

		results := []models.HistoricalEvent{}
		if err := cursor.All(ctx, &results); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		return results, nil
	})
}

// AppendDecision inserts one decision log document.
// Single attempt: a retry after a write that timed out would collide on log_id.
func (s *MongoStore) AppendDecision(ctx context.Context, rec models.DecisionLogRecord) error {
	_, err := backoff.Do(ctx, s.policy.Once(), "append decision", func(ctx context.Context) (struct{}, error) {
		if _, err := s.db.Collection(database.CollectionAgentDecisions).InsertOne(ctx, rec); err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		return struct{}{}, nil
	})
	return err
}

// DecisionStats counts decisions per day and action since the given instant
func (s *MongoStore) DecisionStats(ctx context.Context, since time.Time) ([]models.DailyActionCount, error) {
	pipeline := bson.A{
		bson.M{"$match": bson.M{"timestamp": bson.M{"$gte": since.UTC()}}},
		bson.M{"$group": bson.M{
			"_id": bson.M{
				"date":   bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$timestamp"}},
				"action": "$action_name",
			},
			"count": bson.M{"$sum": 1},
		}},
		bson.M{"$project": bson.M{"_id": 0, "date": "$_id.date", "action": "$_id.action", "count": 1}},
		bson.M{"$sort": bson.D{{Key: "date", Value: 1}, {Key: "action", Value: 1}}},
	}

	return backoff.Do(ctx, s.policy, "decision stats", func(ctx context.Context) ([]models.DailyActionCount, error) {
		cursor, err := s.db.Collection(database.CollectionAgentDecisions).Aggregate(ctx, pipeline)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		defer cursor.Close(ctx)

		stats := []models.DailyActionCount{}
		if err := cursor.All(ctx, &stats); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		return stats, nil
	})
}

// RecordResolution stores a resolution document; used to seed precedents
func (s *MongoStore) RecordResolution(ctx context.Context, resolutionID string, ev models.HistoricalEvent, at time.Time) error {
	_, err := s.db.Collection(database.CollectionResolutions).InsertOne(ctx, bson.M{
		"resolution_id":    resolutionID,
		"event_id":         ev.EventID,
		"event_type":       ev.EventType,
		"action_name":      ev.Action,
		"reasoning":        ev.Reasoning,
		"execution_status": string(ev.Outcome),
		"timestamp":        at.UTC(),
	})
	return err
}

// Ping checks the MongoDB connection
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
