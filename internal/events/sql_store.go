package events

import (
	"context"
	"fmt"
	"time"

	"controltower/internal/backoff"
	"controltower/internal/database"
	"controltower/internal/models"
)

// SQLStore keeps exceptions, resolutions and the decision log in MySQL or SQLite
type SQLStore struct {
	db     *database.DB
	policy backoff.Policy
}

// NewSQLStore creates a store over an initialized database
func NewSQLStore(db *database.DB, policy backoff.Policy) *SQLStore {
	return &SQLStore{db: db, policy: policy}
}

// FindPrecedents returns resolutions joined with their exception type
func (s *SQLStore) FindPrecedents(ctx context.Context, q PrecedentQuery) ([]models.HistoricalEvent, error) {
	query := `
		SELECT e.event_id, e.type, r.action_name, COALESCE(r.reasoning, ''), r.execution_status
		FROM ` + database.TableResolutions + ` r
		JOIN ` + database.TableExceptions + ` e ON r.event_id = e.event_id
		WHERE e.type LIKE ? ESCAPE '!'`
	args := []interface{}{likePattern(q.EventType)}
	if q.SuccessOnly {
		query += ` AND r.execution_status = ?`
		args = append(args, string(models.OutcomeSuccess))
	}
	query += ` ORDER BY r.timestamp DESC LIMIT ?`
	args = append(args, q.Limit)

	return backoff.Do(ctx, s.policy, "find precedents", func(ctx context.Context) ([]models.HistoricalEvent, error) {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		defer rows.Close()

		results := []models.HistoricalEvent{}
		for rows.Next() {
			var ev models.HistoricalEvent
			var outcome string
			if err := rows.Scan(&ev.EventID, &ev.EventType, &ev.Action, &ev.Reasoning, &outcome); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("scan precedent: %w", err))
			}
			ev.Outcome = models.Outcome(outcome)
			results = append(results, ev)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		return results, nil
	})
}

// AppendDecision inserts one decision log row.
// Single attempt: a retry after a commit that timed out would collide on log_id.
func (s *SQLStore) AppendDecision(ctx context.Context, rec models.DecisionLogRecord) error {
	_, err := backoff.Do(ctx, s.policy.Once(), "append decision", func(ctx context.Context) (struct{}, error) {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO `+database.TableAgentDecisions+`
			(log_id, timestamp, event_id, agent_version, trigger_type, customer_tier, confidence_score,
			 reasoning, action_name, tool_parameters, execution_status, execution_latency_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.LogID, database.FormatTime(rec.Timestamp), rec.EventID, rec.AgentVersion, rec.TriggerType,
			rec.CustomerTier, rec.Confidence, rec.Reasoning, rec.ActionName, rec.ToolParameters,
			rec.ExecutionStatus, rec.ExecutionLatencyMs,
		)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		return struct{}{}, nil
	})
	return err
}

// DecisionStats counts decisions per day and action since the given instant
func (s *SQLStore) DecisionStats(ctx context.Context, since time.Time) ([]models.DailyActionCount, error) {
	day := s.db.DateExpr("timestamp")
	query := `
		SELECT ` + day + ` AS day_bucket, action_name, COUNT(*)
		FROM ` + database.TableAgentDecisions + `
		WHERE timestamp >= ?
		GROUP BY day_bucket, action_name
		ORDER BY day_bucket, action_name`

	return backoff.Do(ctx, s.policy, "decision stats", func(ctx context.Context) ([]models.DailyActionCount, error) {
		rows, err := s.db.QueryContext(ctx, query, database.FormatTime(since))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrBackendUnavailable, err)
		}
		defer rows.Close()

		stats := []models.DailyActionCount{}
		for rows.Next() {
			var row models.DailyActionCount
			if err := rows.Scan(&row.Date, &row.Action, &row.Count); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("scan stats: %w", err))
			}
			stats = append(stats, row)
		}
		return stats, rows.Err()
	})
}

// RecordResolution stores an exception and its resolution; used to seed precedents
func (s *SQLStore) RecordResolution(ctx context.Context, resolutionID string, ev models.HistoricalEvent, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+database.TableExceptions+` WHERE event_id = ?`, ev.EventID,
	).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+database.TableExceptions+` (event_id, type, created_at) VALUES (?, ?, ?)`,
			ev.EventID, ev.EventType, database.FormatTime(at),
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO `+database.TableResolutions+`
		(resolution_id, event_id, action_name, reasoning, execution_status, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		resolutionID, ev.EventID, ev.Action, ev.Reasoning, string(ev.Outcome), database.FormatTime(at),
	); err != nil {
		return err
	}

	return tx.Commit()
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
