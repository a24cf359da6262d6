package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"controltower/internal/mode"
	"controltower/internal/models"

	"github.com/google/uuid"
)

const defaultAuditTimeout = 5 * time.Second

// DecisionPublisher fans out appended decision records
type DecisionPublisher interface {
	PublishDecision(ctx context.Context, rec models.DecisionLogRecord) error
}

// AuditService writes one decision log record per tool invocation.
// Writes are best effort: failures are logged and counted, never returned.
type AuditService struct {
	agentVersion string
	timeout      time.Duration
	publisher    DecisionPublisher
	metrics      *Metrics
	wg           sync.WaitGroup
	now          func() time.Time
}

// NewAuditService creates the decision audit logger. publisher may be nil.
func NewAuditService(agentVersion string, timeout time.Duration, publisher DecisionPublisher, metrics *Metrics) *AuditService {
	if timeout <= 0 {
		timeout = defaultAuditTimeout
	}
	return &AuditService{
		agentVersion: agentVersion,
		timeout:      timeout,
		publisher:    publisher,
		metrics:      metrics,
		now:          time.Now,
	}
}

// Record builds the decision record and appends it in the background.
// The append runs under its own deadline so it outlives the request.
func (a *AuditService) Record(ds mode.DataSource, entry models.DecisionEntry) models.DecisionLogRecord {
	rec := a.build(entry)

	if ds.Simulated || ds.Events == nil {
		slog.Debug("simulation: decision not persisted",
			"log_id", rec.LogID,
			"event_id", rec.EventID,
			"action", rec.ActionName,
			"tool_parameters", rec.ToolParameters,
		)
		a.metrics.RecordAudit("skipped")
		return rec
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("decision log append panicked", "log_id", rec.LogID, "panic", r)
				a.metrics.RecordAudit("failure")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := ds.Events.AppendDecision(ctx, rec); err != nil {
			slog.Warn("failed to append decision log record",
				"log_id", rec.LogID,
				"event_id", rec.EventID,
				"action", rec.ActionName,
				"error", err,
			)
			a.metrics.RecordAudit("failure")
			return
		}
		a.metrics.RecordAudit("success")

		if a.publisher != nil {
			if err := a.publisher.PublishDecision(ctx, rec); err != nil {
				slog.Debug("failed to publish decision", "log_id", rec.LogID, "error", err)
			}
		}
	}()

	return rec
}

// Wait blocks until every in-flight append has finished
func (a *AuditService) Wait() {
	a.wg.Wait()
}

func (a *AuditService) build(entry models.DecisionEntry) models.DecisionLogRecord {
	eventID := entry.EventID
	if eventID == "" {
		eventID = models.UnknownEventID
	}
	agentVersion := entry.AgentVersion
	if agentVersion == "" {
		agentVersion = a.agentVersion
	}
	status := entry.Status
	if status == "" {
		status = models.StatusSuccess
	}
	latency := entry.Latency.Milliseconds()
	if latency < 0 {
		latency = 0
	}

	return models.DecisionLogRecord{
		LogID:              uuid.New().String(),
		Timestamp:          a.now().UTC(),
		EventID:            eventID,
		AgentVersion:       agentVersion,
		TriggerType:        entry.TriggerType,
		CustomerTier:       entry.CustomerTier,
		Confidence:         clampConfidence(entry.Confidence),
		Reasoning:          entry.Reasoning,
		ActionName:         entry.ActionName,
		ToolParameters:     encodeParams(entry.Params),
		ExecutionStatus:    status,
		ExecutionLatencyMs: latency,
	}
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// encodeParams renders tool parameters as JSON, falling back to Go formatting
func encodeParams(params interface{}) string {
	if params == nil {
		return "{}"
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%+v", params)
	}
	return string(data)
}
