package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"controltower/internal/health"
	"controltower/internal/index"
	"controltower/internal/knowledge"
	"controltower/internal/mode"
	"controltower/internal/models"
)

// MaxListedDocuments caps the /list_docs response
const MaxListedDocuments = 50

// KnowledgeService runs the retrieval pipeline: index search, normalization, contextual filtering
type KnowledgeService struct {
	registry *knowledge.RegistryHolder
	limits   index.LimitSource
	health   *health.Service
	metrics  *Metrics
}

// NewKnowledgeService creates the knowledge pipeline
func NewKnowledgeService(registry *knowledge.RegistryHolder, limits index.LimitSource, healthSvc *health.Service, metrics *Metrics) *KnowledgeService {
	return &KnowledgeService{
		registry: registry,
		limits:   limits,
		health:   healthSvc,
		metrics:  metrics,
	}
}

// Search returns the filtered documents for query. A panic anywhere in the
// pipeline is recovered and reported as ErrBackendUnavailable.
func (s *KnowledgeService) Search(ctx context.Context, ds mode.DataSource, query string) (docs []models.Document, err error) {
	start := time.Now()
	// Only a missing query is malformed; whitespace still goes to the index
	if query == "" {
		s.metrics.RecordSearch("malformed", ds.Simulated, time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: query is required", models.ErrMalformedInput)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("knowledge pipeline panicked", "query", query, "panic", r)
			docs, err = nil, fmt.Errorf("%w: search pipeline failed: %v", models.ErrBackendUnavailable, r)
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		s.metrics.RecordSearch(status, ds.Simulated, time.Since(start).Seconds())
	}()

	limit := s.limits.Limit()
	hits, err := ds.Index.Search(ctx, query, limit)
	s.observe(ds, health.ComponentIndex, err)
	if err != nil {
		slog.Warn("index search failed", "query", query, "limit", limit, "error", err)
		return nil, ensureUnavailable(err)
	}

	normalized := knowledge.NormalizeAll(hits)
	reg := s.registry.Snapshot()
	filtered, report := knowledge.FilterWithReport(normalized, query, reg)
	s.metrics.RecordExclusions(report.QualityDropped, report.CustomerDropped)

	slog.Debug("knowledge search complete",
		"query", query,
		"limit", limit,
		"hits", len(hits),
		"returned", len(filtered),
		"active_customer", report.ActiveCustomer,
		"quality_dropped", report.QualityDropped,
		"customer_dropped", report.CustomerDropped,
	)

	return filtered, nil
}

// ListDocuments returns up to MaxListedDocuments entries from the index
func (s *KnowledgeService) ListDocuments(ctx context.Context, ds mode.DataSource) ([]models.IndexedDocument, error) {
	docs, err := ds.Index.List(ctx, MaxListedDocuments)
	s.observe(ds, health.ComponentIndex, err)
	if err != nil {
		return nil, ensureUnavailable(err)
	}
	if len(docs) > MaxListedDocuments {
		docs = docs[:MaxListedDocuments]
	}
	return docs, nil
}

// ImportDocuments asks the index to ingest the configured source documents
func (s *KnowledgeService) ImportDocuments(ctx context.Context, ds mode.DataSource) (string, error) {
	importer, ok := ds.Index.(index.Importer)
	if !ok {
		return "", fmt.Errorf("%w: index does not support document import", models.ErrBackendUnavailable)
	}

	operation, err := importer.Import(ctx)
	s.observe(ds, health.ComponentIndex, err)
	if err != nil {
		return "", ensureUnavailable(err)
	}
	slog.Info("document import started", "operation", operation, "simulation", ds.Simulated)
	return operation, nil
}

// observe feeds live backend outcomes into the health tracker
func (s *KnowledgeService) observe(ds mode.DataSource, component health.Component, err error) {
	observeBackend(s.health, ds, component, err)
}

func observeBackend(h *health.Service, ds mode.DataSource, component health.Component, err error) {
	if h == nil || ds.Simulated {
		return
	}
	if err != nil {
		h.MarkUnhealthy(component, err.Error())
		return
	}
	h.MarkHealthy(component)
}
