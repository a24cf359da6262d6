package index

import (
	"context"
	"fmt"
	"os"
	"strings"

	"controltower/internal/models"

	"gopkg.in/yaml.v3"
)

// FixtureDocument is a canned policy document used in simulation mode
type FixtureDocument struct {
	ID       string   `yaml:"id"`
	Title    string   `yaml:"title"`
	Content  string   `yaml:"content"`
	Keywords []string `yaml:"keywords"`
}

// DefaultFixtureDocuments is the deterministic simulation corpus
func DefaultFixtureDocuments() []FixtureDocument {
	return []FixtureDocument{
		{
			ID:    "doc-vip-900",
			Title: "MSA - Global Retail VIP",
			Content: "SERVICE LEVEL AGREEMENT (SLA)\nProvider guarantees 98% on-time delivery for all shipments.\n" +
				"For VIP Platinum tier, any LATE SHIPMENT exceeding 24 hours requires immediate remediation via expedited replacement.\n" +
				"Delayed shipments trigger a 5% penalty clause.",
			Keywords: []string{"vip", "retail", "techgiant", "late", "shipment"},
		},
		{
			ID:    "doc-sla-001",
			Title: "SOP - HealthPlus Pharma",
			Content: "TEMPERATURE CONTROL\nAll shipments must be maintained between 2°C and 8°C. " +
				"Any excursion above 8°C for more than 4 hours renders the product 'Adulterated'.",
			Keywords: []string{"pharma", "health", "temperature", "vaccine", "insulin"},
		},
		{
			ID:    "doc-ops-202",
			Title: "SOP - Inventory Shortage Resolution",
			Content: "INVENTORY ALLOCATION\nWhen stock < demand:\n1. Search alternate DCs within 500 miles.\n" +
				"2. If not available, offer similar SKU substitution (requires customer consent).\n" +
				"3. Cancel order if no resolution within 48h.",
			Keywords: []string{"inventory", "shortage", "stock", "retail", "techgiant"},
		},
	}
}

// FixtureBackend serves a fixed in-memory corpus with keyword matching
type FixtureBackend struct {
	docs []FixtureDocument
}

// NewFixtureBackend creates a fixture index; nil docs selects DefaultFixtureDocuments
func NewFixtureBackend(docs []FixtureDocument) *FixtureBackend {
	if docs == nil {
		docs = DefaultFixtureDocuments()
	}
	return &FixtureBackend{docs: docs}
}

// Search returns documents whose keywords occur in the query, capped at limit.
// An empty query matches everything; when nothing matches the whole corpus is returned.
func (f *FixtureBackend) Search(ctx context.Context, query string, limit int) ([]RawHit, error) {
	q := strings.ToLower(query)

	var hits []RawHit
	for _, d := range f.docs {
		if q == "" || matchesAny(q, d.Keywords) {
			hits = append(hits, d.hit())
		}
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	if len(hits) == 0 {
		for _, d := range f.docs {
			hits = append(hits, d.hit())
		}
	}
	return hits, nil
}

// List returns every fixture document
func (f *FixtureBackend) List(ctx context.Context, max int) ([]models.IndexedDocument, error) {
	docs := make([]models.IndexedDocument, 0, len(f.docs))
	for _, d := range f.docs {
		if max > 0 && len(docs) >= max {
			break
		}
		docs = append(docs, models.IndexedDocument{ID: d.ID, Title: d.Title})
	}
	return docs, nil
}

func (d FixtureDocument) hit() RawHit {
	return RawHit{ID: d.ID, StructTitle: d.Title, Snippets: []string{d.Content}}
}

func matchesAny(query string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(query, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

// Import pretends to start an ingestion so simulated admin flows complete
func (f *FixtureBackend) Import(ctx context.Context) (string, error) {
	return "operations/simulated-import", nil
}

// LoadFixtureDocuments reads a YAML list of simulation documents
func LoadFixtureDocuments(path string) ([]FixtureDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures file: %w", err)
	}

	var file struct {
		Documents []FixtureDocument `yaml:"documents"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse fixtures file: %w", err)
	}
	if len(file.Documents) == 0 {
		return nil, fmt.Errorf("fixtures file %s has no documents", path)
	}
	return file.Documents, nil
}
