package knowledge

import (
	"strings"

	"controltower/internal/models"
)

// NoSnippetMarker identifies index hits whose page had no extractable text
const NoSnippetMarker = "No snippet is available for this page"

// FilterReport counts what each stage removed
type FilterReport struct {
	ActiveCustomer  string
	QualityDropped  int
	CustomerDropped int
}

// Filter applies the quality and customer-exclusivity stages, preserving order
func Filter(docs []models.Document, query string, reg *Registry) []models.Document {
	out, _ := FilterWithReport(docs, query, reg)
	return out
}

// FilterWithReport is Filter plus a summary of the exclusions
func FilterWithReport(docs []models.Document, query string, reg *Registry) ([]models.Document, FilterReport) {
	var report FilterReport

	kept := make([]models.Document, 0, len(docs))
	for _, d := range docs {
		if strings.Contains(d.Content, NoSnippetMarker) {
			report.QualityDropped++
			continue
		}
		kept = append(kept, d)
	}

	active, ok := reg.ActiveCustomer(query)
	if !ok {
		return kept, report
	}
	report.ActiveCustomer = active

	others := reg.Others(active)
	out := make([]models.Document, 0, len(kept))
	for _, d := range kept {
		if mentionsAny(d, others) {
			report.CustomerDropped++
			continue
		}
		out = append(out, d)
	}
	return out, report
}

// mentionsAny reports whether title+content contains any of the lower-cased names
func mentionsAny(d models.Document, lowered []string) bool {
	text := strings.ToLower(d.Title + " " + d.Content)
	for _, name := range lowered {
		if strings.Contains(text, name) {
			return true
		}
	}
	return false
}
