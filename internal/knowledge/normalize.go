package knowledge

import (
	"strings"

	"controltower/internal/index"
	"controltower/internal/models"
)

const (
	snippetSeparator = "\n...\n"
	noContent        = "No content snippet."
	unknownTitle     = "Unknown"
	gcsScheme        = "gs://"
	gcsPublicPrefix  = "https://storage.googleapis.com/"
)

// Normalize converts a raw index hit into the canonical Document shape
func Normalize(hit index.RawHit) models.Document {
	uri := hit.DerivedLink
	if uri == "" {
		uri = hit.ContentURI
	}

	title := hit.StructTitle
	if title == "" {
		title = unknownTitle
		if uri != "" {
			title = uri[strings.LastIndex(uri, "/")+1:]
		}
	}

	parts := make([]string, 0, len(hit.Snippets))
	for _, s := range hit.Snippets {
		if s != "" {
			parts = append(parts, s)
		}
	}
	content := strings.Join(parts, snippetSeparator)
	if content == "" {
		content = noContent
	}

	return models.Document{
		ID:      hit.ID,
		Title:   title,
		Content: content,
		URL:     PublicURL(uri),
		URI:     uri,
	}
}

// NormalizeAll normalizes hits in order
func NormalizeAll(hits []index.RawHit) []models.Document {
	docs := make([]models.Document, 0, len(hits))
	for _, h := range hits {
		docs = append(docs, Normalize(h))
	}
	return docs
}

// PublicURL rewrites gs:// object URIs to their public HTTPS form
func PublicURL(uri string) string {
	if strings.HasPrefix(uri, gcsScheme) {
		return gcsPublicPrefix + strings.TrimPrefix(uri, gcsScheme)
	}
	return uri
}
