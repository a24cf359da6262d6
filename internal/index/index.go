package index

import (
	"context"

	"controltower/internal/models"
)

// RawHit is a search hit as the backend returned it, before normalization.
// Any field may be empty.
type RawHit struct {
	ID          string
	StructTitle string
	Snippets    []string
	ContentURI  string
	DerivedLink string
}

// Backend is the contract the knowledge pipeline needs from a document search index
type Backend interface {
	Search(ctx context.Context, query string, limit int) ([]RawHit, error)
	List(ctx context.Context, max int) ([]models.IndexedDocument, error)
}

// Importer is implemented by backends that can (re)ingest documents from object storage
type Importer interface {
	Import(ctx context.Context) (operation string, err error)
}

// Pinger is implemented by backends that support a cheap reachability check
type Pinger interface {
	Ping(ctx context.Context) error
}
