package index

import (
	"context"
	"fmt"

	"controltower/internal/models"
)

// UnavailableBackend stands in for a live index that was not configured.
// Every call fails with ErrBackendUnavailable so requests degrade instead of crashing.
type UnavailableBackend struct {
	reason string
}

// NewUnavailableBackend creates a backend that always reports reason
func NewUnavailableBackend(reason string) *UnavailableBackend {
	return &UnavailableBackend{reason: reason}
}

func (u *UnavailableBackend) err() error {
	return fmt.Errorf("%w: %s", models.ErrBackendUnavailable, u.reason)
}

// Search always fails
func (u *UnavailableBackend) Search(ctx context.Context, query string, limit int) ([]RawHit, error) {
	return nil, u.err()
}

// List always fails
func (u *UnavailableBackend) List(ctx context.Context, max int) ([]models.IndexedDocument, error) {
	return nil, u.err()
}

// Ping always fails
func (u *UnavailableBackend) Ping(ctx context.Context) error {
	return u.err()
}
