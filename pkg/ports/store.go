package ports

import (
	"context"

	"github.com/aretw0/statecraft/pkg/domain"
)

// SnapshotStore persists machine snapshots keyed by machine id.
type SnapshotStore interface {
	// Save persists the record for key, replacing any previous one.
	Save(ctx context.Context, key string, rec *domain.Record) error

	// Load retrieves the record for key.
	// Returns domain.ErrSnapshotNotFound if nothing is stored.
	Load(ctx context.Context, key string) (*domain.Record, error)

	// Delete removes the record for key. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// List returns the keys that currently hold a record.
	List(ctx context.Context) ([]string, error)
}
