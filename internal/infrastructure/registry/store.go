package registry

import "context"

// Store persists registry records.
type Store interface {
	// Load returns every persisted record.
	Load(ctx context.Context) (*Records, error)
	// Save applies a changeset atomically.
	Save(ctx context.Context, changes *Changeset) error
}
