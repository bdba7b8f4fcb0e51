package reconcile

import (
	"context"
	"time"

	"tag-sync/core/store"
)

// Index lists the records held by a container.
type Index interface {
	// Name returns the container name.
	Name() string
	// Names returns every "group:name" identity in the container.
	Names() []string
}

// Lister lists store keys with their last-modified stamps.
type Lister interface {
	ListKeys(ctx context.Context, prefix string) ([]store.KeyInfo, error)
}

// Stamps loads the last-synced time of every record of a container.
type Stamps interface {
	Load(ctx context.Context, container string) (map[string]time.Time, error)
}

// Sources bundles the three sources of truth. Ledger may be nil, in which case
// no record has a stamp.
type Sources struct {
	Container Index
	Store     Lister
	Ledger    Stamps
}

// Mutator executes planned actions. Keys are "group:name" record keys.
type Mutator interface {
	// Upload pushes records from the container to the store.
	Upload(ctx context.Context, keys []string) error
	// Download writes records from the store into the container.
	Download(ctx context.Context, keys []string) error
	// DeleteStore removes snapshots that no longer have a container record.
	DeleteStore(ctx context.Context, keys []string) error
}
