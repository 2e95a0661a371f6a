package store

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/jobflow/dag"
)

var (
	ErrNotFound = errors.New("store: instance not found")
	ErrExists   = errors.New("store: instance already exists")
)

// Record is one orchestration instance.
type Record struct {
	InstanceID string              `json:"instanceId"`
	Input      dag.DagInput        `json:"input"`
	Snapshot   *dag.StatusSnapshot `json:"snapshot"`
	CreatedAt  time.Time           `json:"createdAt"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// Store persists Records. Implementations must be safe for concurrent use.
type Store interface {
	// Create stores a new record; ErrExists if the id is taken.
	Create(ctx context.Context, rec *Record) error
	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, instanceID string) (*Record, error)
	// SaveSnapshot replaces the record's snapshot. A snapshot whose Sequence
	// is not newer than the stored one is ignored.
	SaveSnapshot(ctx context.Context, snap *dag.StatusSnapshot) error
	// ListActive returns records whose snapshot is not done.
	ListActive(ctx context.Context) ([]*Record, error)
	// Delete removes a record; deleting a missing record is not an error.
	Delete(ctx context.Context, instanceID string) error
}

// Newer reports whether snap should replace stored.
func Newer(stored, snap *dag.StatusSnapshot) bool {
	return stored == nil || snap.Sequence > stored.Sequence
}
