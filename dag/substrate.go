package dag

import (
	"context"
	"sync"
	"time"
)

// Suspender yields for at least d, returning early only when ctx ends.
type Suspender interface {
	Suspend(ctx context.Context, d time.Duration) error
}

// Substrate is what the orchestration loop needs from its host: durable
// checkpoints and timers. Checkpoint must persist snap before returning.
type Substrate interface {
	Suspender
	Checkpoint(ctx context.Context, snap *StatusSnapshot) error
}

// WallClock suspends on a real timer.
type WallClock struct{}

func (WallClock) Suspend(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MemorySubstrate keeps every checkpoint in memory and never sleeps. It backs
// tests and one-shot runs.
type MemorySubstrate struct {
	mu          sync.Mutex
	snapshots   []*StatusSnapshot
	suspensions []time.Duration

	// FailCheckpoint, when set, is returned by Checkpoint.
	FailCheckpoint error
}

func NewMemorySubstrate() *MemorySubstrate {
	return &MemorySubstrate{}
}

func (m *MemorySubstrate) Checkpoint(_ context.Context, snap *StatusSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCheckpoint != nil {
		return m.FailCheckpoint
	}
	m.snapshots = append(m.snapshots, snap.Clone())
	return nil
}

func (m *MemorySubstrate) Suspend(ctx context.Context, d time.Duration) error {
	m.mu.Lock()
	m.suspensions = append(m.suspensions, d)
	m.mu.Unlock()
	return ctx.Err()
}

// Snapshots returns every checkpoint in order.
func (m *MemorySubstrate) Snapshots() []*StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*StatusSnapshot, len(m.snapshots))
	for i, s := range m.snapshots {
		out[i] = s.Clone()
	}
	return out
}

// Last returns the most recent checkpoint, or nil.
func (m *MemorySubstrate) Last() *StatusSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.snapshots) == 0 {
		return nil
	}
	return m.snapshots[len(m.snapshots)-1].Clone()
}

// Suspensions returns the durations passed to Suspend.
func (m *MemorySubstrate) Suspensions() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.suspensions...)
}
