package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kbukum/jobflow/dag"
)

// Memory is an in-process Store.
type Memory struct {
	mu      sync.RWMutex
	records map[string]*Record
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{records: make(map[string]*Record), now: time.Now}
}

func (m *Memory) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.InstanceID]; ok {
		return fmt.Errorf("%w: %s", ErrExists, rec.InstanceID)
	}
	c := *rec
	c.Snapshot = rec.Snapshot.Clone()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	c.UpdatedAt = c.CreatedAt
	m.records[rec.InstanceID] = &c
	return nil
}

func (m *Memory) Get(_ context.Context, instanceID string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[instanceID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, instanceID)
	}
	c := *rec
	c.Snapshot = rec.Snapshot.Clone()
	return &c, nil
}

func (m *Memory) SaveSnapshot(_ context.Context, snap *dag.StatusSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[snap.InstanceID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, snap.InstanceID)
	}
	if !Newer(rec.Snapshot, snap) {
		return nil
	}
	rec.Snapshot = snap.Clone()
	rec.UpdatedAt = m.now()
	return nil
}

func (m *Memory) ListActive(_ context.Context) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Record
	for _, rec := range m.records {
		if rec.Snapshot != nil && rec.Snapshot.Done() {
			continue
		}
		c := *rec
		c.Snapshot = rec.Snapshot.Clone()
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Delete(_ context.Context, instanceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, instanceID)
	return nil
}
