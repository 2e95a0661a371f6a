// Package storetest checks that a store.Store implementation behaves like
// the in-memory reference.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/store"
)

// Input returns a two-job graph used by the checks.
func Input() dag.DagInput {
	return dag.DagInput{Jobs: []dag.JobNode{
		{ID: "a", StartEndpoint: "http://jobs/a/start", ProgressEndpoint: "http://jobs/a/progress"},
		{ID: "b", StartEndpoint: "http://jobs/b/start", ProgressEndpoint: "http://jobs/b/progress", DependsOn: []string{"a"}},
	}}
}

// NewRecord builds a record holding the initial snapshot of Input.
func NewRecord(t *testing.T, id string) *store.Record {
	t.Helper()
	g, err := dag.Validate(Input())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &store.Record{
		InstanceID: id,
		Input:      Input(),
		Snapshot:   dag.NewSnapshot(id, g, now),
		CreatedAt:  now,
	}
}

// Run exercises s. s must start empty.
func Run(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		rec := NewRecord(t, "inst-create")
		if err := s.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := s.Create(ctx, rec); !errors.Is(err, store.ErrExists) {
			t.Fatalf("second Create() error = %v, want ErrExists", err)
		}
		got, err := s.Get(ctx, "inst-create")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if len(got.Input.Jobs) != 2 || got.Input.Jobs[1].DependsOn[0] != "a" {
			t.Errorf("Input = %+v", got.Input)
		}
		if got.Snapshot == nil || len(got.Snapshot.Jobs) != 2 || got.Snapshot.Jobs[0].State != dag.StatePending {
			t.Errorf("Snapshot = %+v", got.Snapshot)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		if _, err := s.Get(ctx, "nope"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Get() error = %v, want ErrNotFound", err)
		}
		snap := &dag.StatusSnapshot{InstanceID: "nope", Sequence: 1}
		if err := s.SaveSnapshot(ctx, snap); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("SaveSnapshot() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("save snapshot ignores stale sequence", func(t *testing.T) {
		rec := NewRecord(t, "inst-seq")
		if err := s.Create(ctx, rec); err != nil {
			t.Fatalf("Create: %v", err)
		}
		newer := rec.Snapshot.Clone()
		newer.Sequence = 5
		newer.Jobs[0].State = dag.StateRunning
		newer.Jobs[0].Running = true
		newer.Running = []string{"a"}
		if err := s.SaveSnapshot(ctx, newer); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}
		stale := rec.Snapshot.Clone()
		stale.Sequence = 4
		if err := s.SaveSnapshot(ctx, stale); err != nil {
			t.Fatalf("SaveSnapshot(stale): %v", err)
		}
		got, err := s.Get(ctx, "inst-seq")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got.Snapshot.Sequence != 5 || got.Snapshot.Jobs[0].State != dag.StateRunning {
			t.Errorf("stored snapshot seq=%d state=%s", got.Snapshot.Sequence, got.Snapshot.Jobs[0].State)
		}
	})

	t.Run("list active skips done instances", func(t *testing.T) {
		done := NewRecord(t, "inst-done")
		if err := s.Create(ctx, done); err != nil {
			t.Fatalf("Create: %v", err)
		}
		final := done.Snapshot.Clone()
		final.Sequence = 9
		final.Completed = true
		if err := s.SaveSnapshot(ctx, final); err != nil {
			t.Fatalf("SaveSnapshot: %v", err)
		}

		active, err := s.ListActive(ctx)
		if err != nil {
			t.Fatalf("ListActive: %v", err)
		}
		ids := map[string]bool{}
		for _, r := range active {
			ids[r.InstanceID] = true
		}
		if ids["inst-done"] || !ids["inst-create"] || !ids["inst-seq"] {
			t.Errorf("ListActive ids = %v", ids)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := s.Delete(ctx, "inst-create"); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := s.Get(ctx, "inst-create"); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("Get after Delete error = %v", err)
		}
		if err := s.Delete(ctx, "inst-create"); err != nil {
			t.Fatalf("second Delete: %v", err)
		}
	})
}
