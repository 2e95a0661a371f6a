package dag

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/jobflow/logger"
)

// scriptRunner finishes each job immediately with a scripted outcome.
// Jobs without a script succeed.
type scriptRunner struct {
	mu       sync.Mutex
	failures map[string]string
	progress map[string][]int
	calls    []string
}

func (s *scriptRunner) Run(_ context.Context, job JobNode, report ProgressFunc) Result {
	s.mu.Lock()
	s.calls = append(s.calls, job.ID)
	msg, failed := s.failures[job.ID]
	steps := s.progress[job.ID]
	s.mu.Unlock()

	for _, p := range steps {
		report(Progress{Started: true, Progress: p})
	}
	if failed {
		return Result{JobID: job.ID, Error: msg}
	}
	return Result{JobID: job.ID, Success: true, Progress: Progress{Started: true, Progress: 100, Finished: true}}
}

func (s *scriptRunner) called() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestOrchestrator(t *testing.T, in DagInput, runner JobRunner, sub Substrate) *Orchestrator {
	t.Helper()
	g, err := Compile(in)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return NewOrchestrator(g, runner, sub, Options{Logger: logger.Nop()})
}

func assertIDs(t *testing.T, name string, got, want []string) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

func TestRunLinearChain(t *testing.T) {
	sub := NewMemorySubstrate()
	runner := &scriptRunner{}
	o := newTestOrchestrator(t, DagInput{Jobs: []JobNode{job("a"), job("b", "a")}}, runner, sub)

	snap, err := o.Run(context.Background(), "inst-1", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !snap.Completed || snap.Error != "" {
		t.Fatalf("snapshot completed=%v error=%q", snap.Completed, snap.Error)
	}
	assertIDs(t, "Finished", snap.Finished, []string{"a", "b"})
	assertIDs(t, "calls", runner.called(), []string{"a", "b"})
	if snap.LastJob != "b" || snap.InstanceID != "inst-1" {
		t.Errorf("LastJob=%q InstanceID=%q", snap.LastJob, snap.InstanceID)
	}

	last := sub.Last()
	if last == nil || !last.Completed || last.Sequence != snap.Sequence {
		t.Fatalf("last checkpoint = %+v", last)
	}
	snaps := sub.Snapshots()
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Sequence <= snaps[i-1].Sequence {
			t.Fatalf("sequence not increasing at %d: %d then %d", i, snaps[i-1].Sequence, snaps[i].Sequence)
		}
	}
	for _, d := range sub.Suspensions() {
		if d != DefaultInterval {
			t.Errorf("suspended %v, want %v", d, DefaultInterval)
		}
	}
}

func TestRunFailurePropagates(t *testing.T) {
	runner := &scriptRunner{failures: map[string]string{"a": "poll: status 500"}}
	o := newTestOrchestrator(t, DagInput{Jobs: []JobNode{
		job("a"),
		job("b", "a"),
		job("c", "b"),
		job("d"),
	}}, runner, NewMemorySubstrate())

	snap, err := o.Run(context.Background(), "inst", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertIDs(t, "Failed", snap.Failed, []string{"a"})
	assertIDs(t, "Skipped", snap.Skipped, []string{"b", "c"})
	assertIDs(t, "Finished", snap.Finished, []string{"d"})

	a, _ := snap.Job("a")
	b, _ := snap.Job("b")
	c, _ := snap.Job("c")
	if a.Error != "poll: status 500" || a.State != StateFailed {
		t.Errorf("a = %+v", a)
	}
	if b.Error != SkipReasonFailedDependency {
		t.Errorf("b.Error = %q", b.Error)
	}
	if c.Error != SkipReasonNoDependencyCompleted {
		t.Errorf("c.Error = %q", c.Error)
	}
	for _, id := range runner.called() {
		if id == "b" || id == "c" {
			t.Errorf("skipped job %s was run", id)
		}
	}
}

func TestRunSkippedDependencyStillSatisfiesWithCompletedPeer(t *testing.T) {
	for _, logic := range []DependencyLogic{LogicAll, LogicAny} {
		t.Run(string(logic), func(t *testing.T) {
			c := job("c", "a", "s")
			c.DependencyLogic = logic
			o := newTestOrchestrator(t, DagInput{
				Jobs: []JobNode{job("a"), job("s"), c},
				ConditionalRoutes: []ConditionalRoute{
					{ConditionJobID: "a", ExpectedOutcome: OutcomeFailure, TargetJobIDs: []string{"s"}},
				},
			}, &scriptRunner{}, NewMemorySubstrate())

			snap, err := o.Run(context.Background(), "inst", nil)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			assertIDs(t, "Finished", snap.Finished, []string{"a", "c"})
			assertIDs(t, "Skipped", snap.Skipped, []string{"s"})
		})
	}
}

func TestRunAllDependenciesSkipped(t *testing.T) {
	runner := &scriptRunner{}
	o := newTestOrchestrator(t, DagInput{
		Jobs: []JobNode{job("a"), job("s"), job("c", "s")},
		ConditionalRoutes: []ConditionalRoute{
			{ConditionJobID: "a", ExpectedOutcome: OutcomeFailure, TargetJobIDs: []string{"s"}},
		},
	}, runner, NewMemorySubstrate())

	snap, err := o.Run(context.Background(), "inst", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !snap.Completed || snap.Error != "" {
		t.Fatalf("snapshot completed=%v error=%q, want completed without error", snap.Completed, snap.Error)
	}
	assertIDs(t, "calls", runner.called(), []string{"a"})
	assertIDs(t, "Skipped", snap.Skipped, []string{"s", "c"})
	c, _ := snap.Job("c")
	if c.State != StateSkipped || c.Error != SkipReasonNoDependencyCompleted {
		t.Errorf("c = %s %q, want skipped %q", c.State, c.Error, SkipReasonNoDependencyCompleted)
	}
}

func TestRunConditionalRoutes(t *testing.T) {
	runner := &scriptRunner{}
	o := newTestOrchestrator(t, DagInput{
		Jobs: []JobNode{job("check"), job("deploy"), job("rollback")},
		ConditionalRoutes: []ConditionalRoute{
			{ConditionJobID: "check", ExpectedOutcome: OutcomeSuccess, TargetJobIDs: []string{"deploy"}},
			{ConditionJobID: "check", ExpectedOutcome: OutcomeFailure, TargetJobIDs: []string{"rollback"}},
		},
	}, runner, NewMemorySubstrate())

	snap, err := o.Run(context.Background(), "inst", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertIDs(t, "Finished", snap.Finished, []string{"check", "deploy"})
	assertIDs(t, "Skipped", snap.Skipped, []string{"rollback"})
	rb, _ := snap.Job("rollback")
	if rb.Error != SkipReasonRouteNotMatched {
		t.Errorf("rollback.Error = %q", rb.Error)
	}
}

func TestRunConditionalRouteOnFailure(t *testing.T) {
	runner := &scriptRunner{failures: map[string]string{"check": ErrMsgFailed}}
	o := newTestOrchestrator(t, DagInput{
		Jobs: []JobNode{job("check"), job("deploy"), job("rollback")},
		ConditionalRoutes: []ConditionalRoute{
			{ConditionJobID: "check", ExpectedOutcome: OutcomeSuccess, TargetJobIDs: []string{"deploy"}},
			{ConditionJobID: "check", ExpectedOutcome: OutcomeFailure, TargetJobIDs: []string{"rollback"}},
		},
	}, runner, NewMemorySubstrate())

	snap, err := o.Run(context.Background(), "inst", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertIDs(t, "Finished", snap.Finished, []string{"rollback"})
	assertIDs(t, "Skipped", snap.Skipped, []string{"deploy"})
	assertIDs(t, "Failed", snap.Failed, []string{"check"})
}

func TestRunStuckGraph(t *testing.T) {
	sub := NewMemorySubstrate()
	o := newTestOrchestrator(t, DagInput{Jobs: []JobNode{job("a", "b"), job("b", "a")}}, &scriptRunner{}, sub)

	snap, err := o.Run(context.Background(), "inst", nil)
	if !errors.Is(err, ErrNoRunnableJobs) {
		t.Fatalf("Run() error = %v, want ErrNoRunnableJobs", err)
	}
	if snap.Error != ErrNoRunnableJobs.Error() || snap.Completed {
		t.Errorf("snapshot error=%q completed=%v", snap.Error, snap.Completed)
	}
	if snap.Iteration != 1 {
		t.Errorf("Iteration = %d, want 1", snap.Iteration)
	}
	if last := sub.Last(); last == nil || last.Error == "" {
		t.Error("structural failure was not checkpointed")
	}
}

func TestRunResumeRedrivesRunningJobs(t *testing.T) {
	in := DagInput{Jobs: []JobNode{job("a"), job("b", "a"), job("c", "b")}}
	g, err := Compile(in)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	from := NewSnapshot("inst", g, now)
	from.Jobs[0].State, from.Jobs[0].Finished, from.Jobs[0].Progress = StateSucceeded, true, 100
	from.Jobs[1].State, from.Jobs[1].Running, from.Jobs[1].Started, from.Jobs[1].Progress = StateRunning, true, true, 40
	from.Sequence = 7
	from.Iteration = 3

	runner := &scriptRunner{}
	snap, err := NewOrchestrator(g, runner, NewMemorySubstrate(), Options{Logger: logger.Nop()}).Run(context.Background(), "inst", from)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertIDs(t, "calls", runner.called(), []string{"b", "c"})
	assertIDs(t, "Finished", snap.Finished, []string{"a", "b", "c"})
	if snap.Sequence <= 7 || snap.Iteration <= 3 {
		t.Errorf("counters did not continue: sequence %d iteration %d", snap.Sequence, snap.Iteration)
	}
	a, _ := snap.Job("a")
	if !a.LastUpdated.Equal(now) {
		t.Errorf("completed job was touched: %v", a.LastUpdated)
	}
}

func TestRunResumeLeavesResolvedJobsUnchanged(t *testing.T) {
	in := DagInput{Jobs: []JobNode{
		job("a"), job("b", "a"), job("c", "b"),
		job("e"), job("f", "e"), job("g", "f"),
	}}
	g, err := Compile(in)
	if err != nil {
		t.Fatal(err)
	}
	then := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	from := NewSnapshot("inst", g, then)
	mark := func(i int, state JobState, progress int, finished bool, msg string) {
		st := &from.Jobs[i]
		st.State, st.Progress, st.Started, st.Finished, st.Error = state, progress, true, finished, msg
		st.Running = state == StateRunning
		st.LastUpdated = then.Add(time.Duration(i) * time.Second)
	}
	mark(0, StateSucceeded, 100, true, "")
	mark(1, StateRunning, 40, false, "")
	mark(3, StateSucceeded, 100, true, "")
	mark(4, StateFailed, 30, false, ErrMsgFailed)
	from.Jobs[5].State, from.Jobs[5].Error = StateSkipped, SkipReasonFailedDependency
	before := from.Clone()

	runner := &scriptRunner{}
	snap, err := NewOrchestrator(g, runner, NewMemorySubstrate(), Options{Logger: logger.Nop()}).Run(context.Background(), "inst", from)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertIDs(t, "calls", runner.called(), []string{"b", "c"})
	for _, id := range []string{"a", "e", "f", "g"} {
		want, _ := before.Job(id)
		got, _ := snap.Job(id)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("job %s changed across restart:\n got %+v\nwant %+v", id, got, want)
		}
	}
}

func TestRunResumeFinishedSnapshot(t *testing.T) {
	g, _ := Compile(DagInput{Jobs: []JobNode{job("a")}})
	from := NewSnapshot("inst", g, time.Now())
	from.Jobs[0].State = StateSucceeded
	from.Finished = []string{"a"}
	from.Completed = true

	runner := &scriptRunner{}
	sub := NewMemorySubstrate()
	snap, err := NewOrchestrator(g, runner, sub, Options{Logger: logger.Nop()}).Run(context.Background(), "inst", from)
	if err != nil || !snap.Completed {
		t.Fatalf("Run() = %+v, %v", snap, err)
	}
	if len(runner.called()) != 0 || len(sub.Snapshots()) != 0 {
		t.Error("finished instance was driven again")
	}
}

func TestRunRejectsMismatchedSnapshot(t *testing.T) {
	g, _ := Compile(DagInput{Jobs: []JobNode{job("a")}})
	other, _ := Compile(DagInput{Jobs: []JobNode{job("z")}})
	from := NewSnapshot("inst", other, time.Now())

	_, err := NewOrchestrator(g, &scriptRunner{}, NewMemorySubstrate(), Options{}).Run(context.Background(), "inst", from)
	if !errors.Is(err, ErrSnapshotMismatch) {
		t.Fatalf("Run() error = %v, want ErrSnapshotMismatch", err)
	}
}

func TestRunCheckpointFailure(t *testing.T) {
	down := errors.New("store down")
	sub := &MemorySubstrate{FailCheckpoint: down}
	o := newTestOrchestrator(t, DagInput{Jobs: []JobNode{job("a")}}, &scriptRunner{}, sub)

	if _, err := o.Run(context.Background(), "inst", nil); !errors.Is(err, down) {
		t.Fatalf("Run() error = %v, want %v", err, down)
	}
}

func TestRunCheckpointsProgress(t *testing.T) {
	sub := NewMemorySubstrate()
	runner := &scriptRunner{progress: map[string][]int{"a": {30, 30, 70}}}
	o := newTestOrchestrator(t, DagInput{Jobs: []JobNode{job("a")}}, runner, sub)

	if _, err := o.Run(context.Background(), "inst", nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var seen []int
	for _, s := range sub.Snapshots() {
		a, _ := s.Job("a")
		if a.State == StateRunning && (len(seen) == 0 || seen[len(seen)-1] != a.Progress) {
			seen = append(seen, a.Progress)
		}
	}
	if !reflect.DeepEqual(seen, []int{0, 30, 70}) {
		t.Errorf("running progress checkpoints = %v, want [0 30 70]", seen)
	}

	running := 0
	for _, s := range sub.Snapshots() {
		if a, _ := s.Job("a"); a.State == StateRunning {
			running++
		}
	}
	if running != 3 {
		t.Errorf("running checkpoints = %d, want 3 (repeated progress is not checkpointed)", running)
	}
}

func TestRunProgressDoesNotMarkRunningJobFinished(t *testing.T) {
	sub := NewMemorySubstrate()
	runner := RunnerFunc(func(_ context.Context, job JobNode, report ProgressFunc) Result {
		report(Progress{Started: true, Progress: 60, Finished: true})
		return Result{JobID: job.ID, Error: ErrMsgFailed, Progress: Progress{Started: true, Progress: 60, Finished: true}}
	})
	o := newTestOrchestrator(t, DagInput{Jobs: []JobNode{job("a")}}, runner, sub)

	snap, err := o.Run(context.Background(), "inst", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, s := range sub.Snapshots() {
		if a, _ := s.Job("a"); a.Finished && a.State != StateSucceeded {
			t.Errorf("checkpoint %d shows %s job as finished", s.Sequence, a.State)
		}
	}
	a, _ := snap.Job("a")
	if a.State != StateFailed || a.Finished || a.Progress != 60 {
		t.Errorf("a = %+v, want failed at 60 and not finished", a)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := RunnerFunc(func(rctx context.Context, job JobNode, _ ProgressFunc) Result {
		cancel()
		<-rctx.Done()
		return Result{JobID: job.ID, Interrupted: true, Error: rctx.Err().Error()}
	})
	sub := NewMemorySubstrate()
	o := newTestOrchestrator(t, DagInput{Jobs: []JobNode{job("a")}}, runner, sub)

	if _, err := o.Run(ctx, "inst", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if last := sub.Last(); last != nil {
		if a, _ := last.Job("a"); a.State != StateRunning {
			t.Errorf("interrupted job recorded as %s", a.State)
		}
	}
}
