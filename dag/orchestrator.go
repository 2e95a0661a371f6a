package dag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/jobflow/logger"
)

// DefaultInterval is the pause between loop iterations and between polls.
const DefaultInterval = 2 * time.Second

// Options configures an Orchestrator.
type Options struct {
	// LoopInterval is the pause between iterations. Defaults to DefaultInterval.
	LoopInterval time.Duration
	Logger       *logger.Logger
	Now          func() time.Time
}

// Orchestrator runs one graph to completion. It is the only writer of job
// status: runners report back over a channel and the loop folds their
// results in one at a time.
type Orchestrator struct {
	graph     *Graph
	runner    JobRunner
	substrate Substrate
	interval  time.Duration
	log       *logger.Logger
	now       func() time.Time
}

func NewOrchestrator(g *Graph, runner JobRunner, substrate Substrate, opts Options) *Orchestrator {
	if opts.LoopInterval <= 0 {
		opts.LoopInterval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = logger.WithComponent("orchestrator")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		graph:     g,
		runner:    runner,
		substrate: substrate,
		interval:  opts.LoopInterval,
		log:       opts.Logger,
		now:       opts.Now,
	}
}

type runEvent struct {
	jobID    string
	progress *Progress
	result   *Result
}

// run is the state of one Run call.
type run struct {
	o          *Orchestrator
	ctx        context.Context
	instanceID string
	t          *table
	log        *logger.Logger

	runCtx      context.Context
	wg          sync.WaitGroup
	events      chan runEvent
	outstanding int
}

// Run drives the instance until every job is terminal and returns the final
// snapshot. Pass the last checkpoint as from to resume; jobs it shows as
// running are started again since their outcome is unknown. A stuck graph
// ends with ErrNoRunnableJobs and a snapshot carrying that error.
func (o *Orchestrator) Run(ctx context.Context, instanceID string, from *StatusSnapshot) (*StatusSnapshot, error) {
	t, err := o.restore(from)
	if err != nil {
		return nil, err
	}
	if from != nil && from.Done() {
		if from.Error != "" {
			return from.Clone(), ErrNoRunnableJobs
		}
		return from.Clone(), nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		o:          o,
		ctx:        ctx,
		instanceID: instanceID,
		t:          t,
		log:        o.log.WithFields(logger.Fields(logger.FieldInstanceID, instanceID)),
		runCtx:     runCtx,
		events:     make(chan runEvent, 2*o.graph.Len()+1),
	}
	defer func() {
		cancel()
		r.wg.Wait()
	}()

	for _, id := range t.order {
		if t.byID[id].State == StateRunning {
			r.log.Info("re-driving job with unknown outcome", logger.Fields(logger.FieldJobID, id))
			r.launch(id)
		}
	}
	return r.loop()
}

func (r *run) loop() (*StatusSnapshot, error) {
	t := r.t
	for {
		t.iter++
		changed := r.evaluate()
		if t.allTerminal() {
			break
		}

		if r.outstanding == 0 {
			t.err = ErrNoRunnableJobs.Error()
			r.log.Error("orchestration stuck", logger.Fields(logger.FieldIteration, t.iter, logger.FieldError, t.err))
			snap, err := r.checkpoint()
			if err != nil {
				return nil, err
			}
			return snap, ErrNoRunnableJobs
		}

		if changed {
			if _, err := r.checkpoint(); err != nil {
				return nil, err
			}
		}
		if err := r.await(); err != nil {
			return nil, err
		}
		if t.allTerminal() {
			break
		}
		if err := r.o.substrate.Suspend(r.ctx, r.o.interval); err != nil {
			return nil, err
		}
	}

	t.complete = true
	snap, err := r.checkpoint()
	if err != nil {
		return nil, err
	}
	r.log.Info("orchestration completed", logger.Fields(
		"finished", len(snap.Finished), "failed", len(snap.Failed), "skipped", len(snap.Skipped),
		logger.FieldIteration, t.iter,
	))
	return snap, nil
}

// evaluate applies gate, failure propagation and readiness to every pending
// job. Skips can unblock further skips, so passes repeat until none happen.
func (r *run) evaluate() bool {
	changed := false
	for {
		skipped := false
		sets := r.t.sets()
		for _, id := range r.t.order {
			if r.t.byID[id].State != StatePending {
				continue
			}
			job, _ := r.o.graph.Job(id)
			action, reason := Decide(job, r.o.graph.Routes(id), sets)
			switch action {
			case ActionSkip:
				r.t.skip(id, reason, r.o.now())
				r.log.Info("job skipped", logger.Fields(logger.FieldJobID, id, "reason", reason))
				skipped, changed = true, true
			case ActionLaunch:
				r.t.start(id, r.o.now())
				r.log.Info("job launched", logger.Fields(logger.FieldJobID, id))
				r.launch(id)
				changed = true
			}
		}
		if !skipped {
			return changed
		}
	}
}

func (r *run) launch(id string) {
	job, _ := r.o.graph.Job(id)
	r.outstanding++
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		report := func(p Progress) {
			select {
			case r.events <- runEvent{jobID: id, progress: &p}:
			case <-r.runCtx.Done():
			}
		}
		res := r.o.runner.Run(r.runCtx, job, report)
		res.JobID = id
		select {
		case r.events <- runEvent{jobID: id, result: &res}:
		case <-r.runCtx.Done():
		}
	}()
}

// await blocks until one runner finishes, then folds in whatever else has
// already arrived without blocking again.
func (r *run) await() error {
	resolved := false
	for {
		var ev runEvent
		if resolved {
			select {
			case ev = <-r.events:
			default:
				return nil
			}
		} else {
			select {
			case <-r.ctx.Done():
				return r.ctx.Err()
			case ev = <-r.events:
			}
		}
		if err := r.ctx.Err(); err != nil {
			return err
		}

		changed := false
		if ev.result != nil {
			r.outstanding--
			r.resolve(*ev.result)
			changed, resolved = true, true
		} else {
			changed = r.t.applyProgress(ev.jobID, *ev.progress, r.o.now())
		}
		if changed {
			if _, err := r.checkpoint(); err != nil {
				return err
			}
		}
	}
}

func (r *run) resolve(res Result) {
	if res.Success {
		r.log.Info("job finished", logger.Fields(logger.FieldJobID, res.JobID))
	} else {
		if res.Error == "" {
			res.Error = ErrMsgFailed
		}
		r.log.Warn("job failed", logger.Fields(logger.FieldJobID, res.JobID, logger.FieldError, res.Error))
	}
	r.t.resolve(res, r.o.now())
}

func (r *run) checkpoint() (*StatusSnapshot, error) {
	r.t.seq++
	snap := r.t.snapshot(r.instanceID, r.o.now())
	if err := r.o.substrate.Checkpoint(r.ctx, snap); err != nil {
		r.log.Error("checkpoint failed", logger.Fields(logger.FieldSequence, snap.Sequence, logger.FieldError, err.Error()))
		return nil, fmt.Errorf("dag: checkpoint: %w", err)
	}
	return snap, nil
}

func (o *Orchestrator) restore(from *StatusSnapshot) (*table, error) {
	t := newTable(o.graph, o.now())
	if from == nil {
		return t, nil
	}

	seen := make(map[string]bool, len(from.Jobs))
	for _, st := range from.Jobs {
		cur, ok := t.byID[st.ID]
		if !ok {
			return nil, fmt.Errorf("%w: unknown job %q", ErrSnapshotMismatch, st.ID)
		}
		*cur = st.normalized()
		seen[st.ID] = true
	}
	if len(seen) != len(t.order) {
		return nil, fmt.Errorf("%w: snapshot has %d of %d jobs", ErrSnapshotMismatch, len(seen), len(t.order))
	}

	t.lastJob = from.LastJob
	t.err = from.Error
	t.complete = from.Completed
	t.iter = from.Iteration
	t.seq = from.Sequence
	return t, nil
}

func (t *table) start(id string, now time.Time) {
	st := t.byID[id]
	st.State = StateRunning
	st.Running = true
	st.Started = true
	st.LastUpdated = now
}

func (t *table) skip(id, reason string, now time.Time) {
	st := t.byID[id]
	st.State = StateSkipped
	st.Running = false
	st.Error = reason
	st.LastUpdated = now
}

// applyProgress copies a poll into a running job and reports whether any
// visible field changed. Finished stays false until resolve records a
// success.
func (t *table) applyProgress(id string, p Progress, now time.Time) bool {
	st, ok := t.byID[id]
	if !ok || st.State != StateRunning {
		return false
	}
	progress := clampProgress(p.Progress)
	changed := st.Progress != progress || st.Started != p.Started
	st.Progress = progress
	st.Started = p.Started
	st.LastUpdated = now
	return changed
}

func (t *table) resolve(res Result, now time.Time) {
	st, ok := t.byID[res.JobID]
	if !ok || st.State != StateRunning {
		return
	}
	st.Running = false
	st.LastUpdated = now
	if res.Success {
		st.State = StateSucceeded
		st.Started = true
		st.Finished = true
		st.Progress = clampProgress(res.Progress.Progress)
		st.Error = ""
	} else {
		st.State = StateFailed
		st.Finished = false
		st.Error = res.Error
	}
	t.lastJob = res.JobID
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
