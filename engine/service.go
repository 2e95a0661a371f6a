package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/errors"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/store"
	"github.com/kbukum/jobflow/validation"
)

// Handle is returned on submission.
type Handle struct {
	InstanceID     string `json:"instanceId"`
	StatusQueryURI string `json:"statusQueryUri"`
}

// instance is one orchestration running in this process.
type instance struct {
	done  chan struct{}
	final *dag.StatusSnapshot
	err   error
}

// Service accepts DAG submissions, runs each one on its own orchestration
// loop and answers status queries from the store.
type Service struct {
	cfg       Config
	store     store.Store
	backend   string
	substrate dag.Substrate
	runner    dag.JobRunner
	log       *logger.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]*instance
}

var (
	_ component.Component   = (*Service)(nil)
	_ component.Describable = (*Service)(nil)
)

// Option configures a Service.
type Option func(*Service)

func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service. backend names st in errors and logs; substrate
// must checkpoint into st.
func New(cfg Config, st store.Store, backend string, substrate dag.Substrate, runner dag.JobRunner, opts ...Option) *Service {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		cfg:       cfg,
		store:     st,
		backend:   backend,
		substrate: substrate,
		runner:    runner,
		log:       logger.WithComponent("engine"),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		running:   make(map[string]*instance),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates in, persists a new instance and starts orchestrating it
// in the background.
func (s *Service) Submit(ctx context.Context, in dag.DagInput) (*Handle, error) {
	if s.ctx.Err() != nil {
		return nil, errors.ServiceUnavailable("orchestration engine")
	}
	g, err := validation.Input(in)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := s.now()
	rec := &store.Record{
		InstanceID: id,
		Input:      g.Input(),
		Snapshot:   dag.NewSnapshot(id, g, now),
		CreatedAt:  now,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		return nil, s.storeError(err, id)
	}

	s.log.Info("instance submitted", logger.Fields(logger.FieldInstanceID, id, "jobs", g.Len()))
	s.launch(id, g, nil)
	return &Handle{InstanceID: id, StatusQueryURI: path.Join(s.cfg.StatusPath, id)}, nil
}

// Status returns the last committed snapshot of an instance.
func (s *Service) Status(ctx context.Context, instanceID string) (*dag.StatusSnapshot, error) {
	if err := validation.InstanceID(instanceID); err != nil {
		return nil, err
	}
	rec, err := s.store.Get(ctx, instanceID)
	if err != nil {
		return nil, s.storeError(err, instanceID)
	}
	return rec.Snapshot, nil
}

// Wait blocks until an instance running in this process ends and returns
// its final snapshot and run error. For instances not running here it
// returns the stored snapshot, with an error when that snapshot records a
// structural failure.
func (s *Service) Wait(ctx context.Context, instanceID string) (*dag.StatusSnapshot, error) {
	s.mu.Lock()
	inst, ok := s.running[instanceID]
	s.mu.Unlock()
	if !ok {
		snap, err := s.Status(ctx, instanceID)
		if err != nil {
			return nil, err
		}
		return snap, snapshotError(snap)
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-inst.done:
		return inst.final, inst.err
	}
}

func snapshotError(snap *dag.StatusSnapshot) error {
	switch {
	case snap == nil || snap.Error == "":
		return nil
	case snap.Error == dag.ErrNoRunnableJobs.Error():
		return dag.ErrNoRunnableJobs
	}
	return stderrors.New(snap.Error)
}

// Run submits in and waits for it to finish.
func (s *Service) Run(ctx context.Context, in dag.DagInput) (*dag.StatusSnapshot, error) {
	h, err := s.Submit(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.Wait(ctx, h.InstanceID)
}

// ResumeActive restarts every stored instance that is not done and not
// already running here. It returns how many were resumed. Instances whose
// stored input no longer compiles are logged and left alone.
func (s *Service) ResumeActive(ctx context.Context) (int, error) {
	recs, err := s.store.ListActive(ctx)
	if err != nil {
		return 0, s.storeError(err, "")
	}

	resumed := 0
	for _, rec := range recs {
		if s.isRunning(rec.InstanceID) {
			continue
		}
		g, err := dag.Validate(rec.Input)
		if err != nil {
			s.log.Error("cannot resume instance", logger.Fields(logger.FieldInstanceID, rec.InstanceID, logger.FieldError, err.Error()))
			continue
		}
		s.log.Info("resuming instance", logger.Fields(logger.FieldInstanceID, rec.InstanceID, logger.FieldSequence, rec.Snapshot.Sequence))
		s.launch(rec.InstanceID, g, rec.Snapshot)
		resumed++
	}
	return resumed, nil
}

// Active returns the number of instances running in this process.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.running)
}

func (s *Service) isRunning(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.running[id]
	return ok
}

func (s *Service) launch(id string, g *dag.Graph, from *dag.StatusSnapshot) {
	inst := &instance{done: make(chan struct{})}
	s.mu.Lock()
	s.running[id] = inst
	s.mu.Unlock()

	orch := dag.NewOrchestrator(g, s.runner, s.substrate, dag.Options{
		LoopInterval: s.cfg.LoopInterval,
		Logger:       s.log.WithComponent("orchestrator"),
		Now:          s.now,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		start := s.now()
		inst.final, inst.err = orch.Run(s.ctx, id, from)

		fields := logger.DurationFields("instance.run", s.now().Sub(start))
		fields[logger.FieldInstanceID] = id
		switch {
		case inst.err == nil:
			s.log.Info("instance completed", fields)
		case stderrors.Is(inst.err, context.Canceled):
			s.log.Info("instance interrupted, will resume from last checkpoint", fields)
		default:
			fields[logger.FieldError] = inst.err.Error()
			s.log.Error("instance ended with error", fields)
		}

		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
		close(inst.done)
	}()
}

func (s *Service) storeError(err error, id string) error {
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return errors.NotFound("instance", id)
	case stderrors.Is(err, store.ErrExists):
		return errors.Conflict(fmt.Sprintf("instance %s already exists", id)).WithCause(err)
	}
	return errors.StorageError(s.backend, err)
}

func (s *Service) Name() string { return "engine" }

// Start resumes unfinished instances unless disabled.
func (s *Service) Start(ctx context.Context) error {
	if !s.cfg.resume() {
		return nil
	}
	n, err := s.ResumeActive(ctx)
	if err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	if n > 0 {
		s.log.Info("resumed instances", logger.Fields("count", n))
	}
	return nil
}

// Stop interrupts every running instance and waits for its loop to exit.
// Their last checkpoints stay in the store for the next start.
func (s *Service) Stop(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine stop: %w", ctx.Err())
	}
}

func (s *Service) Health(_ context.Context) component.Health {
	if s.ctx.Err() != nil {
		return component.Health{Name: s.Name(), Status: component.StatusUnhealthy, Message: "stopped"}
	}
	return component.Health{Name: s.Name(), Status: component.StatusHealthy, Message: fmt.Sprintf("%d active", s.Active())}
}

func (s *Service) Describe() component.Description {
	return component.Description{
		Name:    "Orchestration Engine",
		Type:    "engine",
		Details: fmt.Sprintf("store=%s poll=%s loop=%s", s.backend, s.cfg.PollInterval, s.cfg.LoopInterval),
	}
}
