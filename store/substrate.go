package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/observability"
	"github.com/kbukum/jobflow/resilience"
)

// Publisher receives every snapshot after it has been stored.
type Publisher interface {
	Publish(ctx context.Context, snap *dag.StatusSnapshot) error
}

// Substrate implements dag.Substrate on a Store. Checkpoints are retried
// with the configured policy; a checkpoint that still fails stops the loop.
// Publishing is best effort.
type Substrate struct {
	dag.Suspender

	store     Store
	backend   string
	retry     resilience.RetryConfig
	publisher Publisher
	metrics   *observability.Metrics
	log       *logger.Logger
}

var _ dag.Substrate = (*Substrate)(nil)

// SubstrateOption configures a Substrate.
type SubstrateOption func(*Substrate)

func WithRetry(cfg resilience.RetryConfig) SubstrateOption {
	return func(s *Substrate) { s.retry = cfg }
}

func WithPublisher(p Publisher) SubstrateOption {
	return func(s *Substrate) { s.publisher = p }
}

func WithMetrics(m *observability.Metrics) SubstrateOption {
	return func(s *Substrate) { s.metrics = m }
}

func WithSuspender(sp dag.Suspender) SubstrateOption {
	return func(s *Substrate) { s.Suspender = sp }
}

func WithLogger(l *logger.Logger) SubstrateOption {
	return func(s *Substrate) { s.log = l }
}

// NewSubstrate wraps st. backend names the store in logs and metrics.
func NewSubstrate(st Store, backend string, opts ...SubstrateOption) *Substrate {
	s := &Substrate{
		Suspender: dag.WallClock{},
		store:     st,
		backend:   backend,
		retry:     resilience.DefaultRetryConfig(),
		log:       logger.WithComponent("substrate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.RetryIf == nil {
		s.retry.RetryIf = retryable
	}
	return s
}

func retryable(err error) bool {
	return !errors.Is(err, ErrNotFound) && resilience.DefaultRetryIf(err)
}

func (s *Substrate) Checkpoint(ctx context.Context, snap *dag.StatusSnapshot) error {
	err := resilience.RetryFunc(ctx, s.retry, func() error {
		return s.store.SaveSnapshot(ctx, snap)
	})
	if s.metrics != nil {
		s.metrics.RecordCheckpoint(ctx, s.backend, err)
	}
	if err != nil {
		return fmt.Errorf("%s checkpoint %s#%d: %w", s.backend, snap.InstanceID, snap.Sequence, err)
	}

	if s.publisher != nil {
		if perr := s.publisher.Publish(ctx, snap); perr != nil {
			s.log.Warn("snapshot publish failed", logger.Fields(
				logger.FieldInstanceID, snap.InstanceID,
				logger.FieldSequence, snap.Sequence,
				logger.FieldError, perr.Error(),
			))
		}
	}
	return nil
}
