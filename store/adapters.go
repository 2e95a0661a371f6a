package store

import (
	"context"
	"errors"

	"github.com/kbukum/jobflow/dag"
)

// ErrUnavailable is returned by a Late store whose backend is not ready.
var ErrUnavailable = errors.New("store: backend not available")

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, snap *dag.StatusSnapshot) error

func (f PublisherFunc) Publish(ctx context.Context, snap *dag.StatusSnapshot) error {
	return f(ctx, snap)
}

// Publishers fans a snapshot out to every publisher and joins their errors.
type Publishers []Publisher

func (ps Publishers) Publish(ctx context.Context, snap *dag.StatusSnapshot) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Late is a Store resolved on every call, for backends owned by a component
// that connects in Start. resolve returning nil yields ErrUnavailable.
type Late func() Store

var _ Store = Late(nil)

func (l Late) get() (Store, error) {
	if l == nil {
		return nil, ErrUnavailable
	}
	if st := l(); st != nil {
		return st, nil
	}
	return nil, ErrUnavailable
}

func (l Late) Create(ctx context.Context, rec *Record) error {
	st, err := l.get()
	if err != nil {
		return err
	}
	return st.Create(ctx, rec)
}

func (l Late) Get(ctx context.Context, instanceID string) (*Record, error) {
	st, err := l.get()
	if err != nil {
		return nil, err
	}
	return st.Get(ctx, instanceID)
}

func (l Late) SaveSnapshot(ctx context.Context, snap *dag.StatusSnapshot) error {
	st, err := l.get()
	if err != nil {
		return err
	}
	return st.SaveSnapshot(ctx, snap)
}

func (l Late) ListActive(ctx context.Context) ([]*Record, error) {
	st, err := l.get()
	if err != nil {
		return nil, err
	}
	return st.ListActive(ctx)
}

func (l Late) Delete(ctx context.Context, instanceID string) error {
	st, err := l.get()
	if err != nil {
		return err
	}
	return st.Delete(ctx, instanceID)
}
