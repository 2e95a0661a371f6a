package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/jobflow/logger"
)

const defaultStopTimeout = 10 * time.Second

type entry struct {
	component Component
	started   bool
}

// Registry starts components in registration order and stops them in
// reverse order.
type Registry struct {
	mu          sync.RWMutex
	entries     []*entry
	lookup      map[string]*entry
	log         *logger.Logger
	stopTimeout time.Duration
}

func NewRegistry() *Registry {
	return &Registry{
		lookup:      make(map[string]*entry),
		log:         logger.WithComponent("registry"),
		stopTimeout: defaultStopTimeout,
	}
}

// WithLogger replaces the registry's logger.
func (r *Registry) WithLogger(l *logger.Logger) *Registry {
	r.log = l
	return r
}

// Register adds c. Register dependencies first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, exists := r.lookup[name]; exists {
		return fmt.Errorf("component %s already registered", name)
	}
	e := &entry{component: c}
	r.entries = append(r.entries, e)
	r.lookup[name] = e
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component in order and stops at the first failure.
// Components already started stay started; call StopAll to release them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		name := e.component.Name()
		start := time.Now()
		if err := e.component.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
		e.started = true

		fields := logger.DurationFields("start", time.Since(start))
		fields[logger.FieldComponent] = name
		if d, ok := e.component.(Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			fields["details"] = desc.Details
		}
		r.log.Info("component started", fields)
	}
	return nil
}

// StopAll stops started components in reverse order, each bounded by the
// stop timeout, and joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		name := e.component.Name()
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		if err := e.component.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", name, err))
			r.log.Error("component stop failed", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
		} else {
			r.log.Info("component stopped", logger.Fields(logger.FieldComponent, name))
		}
		cancel()
		e.started = false
	}
	return errors.Join(errs...)
}

func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.component.Health(ctx))
	}
	return out
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.lookup[name]; ok {
		return e.component
	}
	return nil
}

// Overall folds component health into one status: unhealthy if any
// component is, degraded if any is, healthy otherwise.
func Overall(hs []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range hs {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
