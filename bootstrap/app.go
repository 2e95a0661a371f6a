package bootstrap

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/logger"
)

// App runs the components of one binary between startup and a signal or
// the end of a task. C is the typed root config.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger

	shutdownTimeout time.Duration
	configure       []func(ctx context.Context, app *App[C]) error
	onStart         []Hook
	onReady         []Hook
	onStop          []Hook
}

// NewApp applies defaults, validates cfg and initializes logging from its
// logging section unless WithLogger is given.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	o := resolveOptions(opts)
	base := cfg.GetServiceConfig()

	log := o.logger
	if log == nil {
		logger.Init(base.Logging, base.Name)
		log = logger.GetGlobalLogger()
	}
	timeout := defaultShutdownTimeout
	if o.gracefulTimeout != nil {
		timeout = *o.gracefulTimeout
	}
	return &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry().WithLogger(log),
		Logger:          log,
		shutdownTimeout: timeout,
	}, nil
}

func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers wiring that needs started components, such as
// resuming persisted instances. It runs after the OnStart hooks.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.configure = append(a.configure, fn)
}

// ReadyCheck fails when any component is not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var bad []string
	for _, h := range a.Components.HealthAll(ctx) {
		if h.Status == component.StatusHealthy {
			continue
		}
		entry := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			entry += " (" + h.Message + ")"
		}
		bad = append(bad, entry)
	}
	if len(bad) > 0 {
		return fmt.Errorf("unhealthy components: %s", strings.Join(bad, ", "))
	}
	return nil
}

// Run starts everything and blocks until SIGINT/SIGTERM or ctx is done.
func (a *App[C]) Run(ctx context.Context) error {
	return a.RunTask(ctx, func(ctx context.Context) error {
		a.Logger.Info("Application ready, waiting for shutdown signal")
		<-ctx.Done()
		return nil
	})
}

// RunTask starts everything, runs task with a context that SIGINT/SIGTERM
// cancel, then shuts down. The task error wins over a shutdown error.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	taskErr := task(taskCtx)
	if taskCtx.Err() != nil && ctx.Err() == nil {
		a.Logger.Info("Received shutdown signal")
	}
	stop()

	if err := a.Shutdown(); err != nil && taskErr == nil {
		return err
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	began := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := a.Components.StartAll(ctx); err != nil {
		_ = a.Components.StopAll(context.Background())
		return fmt.Errorf("initialization failed: %w", err)
	}
	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}
	for _, fn := range a.configure {
		if err := fn(ctx, a); err != nil {
			return fmt.Errorf("configuration failed: %w", err)
		}
	}
	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Logger.Info("Application started", logger.DurationFields("startup", time.Since(began)))
	return nil
}

// Shutdown runs the OnStop hooks, then stops components in reverse order,
// all within the graceful timeout. It returns the last error seen.
func (a *App[C]) Shutdown() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.shutdownTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	var last error
	if err := runHooks(ctx, a.onStop); err != nil {
		a.Logger.Error("OnStop hook error", logger.Fields(logger.FieldError, err.Error()))
		last = err
	}
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		last = err
	}
	a.Logger.Info("Application shutdown complete")
	return last
}
