package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/jobflow/component"
	"github.com/kbukum/jobflow/config"
	"github.com/kbukum/jobflow/logger"
)

type testConfig struct {
	config.ServiceConfig
	Workers int
}

func (c *testConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Workers == 0 {
		c.Workers = 4
	}
}

func (c *testConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	return c.ServiceConfig.Validate()
}

type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	events   *[]string
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "start:"+m.name)
	}
	return m.startErr
}

func (m *mockComponent) Stop(context.Context) error {
	if m.events != nil {
		*m.events = append(*m.events, "stop:"+m.name)
	}
	return m.stopErr
}

func (m *mockComponent) Health(context.Context) component.Health {
	if m.health.Status == "" {
		return component.Health{Name: m.name, Status: component.StatusHealthy}
	}
	return m.health
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	cfg := &testConfig{ServiceConfig: config.ServiceConfig{Name: "svc", Version: "1.0.0"}}
	app, err := NewApp(cfg, append([]Option{WithLogger(logger.Nop())}, opts...)...)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func TestNewAppAppliesDefaults(t *testing.T) {
	app := newTestApp(t)
	if app.Name != "svc" || app.Version != "1.0.0" {
		t.Errorf("name/version = %q/%q", app.Name, app.Version)
	}
	if app.Cfg.Workers != 4 || app.Cfg.Environment != "development" {
		t.Errorf("defaults not applied: %+v", app.Cfg)
	}
	if app.shutdownTimeout != 15*time.Second {
		t.Errorf("graceful timeout = %v", app.shutdownTimeout)
	}
}

func TestNewAppValidation(t *testing.T) {
	cfg := &testConfig{Workers: -1}
	if _, err := NewApp(cfg, WithLogger(logger.Nop())); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestWithGracefulTimeout(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(time.Second))
	if app.shutdownTimeout != time.Second {
		t.Errorf("graceful timeout = %v", app.shutdownTimeout)
	}
}

func TestRegisterComponentDuplicate(t *testing.T) {
	app := newTestApp(t)
	if err := app.RegisterComponent(&mockComponent{name: "db"}); err != nil {
		t.Fatal(err)
	}
	if err := app.RegisterComponent(&mockComponent{name: "db"}); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestRunTaskLifecycleOrder(t *testing.T) {
	var events []string
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "store", events: &events})
	_ = app.RegisterComponent(&mockComponent{name: "engine", events: &events})
	app.OnStart(func(context.Context) error { events = append(events, "onStart"); return nil })
	app.OnConfigure(func(context.Context, *App[*testConfig]) error { events = append(events, "configure"); return nil })
	app.OnReady(func(context.Context) error { events = append(events, "onReady"); return nil })
	app.OnStop(func(context.Context) error { events = append(events, "onStop"); return nil })

	err := app.RunTask(context.Background(), func(context.Context) error {
		events = append(events, "task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	want := "start:store,start:engine,onStart,configure,onReady,task,onStop,stop:engine,stop:store"
	if got := strings.Join(events, ","); got != want {
		t.Errorf("events = %s\nwant     %s", got, want)
	}
}

func TestRunTaskErrorWinsOverStopError(t *testing.T) {
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "c", stopErr: fmt.Errorf("stop failed")})

	taskErr := fmt.Errorf("task failed")
	if err := app.RunTask(context.Background(), func(context.Context) error { return taskErr }); err != taskErr {
		t.Errorf("err = %v, want task error", err)
	}
}

func TestRunTaskReturnsStopError(t *testing.T) {
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "c", stopErr: fmt.Errorf("stop failed")})

	err := app.RunTask(context.Background(), func(context.Context) error { return nil })
	if err == nil || !strings.Contains(err.Error(), "stop failed") {
		t.Errorf("err = %v", err)
	}
}

func TestStartFailureStopsStartedComponents(t *testing.T) {
	var events []string
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "a", events: &events})
	_ = app.RegisterComponent(&mockComponent{name: "b", startErr: fmt.Errorf("boom"), events: &events})

	ran := false
	err := app.RunTask(context.Background(), func(context.Context) error { ran = true; return nil })
	if err == nil || !strings.Contains(err.Error(), "initialization failed") {
		t.Fatalf("err = %v", err)
	}
	if ran {
		t.Error("task ran after failed startup")
	}
	if got := strings.Join(events, ","); got != "start:a,start:b,stop:a" {
		t.Errorf("events = %s", got)
	}
}

func TestHookErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*App[*testConfig])
		want  string
	}{
		{"start", func(a *App[*testConfig]) { a.OnStart(func(context.Context) error { return fmt.Errorf("x") }) }, "onStart hook failed"},
		{"configure", func(a *App[*testConfig]) {
			a.OnConfigure(func(context.Context, *App[*testConfig]) error { return fmt.Errorf("x") })
		}, "configuration failed"},
		{"ready", func(a *App[*testConfig]) { a.OnReady(func(context.Context) error { return fmt.Errorf("x") }) }, "onReady hook failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t)
			tt.setup(app)
			err := app.RunTask(context.Background(), func(context.Context) error { return nil })
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t)
	if err := app.ReadyCheck(context.Background()); err != nil {
		t.Fatalf("empty registry: %v", err)
	}
	_ = app.RegisterComponent(&mockComponent{name: "ok"})
	_ = app.RegisterComponent(&mockComponent{name: "redis", health: component.Health{
		Name: "redis", Status: component.StatusDegraded, Message: "slow",
	}})
	err := app.ReadyCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "redis=degraded (slow)") {
		t.Errorf("err = %v", err)
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	var events []string
	app := newTestApp(t)
	_ = app.RegisterComponent(&mockComponent{name: "server", events: &events})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.Join(events, ","); got != "start:server,stop:server" {
		t.Errorf("events = %s", got)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	err := app.RunTask(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	if err != context.Canceled {
		t.Errorf("err = %v", err)
	}
}
