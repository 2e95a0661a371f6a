package component

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kbukum/jobflow/logger"
)

type fakeComponent struct {
	name     string
	startErr error
	stopErr  error
	health   HealthStatus
	events   *[]string
}

func (f *fakeComponent) Name() string { return f.name }

func (f *fakeComponent) Start(context.Context) error {
	*f.events = append(*f.events, "start:"+f.name)
	return f.startErr
}

func (f *fakeComponent) Stop(context.Context) error {
	*f.events = append(*f.events, "stop:"+f.name)
	return f.stopErr
}

func (f *fakeComponent) Health(context.Context) Health {
	return Health{Name: f.name, Status: f.health}
}

func (f *fakeComponent) Describe() Description {
	return Description{Name: f.name, Type: "fake", Details: "in memory"}
}

func newRegistry(t *testing.T, events *[]string, comps ...*fakeComponent) *Registry {
	t.Helper()
	r := NewRegistry().WithLogger(logger.Nop())
	for _, c := range comps {
		c.events = events
		if err := r.Register(c); err != nil {
			t.Fatalf("Register(%s): %v", c.name, err)
		}
	}
	return r
}

func TestRegistryLifecycleOrder(t *testing.T) {
	var events []string
	r := newRegistry(t, &events,
		&fakeComponent{name: "store"},
		&fakeComponent{name: "engine"},
		&fakeComponent{name: "http"},
	)

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}

	want := []string{"start:store", "start:engine", "start:http", "stop:http", "stop:engine", "stop:store"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	var events []string
	r := newRegistry(t, &events, &fakeComponent{name: "store"})
	if err := r.Register(&fakeComponent{name: "store", events: &events}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Get("store") == nil || r.Get("missing") != nil {
		t.Error("Get returned unexpected components")
	}
}

func TestStartFailureStopsOnlyStarted(t *testing.T) {
	var events []string
	boom := errors.New("connection refused")
	r := newRegistry(t, &events,
		&fakeComponent{name: "store"},
		&fakeComponent{name: "kafka", startErr: boom},
		&fakeComponent{name: "http"},
	)

	if err := r.StartAll(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("StartAll() error = %v, want %v", err, boom)
	}
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll: %v", err)
	}
	want := []string{"start:store", "start:kafka", "stop:store"}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	var events []string
	errA, errB := errors.New("a"), errors.New("b")
	r := newRegistry(t, &events,
		&fakeComponent{name: "a", stopErr: errA},
		&fakeComponent{name: "b", stopErr: errB},
	)
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("StopAll() error = %v, want both errors", err)
	}
}

func TestHealth(t *testing.T) {
	var events []string
	r := newRegistry(t, &events,
		&fakeComponent{name: "store", health: StatusHealthy},
		&fakeComponent{name: "kafka", health: StatusDegraded},
	)
	hs := r.HealthAll(context.Background())
	if len(hs) != 2 || hs[1].Name != "kafka" {
		t.Fatalf("HealthAll() = %+v", hs)
	}

	tests := []struct {
		in   []Health
		want HealthStatus
	}{
		{nil, StatusHealthy},
		{hs, StatusDegraded},
		{append(hs, Health{Status: StatusUnhealthy}), StatusUnhealthy},
	}
	for _, tt := range tests {
		if got := Overall(tt.in); got != tt.want {
			t.Errorf("Overall(%v) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
