package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetricsRecordToReader(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = mp.Shutdown(context.Background()) }()

	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	ctx := context.Background()
	m.RecordOperation(ctx, "runner", "job.run", "ok", 150*time.Millisecond)
	m.RecordError(ctx, "job_failed", "runner")
	m.RecordCheckpoint(ctx, "memory", nil)
	m.RecordCheckpoint(ctx, "memory", errors.New("down"))
	m.JobStarted(ctx)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	for _, want := range []string{
		"jobflow.operation.total", "jobflow.operation.duration", "jobflow.error.total",
		"jobflow.jobs.active", "jobflow.checkpoint.total",
	} {
		if !names[want] {
			t.Errorf("metric %q not collected; got %v", want, names)
		}
	}
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test")
	defer span.End()
	SetSpanAttribute(ctx, "job.id", "a")
	SetSpanError(ctx, errors.New("ignored"))
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1.0 || cfg.MetricInterval != 15*time.Second {
		t.Fatalf("defaults = %+v", cfg)
	}
	cfg.SampleRate = 2
	if err := cfg.Validate(); err == nil {
		t.Error("expected sample rate error")
	}
}
