package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

func initMeter(ctx context.Context, cfg Config, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.MetricInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Metrics holds the instruments jobflow records.
type Metrics struct {
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorTotal        metric.Int64Counter
	jobsActive        metric.Int64UpDownCounter
	checkpointTotal   metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.operationTotal, err = meter.Int64Counter("jobflow.operation.total",
		metric.WithDescription("Operations by component, name and status")); err != nil {
		return nil, fmt.Errorf("creating operation counter: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("jobflow.operation.duration",
		metric.WithDescription("Operation duration"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating operation histogram: %w", err)
	}
	if m.errorTotal, err = meter.Int64Counter("jobflow.error.total",
		metric.WithDescription("Errors by type and component")); err != nil {
		return nil, fmt.Errorf("creating error counter: %w", err)
	}
	if m.jobsActive, err = meter.Int64UpDownCounter("jobflow.jobs.active",
		metric.WithDescription("Jobs currently being driven")); err != nil {
		return nil, fmt.Errorf("creating active jobs counter: %w", err)
	}
	if m.checkpointTotal, err = meter.Int64Counter("jobflow.checkpoint.total",
		metric.WithDescription("Checkpoints written by backend and status")); err != nil {
		return nil, fmt.Errorf("creating checkpoint counter: %w", err)
	}
	return m, nil
}

// DefaultMetrics creates instruments on the global meter provider.
func DefaultMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}

func (m *Metrics) RecordOperation(ctx context.Context, component, operation, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("component", component),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.operationTotal.Add(ctx, 1, attrs)
	m.operationDuration.Record(ctx, d.Seconds(), attrs)
}

func (m *Metrics) RecordError(ctx context.Context, errorType, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("error_type", errorType),
		attribute.String("component", component),
	))
}

func (m *Metrics) RecordCheckpoint(ctx context.Context, backend string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.checkpointTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("status", status),
	))
}

func (m *Metrics) JobStarted(ctx context.Context) { m.jobsActive.Add(ctx, 1) }
func (m *Metrics) JobEnded(ctx context.Context)   { m.jobsActive.Add(ctx, -1) }
