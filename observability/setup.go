package observability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config configures OTLP/HTTP export of traces and metrics.
type Config struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	Endpoint       string        `yaml:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `yaml:"insecure" mapstructure:"insecure"`
	SampleRate     float64       `yaml:"sample_rate" mapstructure:"sample_rate"`
	MetricInterval time.Duration `yaml:"metric_interval" mapstructure:"metric_interval"`
}

func (c *Config) ApplyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = "localhost:4318"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1.0
	}
	if c.MetricInterval <= 0 {
		c.MetricInterval = 15 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0 and 1 (got: %v)", c.SampleRate)
	}
	return nil
}

// ShutdownFunc flushes and stops the providers.
type ShutdownFunc func(context.Context) error

// Setup installs global tracer and meter providers exporting to cfg.Endpoint.
func Setup(ctx context.Context, cfg Config, service, version, environment string) (ShutdownFunc, error) {
	res, err := newResource(service, version, environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	tp, err := initTracer(ctx, cfg, res)
	if err != nil {
		return nil, err
	}
	mp, err := initMeter(ctx, cfg, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	return func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
