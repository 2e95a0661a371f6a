package httpclient

import (
	"fmt"
	"time"

	"github.com/kbukum/jobflow/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures an Adapter.
type Config struct {
	// BaseURL is prepended to relative request paths.
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	// Timeout bounds a single attempt. Defaults to 30s.
	Timeout time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// BearerToken, when set, is sent as an Authorization header.
	BearerToken string `yaml:"bearer_token" mapstructure:"bearer_token"`

	// Retry enables retries of retryable errors. Nil disables retry.
	Retry *resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// CircuitBreaker enables one breaker per target host. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.Retry != nil && c.Retry.RetryIf == nil {
		c.Retry.RetryIf = IsRetryable
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("httpclient: timeout must be positive")
	}
	if c.Retry != nil && c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("httpclient: retry.max_attempts must not be negative")
	}
	return nil
}

// DefaultRetryConfig retries only errors classified as retryable.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}
