package main

import (
	"fmt"

	"github.com/kbukum/jobflow/config"
	"github.com/kbukum/jobflow/database"
	"github.com/kbukum/jobflow/engine"
	"github.com/kbukum/jobflow/httpclient"
	"github.com/kbukum/jobflow/kafka"
	"github.com/kbukum/jobflow/observability"
	"github.com/kbukum/jobflow/redis"
	"github.com/kbukum/jobflow/server"
)

const serviceName = "jobflow"

// Config is the root configuration of the jobflow binary.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server       server.Config        `yaml:"server" mapstructure:"server"`
	Orchestrator engine.Config        `yaml:"orchestrator" mapstructure:"orchestrator"`
	HTTPClient   httpclient.Config    `yaml:"http_client" mapstructure:"http_client"`
	Redis        redis.Config         `yaml:"redis" mapstructure:"redis"`
	Database     database.Config      `yaml:"database" mapstructure:"database"`
	Kafka        kafka.Config         `yaml:"kafka" mapstructure:"kafka"`
	Tracing      observability.Config `yaml:"tracing" mapstructure:"tracing"`
}

func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Orchestrator.ApplyDefaults()
	c.HTTPClient.ApplyDefaults()

	// The chosen store backend is always enabled.
	switch c.Orchestrator.Store {
	case engine.StoreRedis:
		c.Redis.Enabled = true
	case engine.StoreDatabase:
		c.Database.Enabled = true
	}
	c.Redis.ApplyDefaults()
	c.Database.ApplyDefaults()
	c.Kafka.ApplyDefaults()
	c.Tracing.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	checks := []struct {
		section string
		fn      func() error
	}{
		{"server", c.Server.Validate},
		{"orchestrator", c.Orchestrator.Validate},
		{"http_client", c.HTTPClient.Validate},
		{"redis", c.Redis.Validate},
		{"database", c.Database.Validate},
		{"kafka", c.Kafka.Validate},
		{"tracing", c.Tracing.Validate},
	}
	for _, check := range checks {
		if err := check.fn(); err != nil {
			return fmt.Errorf("%s: %w", check.section, err)
		}
	}
	return nil
}

// loadConfig reads the config file, .env and JOBFLOW_* environment.
func loadConfig(o *rootOptions) (*Config, error) {
	var opts []config.LoaderOption
	if o.configFile != "" {
		opts = append(opts, config.WithConfigFile(o.configFile))
	}
	if o.envFile != "" {
		opts = append(opts, config.WithEnvFile(o.envFile))
	}
	cfg := &Config{}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	if o.store != "" {
		cfg.Orchestrator.Store = o.store
	}
	return cfg, nil
}
