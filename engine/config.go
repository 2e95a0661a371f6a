package engine

import (
	"fmt"
	"slices"
	"time"

	"github.com/kbukum/jobflow/dag"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StoreDatabase = "database"
)

// Config is the orchestrator section of the root config.
type Config struct {
	// PollInterval is the pause between progress polls of one job.
	PollInterval time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	// LoopInterval is the pause between orchestration iterations.
	LoopInterval time.Duration `yaml:"loop_interval" mapstructure:"loop_interval"`
	Store        string        `yaml:"store" mapstructure:"store"`
	// ResumeOnStart re-drives unfinished instances when the engine starts.
	// Nil means true.
	ResumeOnStart     *bool `yaml:"resume_on_start" mapstructure:"resume_on_start"`
	CheckpointRetries int   `yaml:"checkpoint_retries" mapstructure:"checkpoint_retries"`
	// StatusPath prefixes the statusQueryUri returned on submission.
	StatusPath string `yaml:"status_path" mapstructure:"status_path"`
}

func (c *Config) ApplyDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = dag.DefaultInterval
	}
	if c.LoopInterval <= 0 {
		c.LoopInterval = dag.DefaultInterval
	}
	if c.Store == "" {
		c.Store = StoreMemory
	}
	if c.ResumeOnStart == nil {
		on := true
		c.ResumeOnStart = &on
	}
	if c.CheckpointRetries <= 0 {
		c.CheckpointRetries = 3
	}
	if c.StatusPath == "" {
		c.StatusPath = "/api/v1/dags"
	}
}

func (c *Config) Validate() error {
	stores := []string{StoreMemory, StoreRedis, StoreDatabase}
	if !slices.Contains(stores, c.Store) {
		return fmt.Errorf("orchestrator.store must be one of %v (got: %s)", stores, c.Store)
	}
	if c.PollInterval < 0 || c.LoopInterval < 0 {
		return fmt.Errorf("orchestrator intervals must not be negative")
	}
	return nil
}

func (c *Config) resume() bool {
	return c.ResumeOnStart == nil || *c.ResumeOnStart
}
