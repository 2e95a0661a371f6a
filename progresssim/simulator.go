package progresssim

import (
	"fmt"
	"slices"
	"sync"
)

// Config configures a Simulator.
type Config struct {
	// Step is the progress added per poll. Defaults to 10.
	Step int `yaml:"step" mapstructure:"step"`
	// FailJobs lists job ids that finish below 100 and so fail.
	FailJobs []string `yaml:"fail_jobs" mapstructure:"fail_jobs"`
	// FailAt is where failing jobs stop. Defaults to 50.
	FailAt int `yaml:"fail_at" mapstructure:"fail_at"`
}

func (c *Config) ApplyDefaults() {
	if c.Step <= 0 {
		c.Step = 10
	}
	if c.FailAt <= 0 {
		c.FailAt = 50
	}
}

func (c *Config) Validate() error {
	if c.Step > 100 {
		return fmt.Errorf("progresssim.step must be at most 100 (got: %d)", c.Step)
	}
	if c.FailAt >= 100 {
		return fmt.Errorf("progresssim.fail_at must be below 100 (got: %d)", c.FailAt)
	}
	return nil
}

// Simulator holds one Job per id, created on first use.
type Simulator struct {
	cfg  Config
	mu   sync.Mutex
	jobs map[string]*Job
}

func New(cfg Config) *Simulator {
	cfg.ApplyDefaults()
	return &Simulator{cfg: cfg, jobs: make(map[string]*Job)}
}

// Job returns the state object for id.
func (s *Simulator) Job(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		failAt := 0
		if slices.Contains(s.cfg.FailJobs, id) {
			failAt = s.cfg.FailAt
		}
		j = newJob(s.cfg.Step, failAt)
		s.jobs[id] = j
	}
	return j
}

// IDs returns every job id seen so far, sorted.
func (s *Simulator) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.jobs))
	for id := range s.jobs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
