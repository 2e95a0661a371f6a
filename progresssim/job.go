package progresssim

import (
	"sync"

	"github.com/kbukum/jobflow/dag"
)

// Job is the simulated state of one job id. Each id owns its own Job.
type Job struct {
	mu       sync.Mutex
	step     int
	failAt   int
	started  bool
	finished bool
	progress int
}

func newJob(step, failAt int) *Job {
	return &Job{step: step, failAt: failAt}
}

// Start resets the job and marks it started. Starting again restarts it.
func (j *Job) Start() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.started, j.finished, j.progress = true, false, 0
	return true
}

// Poll advances a started job by one step and reports its state. Reaching
// 100 finishes the job and clears started. A job configured to fail
// finishes early at its failure point.
func (j *Job) Poll() dag.Progress {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.started {
		return dag.Progress{Progress: j.progress, Finished: j.finished}
	}
	j.progress = min(j.progress+j.step, 100)
	switch {
	case j.failAt > 0 && j.progress >= j.failAt:
		j.progress = j.failAt
		j.started, j.finished = false, true
	case j.progress == 100:
		j.started, j.finished = false, true
	}
	return dag.Progress{Started: j.started, Progress: j.progress, Finished: j.finished}
}

// State reports the job without advancing it.
func (j *Job) State() dag.Progress {
	j.mu.Lock()
	defer j.mu.Unlock()
	return dag.Progress{Started: j.started, Progress: j.progress, Finished: j.finished}
}
