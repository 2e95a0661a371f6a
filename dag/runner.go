package dag

import (
	"context"
	"fmt"
	"time"
)

// Progress is what a job's progress endpoint reports.
type Progress struct {
	Started  bool `json:"started"`
	Progress int  `json:"progress"`
	Finished bool `json:"finished"`
}

// Proxy performs the two calls a job service exposes.
type Proxy interface {
	// Start returns the service's started flag.
	Start(ctx context.Context, endpoint string) (bool, error)
	Poll(ctx context.Context, endpoint string) (Progress, error)
}

// Result is the outcome of running one job.
type Result struct {
	JobID    string
	Success  bool
	Error    string
	Progress Progress
	// Interrupted is set when the run stopped because ctx ended; the outcome
	// is unknown and must not be recorded.
	Interrupted bool
}

// ProgressFunc receives every poll result while a job runs.
type ProgressFunc func(Progress)

// JobRunner drives one job to a terminal outcome. Implementations must not
// return job faults as panics; every fault becomes a failed Result.
type JobRunner interface {
	Run(ctx context.Context, job JobNode, report ProgressFunc) Result
}

// RunnerFunc adapts a function to JobRunner.
type RunnerFunc func(ctx context.Context, job JobNode, report ProgressFunc) Result

func (f RunnerFunc) Run(ctx context.Context, job JobNode, report ProgressFunc) Result {
	return f(ctx, job, report)
}

// PollingRunner starts a job and polls it at a fixed interval until it
// reaches 100% or fails.
type PollingRunner struct {
	proxy     Proxy
	every     time.Duration
	suspender Suspender
}

// NewPollingRunner returns a runner that waits d between polls using s.
func NewPollingRunner(proxy Proxy, d time.Duration, s Suspender) *PollingRunner {
	if s == nil {
		s = WallClock{}
	}
	return &PollingRunner{proxy: proxy, every: d, suspender: s}
}

func (r *PollingRunner) Run(ctx context.Context, job JobNode, report ProgressFunc) Result {
	res := Result{JobID: job.ID}
	fail := func(msg string) Result {
		if ctx.Err() != nil {
			res.Interrupted = true
		}
		res.Error = msg
		return res
	}

	started, err := r.proxy.Start(ctx, job.StartEndpoint)
	if err != nil {
		return fail(fmt.Sprintf("start: %v", err))
	}
	if !started {
		return fail(ErrMsgNotStarted)
	}

	for {
		p, err := r.proxy.Poll(ctx, job.ProgressEndpoint)
		if err != nil {
			return fail(fmt.Sprintf("poll: %v", err))
		}
		res.Progress = p
		if report != nil {
			report(p)
		}

		switch {
		case p.Progress >= 100:
			res.Success = true
			return res
		case p.Finished:
			return fail(ErrMsgFailed)
		case !p.Started:
			return fail(ErrMsgNotStarted)
		}

		if err := r.suspender.Suspend(ctx, r.every); err != nil {
			return fail(err.Error())
		}
	}
}
