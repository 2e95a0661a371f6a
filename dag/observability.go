package dag

import (
	"context"
	"time"

	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/observability"
)

// WithTracing wraps a JobRunner so each run gets a span named "{prefix}.run".
func WithTracing(r JobRunner, prefix string) JobRunner {
	return RunnerFunc(func(ctx context.Context, job JobNode, report ProgressFunc) Result {
		ctx, span := observability.StartSpan(ctx, prefix+".run")
		defer span.End()

		observability.SetSpanAttribute(ctx, "job.id", job.ID)
		observability.SetSpanAttribute(ctx, "job.start_endpoint", job.StartEndpoint)

		res := r.Run(ctx, job, report)
		if !res.Success && !res.Interrupted {
			observability.SetSpanError(ctx, jobError(res.Error))
		}
		return res
	})
}

// WithMetrics records one operation per run with status ok, failed or interrupted.
func WithMetrics(r JobRunner, metrics *observability.Metrics) JobRunner {
	return RunnerFunc(func(ctx context.Context, job JobNode, report ProgressFunc) Result {
		metrics.JobStarted(ctx)
		start := time.Now()
		res := r.Run(ctx, job, report)
		metrics.JobEnded(ctx)

		status := "ok"
		switch {
		case res.Interrupted:
			status = "interrupted"
		case !res.Success:
			status = "failed"
			metrics.RecordError(ctx, "job_failed", "runner")
		}
		metrics.RecordOperation(ctx, "runner", "job.run", status, time.Since(start))
		return res
	})
}

// WithLogging logs the outcome and duration of every run.
func WithLogging(r JobRunner, log *logger.Logger) JobRunner {
	return RunnerFunc(func(ctx context.Context, job JobNode, report ProgressFunc) Result {
		start := time.Now()
		res := r.Run(ctx, job, report)

		fields := logger.DurationFields("job.run", time.Since(start))
		fields[logger.FieldJobID] = job.ID
		fields[logger.FieldProgress] = res.Progress.Progress

		switch {
		case res.Interrupted:
			log.Debug("job run interrupted", fields)
		case res.Success:
			log.Debug("job run completed", fields)
		default:
			fields[logger.FieldError] = res.Error
			log.Warn("job run failed", fields)
		}
		return res
	})
}

type jobError string

func (e jobError) Error() string { return string(e) }
