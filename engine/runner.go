package engine

import (
	"time"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/logger"
	"github.com/kbukum/jobflow/observability"
)

// NewRunner builds the job runner used for every instance: a polling runner
// over proxy, traced, measured and logged. metrics may be nil.
func NewRunner(proxy dag.Proxy, poll time.Duration, s dag.Suspender, metrics *observability.Metrics, log *logger.Logger) dag.JobRunner {
	var r dag.JobRunner = dag.NewPollingRunner(proxy, poll, s)
	r = dag.WithTracing(r, "jobflow.job")
	if metrics != nil {
		r = dag.WithMetrics(r, metrics)
	}
	return dag.WithLogging(r, log.WithComponent("runner"))
}
