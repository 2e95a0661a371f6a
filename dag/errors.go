package dag

import "errors"

var (
	ErrEmptyGraph       = errors.New("dag: graph has no jobs")
	ErrInvalidJob       = errors.New("dag: invalid job")
	ErrDuplicateJob     = errors.New("dag: duplicate job id")
	ErrUnknownJob       = errors.New("dag: unknown job reference")
	ErrCycle            = errors.New("dag: dependency cycle")
	ErrSnapshotMismatch = errors.New("dag: snapshot does not match graph")

	// ErrNoRunnableJobs is the structural failure: nothing runs, nothing can
	// start, and the graph is not finished. Its text is what the final
	// snapshot carries as its top-level error.
	ErrNoRunnableJobs = errors.New("no runnable jobs; dependency cycle or unsatisfiable condition")
)
