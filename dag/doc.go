// Package dag orchestrates externally hosted jobs along a dependency graph.
//
// A DagInput lists jobs, each a start and a progress endpoint, with ALL/ANY
// dependencies and optional conditional routes that gate jobs on another
// job's SUCCESS or FAILURE. The Orchestrator launches every eligible job
// concurrently through a JobRunner, folds results back one at a time, skips
// jobs whose dependencies failed or whose routes did not match, and
// checkpoints a StatusSnapshot through its Substrate after every change so
// that Run can resume from the last snapshot after a restart.
package dag
