package dag

// Sets partitions job ids by state.
type Sets struct {
	Completed map[string]bool
	Running   map[string]bool
	Failed    map[string]bool
	Skipped   map[string]bool
}

func newSets() Sets {
	return Sets{
		Completed: map[string]bool{},
		Running:   map[string]bool{},
		Failed:    map[string]bool{},
		Skipped:   map[string]bool{},
	}
}

// SetsOf computes Sets from statuses.
func SetsOf(statuses []JobStatus) Sets {
	s := newSets()
	for _, st := range statuses {
		switch st.normalized().State {
		case StateRunning:
			s.Running[st.ID] = true
		case StateSucceeded:
			s.Completed[st.ID] = true
		case StateFailed:
			s.Failed[st.ID] = true
		case StateSkipped:
			s.Skipped[st.ID] = true
		}
	}
	return s
}

// Terminal reports whether id has completed, failed or been skipped.
func (s Sets) Terminal(id string) bool {
	return s.Completed[id] || s.Failed[id] || s.Skipped[id]
}

// Active reports whether id is running or terminal.
func (s Sets) Active(id string) bool {
	return s.Running[id] || s.Terminal(id)
}

// IsReady reports whether job's dependencies allow it to start.
//
// ANY needs one completed dependency. ALL needs every dependency completed or
// skipped, and at least one of them completed: a skip resolves a dependency
// but does not satisfy it. A job whose dependencies are all skipped is never
// ready; Decide skips it with SkipReasonNoDependencyCompleted instead of
// leaving the instance to end in ErrNoRunnableJobs.
func IsReady(job JobNode, completed, skipped map[string]bool) bool {
	if len(job.DependsOn) == 0 {
		return true
	}

	if job.DependencyLogic == LogicAny {
		for _, dep := range job.DependsOn {
			if completed[dep] {
				return true
			}
		}
		return false
	}

	anyCompleted := false
	for _, dep := range job.DependsOn {
		switch {
		case completed[dep]:
			anyCompleted = true
		case skipped[dep]:
		default:
			return false
		}
	}
	return anyCompleted
}

// GateResult is the verdict of the conditional route gate.
type GateResult int

const (
	// GatePass lets the job fall through to dependency readiness.
	GatePass GateResult = iota
	// GatePending waits for unresolved routes.
	GatePending
	// GateSkip means every route resolved and none matched.
	GateSkip
)

func (r GateResult) String() string {
	switch r {
	case GatePass:
		return "pass"
	case GatePending:
		return "pending"
	default:
		return "skip"
	}
}

// ObservedOutcome is SUCCESS for a completed job and FAILURE for a failed or
// skipped one. ok is false while the job is not terminal.
func ObservedOutcome(id string, s Sets) (outcome Outcome, ok bool) {
	switch {
	case s.Completed[id]:
		return OutcomeSuccess, true
	case s.Failed[id], s.Skipped[id]:
		return OutcomeFailure, true
	}
	return "", false
}

// EvaluateGate applies the routes gating one job. A job without routes passes.
func EvaluateGate(routes []ConditionalRoute, s Sets) GateResult {
	if len(routes) == 0 {
		return GatePass
	}
	unresolved := false
	for _, r := range routes {
		outcome, ok := ObservedOutcome(r.ConditionJobID, s)
		if !ok {
			unresolved = true
			continue
		}
		if outcome == r.ExpectedOutcome {
			return GatePass
		}
	}
	if unresolved {
		return GatePending
	}
	return GateSkip
}

// Action is what the loop should do with a pending job right now.
type Action int

const (
	ActionWait Action = iota
	ActionLaunch
	ActionSkip
)

// Decide evaluates a pending job: the route gate first, then upstream failure,
// then dependency readiness. For ActionSkip the reason is the job's error text.
//
// Besides the route and failed-dependency skips, a job whose dependencies are
// all terminal without one it can run on is skipped with
// SkipReasonNoDependencyCompleted. Every skip reason starts with "Skipped", so
// callers can tell skips from failures by prefix or by JobStatus.State.
func Decide(job JobNode, routes []ConditionalRoute, s Sets) (Action, string) {
	switch EvaluateGate(routes, s) {
	case GatePending:
		return ActionWait, ""
	case GateSkip:
		return ActionSkip, SkipReasonRouteNotMatched
	}

	for _, dep := range job.DependsOn {
		if s.Failed[dep] {
			return ActionSkip, SkipReasonFailedDependency
		}
	}

	if IsReady(job, s.Completed, s.Skipped) {
		return ActionLaunch, ""
	}

	for _, dep := range job.DependsOn {
		if !s.Terminal(dep) {
			return ActionWait, ""
		}
	}
	return ActionSkip, SkipReasonNoDependencyCompleted
}
