package dag

import "testing"

func set(ids ...string) map[string]bool {
	m := map[string]bool{}
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func TestIsReady(t *testing.T) {
	tests := []struct {
		name      string
		job       JobNode
		completed map[string]bool
		skipped   map[string]bool
		want      bool
	}{
		{"no deps", job("a"), nil, nil, true},
		{"all completed", job("c", "a", "b"), set("a", "b"), nil, true},
		{"all partially done", job("c", "a", "b"), set("a"), nil, false},
		{"all completed or skipped", job("c", "a", "b"), set("a"), set("b"), true},
		{"all skipped", job("c", "a", "b"), nil, set("a", "b"), false},
		{"any one completed", anyJob("c", "a", "b"), set("b"), nil, true},
		{"any none completed", anyJob("c", "a", "b"), nil, set("a"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReady(tt.job, tt.completed, tt.skipped); got != tt.want {
				t.Errorf("IsReady() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateGate(t *testing.T) {
	onSuccess := ConditionalRoute{ConditionJobID: "a", ExpectedOutcome: OutcomeSuccess, TargetJobIDs: []string{"t"}}
	onFailure := ConditionalRoute{ConditionJobID: "b", ExpectedOutcome: OutcomeFailure, TargetJobIDs: []string{"t"}}

	tests := []struct {
		name   string
		routes []ConditionalRoute
		sets   Sets
		want   GateResult
	}{
		{"no routes", nil, newSets(), GatePass},
		{"unresolved", []ConditionalRoute{onSuccess}, newSets(), GatePending},
		{"matched", []ConditionalRoute{onSuccess}, Sets{Completed: set("a")}, GatePass},
		{"not matched", []ConditionalRoute{onSuccess}, Sets{Failed: set("a")}, GateSkip},
		{"skipped counts as failure", []ConditionalRoute{onFailure}, Sets{Skipped: set("b")}, GatePass},
		{"one match is enough", []ConditionalRoute{onSuccess, onFailure}, Sets{Failed: set("a", "b")}, GatePass},
		{"pending while another unresolved", []ConditionalRoute{onSuccess, onFailure}, Sets{Failed: set("a")}, GatePending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateGate(tt.routes, tt.sets); got != tt.want {
				t.Errorf("EvaluateGate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	route := ConditionalRoute{ConditionJobID: "g", ExpectedOutcome: OutcomeSuccess, TargetJobIDs: []string{"c"}}

	tests := []struct {
		name       string
		job        JobNode
		routes     []ConditionalRoute
		sets       Sets
		wantAction Action
		wantReason string
	}{
		{"launch", job("c", "a"), nil, Sets{Completed: set("a")}, ActionLaunch, ""},
		{"wait", job("c", "a"), nil, Sets{Running: set("a")}, ActionWait, ""},
		{"failed dependency", job("c", "a", "b"), nil, Sets{Failed: set("a")}, ActionSkip, SkipReasonFailedDependency},
		{"failed dependency under ANY", anyJob("c", "a", "b"), nil, Sets{Completed: set("b"), Failed: set("a")}, ActionSkip, SkipReasonFailedDependency},
		{"never satisfiable", job("c", "a"), nil, Sets{Skipped: set("a")}, ActionSkip, SkipReasonNoDependencyCompleted},
		{"gate pending wins", job("c", "a"), []ConditionalRoute{route}, Sets{Failed: set("a")}, ActionWait, ""},
		{"gate skip", job("c"), []ConditionalRoute{route}, Sets{Failed: set("g")}, ActionSkip, SkipReasonRouteNotMatched},
		{"gate pass then ready", job("c"), []ConditionalRoute{route}, Sets{Completed: set("g")}, ActionLaunch, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, reason := Decide(tt.job, tt.routes, tt.sets)
			if action != tt.wantAction || reason != tt.wantReason {
				t.Errorf("Decide() = (%v, %q), want (%v, %q)", action, reason, tt.wantAction, tt.wantReason)
			}
		})
	}
}

func TestSetsOfNormalizesLegacyStatuses(t *testing.T) {
	s := SetsOf([]JobStatus{
		{ID: "a", Finished: true},
		{ID: "b", Error: SkipReasonFailedDependency},
		{ID: "c", Error: "poll: timeout"},
		{ID: "d", Running: true},
		{ID: "e"},
	})
	if !s.Completed["a"] || !s.Skipped["b"] || !s.Failed["c"] || !s.Running["d"] {
		t.Errorf("SetsOf() = %+v", s)
	}
	if s.Active("e") {
		t.Error("e should be pending")
	}
}
