package dag

import (
	"slices"
	"strings"
	"time"
)

// JobState is the lifecycle position of a job. It only moves forward:
// pending, running, then exactly one of succeeded, failed or skipped.
type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateSucceeded JobState = "succeeded"
	StateFailed    JobState = "failed"
	StateSkipped   JobState = "skipped"
)

// Terminal reports whether s is a final state.
func (s JobState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// Error strings recorded on jobs.
const (
	ErrMsgFailed                    = "Failed"
	ErrMsgNotStarted                = "Job not started"
	SkipReasonFailedDependency      = "Skipped due to failed dependency"
	SkipReasonRouteNotMatched       = "Skipped: ConditionalRoute not matched"
	SkipReasonNoDependencyCompleted = "Skipped: no dependency completed"
)

// JobStatus is the live status of one job.
type JobStatus struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	State       JobState  `json:"state"`
	Progress    int       `json:"progress"`
	Started     bool      `json:"started"`
	Finished    bool      `json:"finished"`
	Running     bool      `json:"running"`
	LastUpdated time.Time `json:"lastUpdated"`
	// Error holds a failure reason or a "Skipped" marker; State tells them apart.
	Error string `json:"error,omitempty"`
}

func (s JobStatus) Terminal() bool { return s.State.Terminal() }

// normalized fills State for statuses persisted without one.
func (s JobStatus) normalized() JobStatus {
	if s.State != "" {
		return s
	}
	switch {
	case s.Finished && s.Error == "":
		s.State = StateSucceeded
	case strings.HasPrefix(s.Error, "Skipped"):
		s.State = StateSkipped
	case s.Error != "":
		s.State = StateFailed
	case s.Running:
		s.State = StateRunning
	default:
		s.State = StatePending
	}
	return s
}

// StatusSnapshot is the checkpointed, externally visible state of one instance.
type StatusSnapshot struct {
	InstanceID string      `json:"instanceId"`
	Jobs       []JobStatus `json:"jobs"`
	Running    []string    `json:"running"`
	Finished   []string    `json:"finished"`
	Failed     []string    `json:"failed"`
	Skipped    []string    `json:"skipped"`
	LastJob    string      `json:"lastJob,omitempty"`
	// Completed is set once every job is terminal.
	Completed bool `json:"completed"`
	// Error is set only on structural failure.
	Error     string    `json:"error,omitempty"`
	Iteration int       `json:"iteration"`
	Sequence  int64     `json:"sequence"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewSnapshot returns the initial snapshot for g: every job pending.
func NewSnapshot(instanceID string, g *Graph, now time.Time) *StatusSnapshot {
	t := newTable(g, now)
	return t.snapshot(instanceID, now)
}

// Done reports whether the instance will make no further progress.
func (s *StatusSnapshot) Done() bool {
	return s.Completed || s.Error != ""
}

// Job returns the status of id.
func (s *StatusSnapshot) Job(id string) (JobStatus, bool) {
	for _, j := range s.Jobs {
		if j.ID == id {
			return j, true
		}
	}
	return JobStatus{}, false
}

// Clone returns a deep copy.
func (s *StatusSnapshot) Clone() *StatusSnapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Jobs = slices.Clone(s.Jobs)
	c.Running = slices.Clone(s.Running)
	c.Finished = slices.Clone(s.Finished)
	c.Failed = slices.Clone(s.Failed)
	c.Skipped = slices.Clone(s.Skipped)
	return &c
}

// table is the loop's private, mutable view of job statuses.
type table struct {
	order    []string
	byID     map[string]*JobStatus
	lastJob  string
	err      string
	complete bool
	iter     int
	seq      int64
}

func newTable(g *Graph, now time.Time) *table {
	t := &table{byID: make(map[string]*JobStatus, g.Len())}
	for _, id := range g.IDs() {
		job, _ := g.Job(id)
		t.order = append(t.order, id)
		t.byID[id] = &JobStatus{ID: id, Name: job.DisplayName(), State: StatePending, LastUpdated: now}
	}
	return t
}

func (t *table) sets() Sets {
	s := newSets()
	for _, id := range t.order {
		switch t.byID[id].State {
		case StateRunning:
			s.Running[id] = true
		case StateSucceeded:
			s.Completed[id] = true
		case StateFailed:
			s.Failed[id] = true
		case StateSkipped:
			s.Skipped[id] = true
		}
	}
	return s
}

func (t *table) allTerminal() bool {
	for _, st := range t.byID {
		if !st.Terminal() {
			return false
		}
	}
	return true
}

func (t *table) snapshot(instanceID string, now time.Time) *StatusSnapshot {
	snap := &StatusSnapshot{
		InstanceID: instanceID,
		Jobs:       make([]JobStatus, 0, len(t.order)),
		Running:    []string{},
		Finished:   []string{},
		Failed:     []string{},
		Skipped:    []string{},
		LastJob:    t.lastJob,
		Completed:  t.complete,
		Error:      t.err,
		Iteration:  t.iter,
		Sequence:   t.seq,
		UpdatedAt:  now,
	}
	for _, id := range t.order {
		st := *t.byID[id]
		snap.Jobs = append(snap.Jobs, st)
		switch st.State {
		case StateRunning:
			snap.Running = append(snap.Running, id)
		case StateSucceeded:
			snap.Finished = append(snap.Finished, id)
		case StateFailed:
			snap.Failed = append(snap.Failed, id)
		case StateSkipped:
			snap.Skipped = append(snap.Skipped, id)
		}
	}
	return snap
}
