package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/jobflow/dag"
)

// Event types.
const (
	EventCheckpointed = "jobflow.instance.checkpointed"
	EventCompleted    = "jobflow.instance.completed"
	EventFailed       = "jobflow.instance.failed"
)

// SnapshotEvent is the message value written for every checkpoint.
type SnapshotEvent struct {
	ID         string              `json:"id"`
	Type       string              `json:"type"`
	Source     string              `json:"source"`
	Timestamp  time.Time           `json:"timestamp"`
	InstanceID string              `json:"instanceId"`
	Sequence   int64               `json:"sequence"`
	Snapshot   *dag.StatusSnapshot `json:"snapshot"`
}

// NewSnapshotEvent wraps snap. The type reflects whether the instance ended.
func NewSnapshotEvent(source string, snap *dag.StatusSnapshot, now time.Time) SnapshotEvent {
	typ := EventCheckpointed
	switch {
	case snap.Error != "":
		typ = EventFailed
	case snap.Completed:
		typ = EventCompleted
	}
	return SnapshotEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Source:     source,
		Timestamp:  now.UTC(),
		InstanceID: snap.InstanceID,
		Sequence:   snap.Sequence,
		Snapshot:   snap,
	}
}

// DecodeSnapshotEvent parses a message value.
func DecodeSnapshotEvent(data []byte) (SnapshotEvent, error) {
	var ev SnapshotEvent
	err := json.Unmarshal(data, &ev)
	return ev, err
}
