package sse

import (
	"context"
	"encoding/json"

	"github.com/kbukum/jobflow/dag"
	"github.com/kbukum/jobflow/store"
)

// Event types written on the stream.
const (
	EventSnapshot  = "snapshot"
	EventCompleted = "completed"
	EventFailed    = "failed"
)

// Event is one SSE frame. Last marks the final frame of a stream.
type Event struct {
	Type string
	Data []byte
	Last bool
}

// SnapshotEvent encodes snap. Snapshots of done instances end the stream.
func SnapshotEvent(snap *dag.StatusSnapshot) (Event, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return Event{}, err
	}
	ev := Event{Type: EventSnapshot, Data: data}
	switch {
	case snap.Error != "":
		ev.Type, ev.Last = EventFailed, true
	case snap.Completed:
		ev.Type, ev.Last = EventCompleted, true
	}
	return ev, nil
}

// Pattern matches every stream of instanceID.
func Pattern(instanceID string) string { return instanceID + ":*" }

// Publisher broadcasts checkpoints to the streams of their instance.
type Publisher struct {
	hub *Hub
}

var _ store.Publisher = (*Publisher)(nil)

func NewPublisher(hub *Hub) *Publisher { return &Publisher{hub: hub} }

func (p *Publisher) Publish(_ context.Context, snap *dag.StatusSnapshot) error {
	ev, err := SnapshotEvent(snap)
	if err != nil {
		return err
	}
	p.hub.Broadcast(Pattern(snap.InstanceID), ev)
	return nil
}
