// Package sse streams instance snapshots to HTTP clients as Server-Sent
// Events.
//
// A Hub fans events out to connected clients. Client ids have the form
// "<instanceID>:<connection>", and a Publisher broadcasts every checkpoint
// to the pattern "<instanceID>:*", so each stream only sees its instance.
//
//	comp := sse.NewComponent("/api/v1/dags/:id/events", log)
//	substrate := store.NewSubstrate(st, "memory", store.WithPublisher(sse.NewPublisher(comp.Hub())))
package sse
