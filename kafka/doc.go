// Package kafka publishes orchestration snapshots to a Kafka topic and reads
// them back.
//
// SnapshotPublisher implements store.Publisher: every durable checkpoint is
// written as a SnapshotEvent keyed by instance id, so one instance's events
// stay ordered within a partition. Subscriber consumes the same topic and is
// what the "jobflow watch" command uses to follow instances live.
package kafka
