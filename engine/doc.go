// Package engine is the orchestration service behind the HTTP API and the
// CLI. Submit validates a DagInput, persists a new instance with an all
// pending snapshot and runs it on its own dag.Orchestrator; Status reads the
// last committed snapshot from the store, so it works for instances run by
// any process sharing that store.
//
// On Start the service resumes every stored instance that is not done. On
// Stop it interrupts running loops and leaves their checkpoints in place.
package engine
