// Package store persists orchestration instances: the submitted graph and
// its latest status snapshot.
//
// Store is implemented in memory here and by the redis and database
// packages. Substrate adapts a Store to dag.Substrate so every checkpoint is
// durable before the orchestration loop continues.
package store
