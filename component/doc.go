// Package component defines lifecycle-managed infrastructure.
//
// A Component is started, stopped and health-checked by a Registry. Stores,
// the snapshot publisher, the orchestration engine and the HTTP server are
// all components, registered in dependency order by bootstrap.
package component
