// Package api exposes the orchestration engine over HTTP:
//
//	POST /api/v1/dags       submit a DagInput (JSON or YAML), 202 + handle
//	GET  /api/v1/dags/{id}  last committed StatusSnapshot
//
// Responses use the server package envelopes.
package api
