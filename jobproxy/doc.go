// Package jobproxy calls the start and progress endpoints of external job
// services over HTTP.
//
// A start endpoint answers POST with {"started": bool}. A progress endpoint
// answers GET with {"started": bool, "progress": 0-100, "finished": bool}.
// Non-2xx statuses, bodies missing those fields and negative progress are
// faults; progress above 100 is clamped.
package jobproxy
