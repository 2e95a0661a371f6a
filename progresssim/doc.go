// Package progresssim is a stand-in job service for trying jobflow end to
// end. Every job id gets its own state: POST /jobs/{id}/start starts it and
// each GET /jobs/{id}/progress advances it by a fixed step until it reports
// finished at 100.
package progresssim
