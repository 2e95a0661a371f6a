// Package server hosts the jobflow HTTP front end: a gin engine served over
// HTTP/1.1 and h2c with recovery, request id, CORS, body size and request
// logging middleware, plus /health, /livez, /readyz and /version.
//
// Routes under API() require an HMAC-signed bearer JWT when server.auth is
// enabled.
package server
