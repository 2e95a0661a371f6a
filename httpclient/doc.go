// Package httpclient is the JSON HTTP client used to talk to job services.
//
// Non-2xx responses come back as *Error classified by status code, so callers
// can tell a rejected request from an unreachable host. Retries and a per-host
// circuit breaker are opt-in through Config:
//
//	client, err := httpclient.New(httpclient.Config{
//	    Timeout:        10 * time.Second,
//	    CircuitBreaker: httpclient.DefaultCircuitBreakerConfig("jobs"),
//	})
//	resp, err := httpclient.Get[Progress](client, ctx, progressURL)
package httpclient
