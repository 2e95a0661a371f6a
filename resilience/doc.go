// Package resilience provides retry with exponential backoff and a circuit
// breaker. The HTTP client uses both around calls to job services, and the
// checkpoint substrate retries transient store failures.
package resilience
