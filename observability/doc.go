// Package observability wires OpenTelemetry tracing and metrics.
//
// Setup installs OTLP/HTTP exporters as the global providers. Until it runs,
// StartSpan and the Metrics instruments use OpenTelemetry's no-op providers,
// so instrumented code needs no configuration in tests.
package observability
