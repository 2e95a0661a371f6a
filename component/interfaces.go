package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a lifecycle-managed piece of infrastructure: a store, the
// snapshot publisher, the HTTP server or the orchestration engine.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is what a component reports for the startup log.
type Description struct {
	Name    string
	Type    string
	Details string
	Port    int
}

// Describable is optionally implemented by components that report their
// configuration at startup.
type Describable interface {
	Describe() Description
}
