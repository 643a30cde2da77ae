package component

import "context"

// HealthStatus is a component's self-reported condition.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is one component's entry in /health and the startup summary.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a long-lived part of the server (session registry, metrics
// aggregator, redis client, kafka sink, HTTP server) started and stopped by
// the bootstrap app. Name must be unique within a Registry.
type Component interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Health(ctx context.Context) Health
}

// Description is a one-line self portrait for the startup summary.
type Description struct {
	// Name defaults to the component's Name.
	Name string
	// Type groups components, e.g. "server", "sessions", "redis".
	Type string
	// Details such as "localhost:6379 db=0" or "ring=1000".
	Details string
	Port    int
}

// Describable components appear under Infrastructure in the summary.
type Describable interface {
	Describe() Description
}

// Route is an HTTP route listed in the summary.
type Route struct {
	Method  string
	Path    string
	Handler string
}

// RouteProvider components contribute their routes to the summary.
type RouteProvider interface {
	Routes() []Route
}

// Overall folds component health into one status: unhealthy if any
// component is unhealthy, degraded if any is degraded.
func Overall(results []Health) HealthStatus {
	status := StatusHealthy
	for _, h := range results {
		switch h.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			status = StatusDegraded
		}
	}
	return status
}
