// Package component defines the lifecycle contract for the long-running parts
// of the agent server: the session registry, the metrics publishers, the
// agent document watcher, the event sinks and the HTTP server.
//
// Components are registered with a Registry, started in registration order
// and stopped in reverse order. Health is aggregated for the /health route.
package component
