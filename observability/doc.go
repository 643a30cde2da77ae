// Package observability exports traces and metrics over OTLP HTTP.
//
// Setup installs the global providers from the telemetry config section.
// Every capability call is wrapped in a span by provider.WithTracing:
//
//	ctx, span := observability.StartCall(ctx, "generation", "openai")
//	reply, err := llm.Execute(ctx, req)
//	observability.EndCall(span, err)
//
// VoiceMetrics holds the voice instruments. MetricsObserver feeds them from
// the metrics aggregator, so every recorded event also reaches the collector.
package observability
