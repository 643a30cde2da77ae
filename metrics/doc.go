// Package metrics aggregates timing and outcome events from sessions.
//
// The Aggregator keeps the most recent events in a fixed-size ring and, on
// every Record, rebuilds an immutable Snapshot that readers load without
// locking. Observers (Prometheus, OpenTelemetry, Kafka, SSE) receive events
// through their own bounded queues so a slow or failing observer never delays
// Record. Publishers write the snapshot document to an external medium, such
// as a JSON file replaced atomically or an S3 object, from a background loop
// that coalesces bursts of events into one write.
package metrics
