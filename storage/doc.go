// Package storage publishes metric snapshots to object storage.
//
// Two backends implement Storage: the local filesystem (temp file plus
// rename) and Amazon S3 or an S3-compatible service (a PUT replaces the
// object atomically). SnapshotPublisher adapts either one to
// metrics.Publisher so the aggregator can mirror its shared document:
//
//	storage:
//	  enabled: true
//	  provider: s3
//	  bucket: voixagent-metrics
//	  key: shared_metrics.json
package storage
