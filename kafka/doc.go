// Package kafka streams metric events to a Kafka topic.
//
// EventSink is a metrics.Observer. It batches events over a flush interval
// and writes them through a Producer built on segmentio/kafka-go:
//
//	kc, err := kafka.NewComponent(cfg.Kafka, log)
//	aggregator.AddObserver(kc.Sink())
//
// # Configuration
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  topic: voixagent.metrics
package kafka
