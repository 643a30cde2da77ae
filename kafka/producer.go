package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/resilience"
)

// MessageWriter is the part of kafka-go's Writer the producer needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Stats() kafkago.WriterStats
	Close() error
}

// Producer writes messages with retries for transient broker failures.
type Producer struct {
	writer MessageWriter
	cfg    Config
	log    *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a producer for cfg. kafka-go connects on first write,
// so an unreachable broker does not fail construction.
func NewProducer(cfg Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}

	transport, err := CreateTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}
	log = log.WithComponent("kafka.producer")
	writer := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  ResolveCompression(cfg.Compression),
		WriteTimeout: cfg.WriteTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error("writer: "+fmt.Sprintf(msg, args...))
		}),
	}

	log.Info("Kafka producer initialized", logger.Fields(
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"compression", cfg.Compression,
	))
	return NewProducerWithWriter(cfg, writer, log), nil
}

// NewProducerWithWriter wraps an existing writer.
func NewProducerWithWriter(cfg Config, w MessageWriter, log *logger.Logger) *Producer {
	cfg.ApplyDefaults()
	return &Producer{writer: w, cfg: cfg, log: log}
}

// WriteMessages sends messages, retrying transient failures up to
// cfg.Retries attempts.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return fmt.Errorf("producer is closed")
	}

	retry := resilience.RetryConfig{
		MaxAttempts:    p.cfg.Retries,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2,
		RetryIf:        IsRetryableError,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			p.log.Warn("kafka write failed, retrying", logger.Fields(
				"attempt", attempt, "backoff", wait.String(), logger.FieldError, err.Error(),
			))
		},
	}
	err := resilience.RetryFunc(ctx, retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return FromKafka(err, p.cfg.Topic)
	}
	return nil
}

// Stats returns the writer's counters since the last call.
func (p *Producer) Stats() kafkago.WriterStats {
	return p.writer.Stats()
}

// Close flushes pending messages and shuts down the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
