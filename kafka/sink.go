package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/voixagent/voixagent/logger"
	"github.com/voixagent/voixagent/metrics"
	"github.com/voixagent/voixagent/pipeline"
)

// Writer accepts batches of messages. *Producer implements it.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// EventSink is a metrics.Observer that streams events to a topic. Events
// are gathered for a flush interval and written as one batch, keyed by
// session id so a session's events stay ordered within a partition.
type EventSink struct {
	writer       Writer
	log          *logger.Logger
	writeTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	events chan metrics.Event
	done   chan struct{}
}

var _ metrics.Observer = (*EventSink)(nil)

// NewEventSink starts a sink writing through w.
func NewEventSink(w Writer, flushInterval, writeTimeout time.Duration, log *logger.Logger) *EventSink {
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	s := &EventSink{
		writer:       w,
		log:          log.WithComponent("kafka.sink"),
		writeTimeout: writeTimeout,
		events:       make(chan metrics.Event, 64),
		done:         make(chan struct{}),
	}
	batches := pipeline.TumblingWindow(pipeline.FromChan(s.events), flushInterval)
	go func() {
		defer close(s.done)
		_ = pipeline.Drain(batches, s.write).Run(context.Background())
	}()
	return s
}

// Name implements metrics.Observer.
func (s *EventSink) Name() string { return "kafka" }

// Observe queues e for the next batch.
func (s *EventSink) Observe(ctx context.Context, e metrics.Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return fmt.Errorf("kafka event sink is closed")
	}
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close writes the pending batch and stops the sink.
func (s *EventSink) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EventSink) write(_ context.Context, batch []metrics.Event) error {
	msgs := make([]kafkago.Message, 0, len(batch))
	for _, e := range batch {
		msg, err := EventMessage(e)
		if err != nil {
			s.log.Warn("skipping unencodable event", logger.ErrorFields("encode", err))
			continue
		}
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()
	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		s.log.Warn("metric events dropped", logger.MergeWithError(logger.Fields("count", len(msgs)), err))
	}
	return nil
}

// EventMessage encodes e as a JSON message. The key is the session id, or
// the event name for process-level events.
func EventMessage(e metrics.Event) (kafkago.Message, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return kafkago.Message{}, err
	}
	key := e.SessionID()
	if key == "" {
		key = e.Name
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  e.Timestamp,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event", Value: []byte(e.Name)},
		},
	}, nil
}
