package kafka

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/voixagent/voixagent/component"
	"github.com/voixagent/voixagent/logger"
)

// Component owns the producer and event sink and implements
// component.Component. The sink exists from construction so it can be added
// to the metrics aggregator before components start.
type Component struct {
	cfg      Config
	log      *logger.Logger
	producer *Producer
	sink     *EventSink
	mu       sync.Mutex
	stopped  bool
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the Kafka component.
func NewComponent(cfg Config, log *logger.Logger) (*Component, error) {
	cfg.ApplyDefaults()
	log = log.WithComponent("kafka")
	producer, err := NewProducer(cfg, log)
	if err != nil {
		return nil, err
	}
	return newComponent(cfg, producer, log), nil
}

func newComponent(cfg Config, producer *Producer, log *logger.Logger) *Component {
	return &Component{
		cfg:      cfg,
		log:      log,
		producer: producer,
		sink:     NewEventSink(producer, cfg.FlushInterval, cfg.WriteTimeout, log),
	}
}

// Sink returns the metrics observer streaming to the configured topic.
func (c *Component) Sink() *EventSink { return c.sink }

// Name returns the component name.
func (c *Component) Name() string { return "kafka" }

// Start logs the configured target. The writer connects lazily.
func (c *Component) Start(_ context.Context) error {
	c.log.Info("Kafka component started", logger.Fields("topic", c.cfg.Topic))
	return nil
}

// Stop flushes the sink, then closes the producer.
func (c *Component) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true
	c.log.Info("Kafka component stopping")
	sinkErr := c.sink.Close(ctx)
	if err := c.producer.Close(); err != nil {
		return err
	}
	return sinkErr
}

// Health reports degraded when writes failed since the previous check.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	stopped := c.stopped
	c.mu.Unlock()
	if stopped {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "stopped"}
	}
	stats := c.producer.Stats()
	h := component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d messages written", stats.Messages),
	}
	if stats.Errors > 0 {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%d write errors", stats.Errors)
	}
	return h
}

// Describe returns infrastructure summary info for the bootstrap display.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("%s topic=%s", strings.Join(c.cfg.Brokers, ","), c.cfg.Topic),
	}
}
