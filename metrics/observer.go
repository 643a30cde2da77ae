package metrics

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/voixagent/voixagent/logger"
)

// Observer receives every recorded event.
type Observer interface {
	Name() string
	Observe(ctx context.Context, e Event) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc struct {
	ID string
	Fn func(ctx context.Context, e Event) error
}

func (f ObserverFunc) Name() string { return f.ID }

func (f ObserverFunc) Observe(ctx context.Context, e Event) error { return f.Fn(ctx, e) }

// observerQueue isolates one observer behind a bounded queue and goroutine.
type observerQueue struct {
	observer Observer
	log      *logger.Logger
	ch       chan Event
	done     chan struct{}
	once     sync.Once
	running  atomic.Bool
	dropped  atomic.Int64
	cancel   context.CancelFunc
}

func newObserverQueue(o Observer, size int, log *logger.Logger) *observerQueue {
	return &observerQueue{
		observer: o,
		log:      log,
		ch:       make(chan Event, size),
		done:     make(chan struct{}),
	}
}

func (q *observerQueue) start() {
	if !q.running.CompareAndSwap(false, true) {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	go q.run(ctx)
}

func (q *observerQueue) run(ctx context.Context) {
	defer close(q.done)
	for e := range q.ch {
		q.deliver(ctx, e)
	}
}

func (q *observerQueue) deliver(ctx context.Context, e Event) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("metrics observer panicked", logger.Fields(
				"observer", q.observer.Name(), logger.FieldError, fmt.Sprint(r)))
		}
	}()
	if err := q.observer.Observe(ctx, e); err != nil {
		q.log.Error("metrics observer failed", logger.MergeWithError(
			logger.Fields("observer", q.observer.Name(), "event", e.Name), err))
	}
}

// offer enqueues e without blocking. Caller must not call offer after stop.
func (q *observerQueue) offer(e Event) {
	select {
	case q.ch <- e:
	default:
		if q.dropped.Add(1) == 1 {
			q.log.Warn("metrics observer queue full, dropping events", logger.Fields("observer", q.observer.Name()))
		}
	}
}

// stop closes the queue and waits for it to drain or ctx to end.
func (q *observerQueue) stop(ctx context.Context) {
	q.once.Do(func() { close(q.ch) })
	if !q.running.Load() {
		return
	}
	select {
	case <-q.done:
	case <-ctx.Done():
		q.cancel()
	}
}
