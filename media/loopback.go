package media

import (
	"context"
	"fmt"
	"sync"
)

// Loopback is an in-memory Attacher. Each attached session gets a
// LoopbackConn that the caller drives with Say and reads with Outputs.
type Loopback struct {
	buffer int

	mu      sync.Mutex
	conns   map[string]*LoopbackConn
	refused map[string]bool
}

// NewLoopback creates a loopback transport whose connections buffer up to
// buffer inputs and outputs.
func NewLoopback(buffer int) *Loopback {
	if buffer <= 0 {
		buffer = 16
	}
	return &Loopback{
		buffer:  buffer,
		conns:   make(map[string]*LoopbackConn),
		refused: make(map[string]bool),
	}
}

// Refuse makes Attach fail for room.
func (l *Loopback) Refuse(room string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refused[room] = true
}

// Attach implements Attacher.
func (l *Loopback) Attach(ctx context.Context, sessionID, room string) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.refused[room] {
		return nil, fmt.Errorf("room %q refused the participant", room)
	}
	c := newLoopbackConn(l.buffer)
	l.conns[sessionID] = c
	return c, nil
}

// Conn returns the connection attached for sessionID.
func (l *Loopback) Conn(sessionID string) (*LoopbackConn, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.conns[sessionID]
	return c, ok
}

// LoopbackConn is the Conn handed out by Loopback.
type LoopbackConn struct {
	in     chan Input
	out    chan Output
	hangup chan struct{}
	done   chan struct{}

	hangupOnce sync.Once
	closeOnce  sync.Once
}

func newLoopbackConn(buffer int) *LoopbackConn {
	return &LoopbackConn{
		in:     make(chan Input, buffer),
		out:    make(chan Output, buffer),
		hangup: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Say queues a text utterance from the participant.
func (c *LoopbackConn) Say(ctx context.Context, text string) error {
	return c.Push(ctx, Text(text))
}

// Push queues an input from the participant.
func (c *LoopbackConn) Push(ctx context.Context, in Input) error {
	select {
	case <-c.hangup:
		return ErrClosed
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.in <- in:
		return nil
	case <-c.hangup:
		return ErrClosed
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Hangup signals that the participant left. Queued input is still
// delivered before Next reports the end.
func (c *LoopbackConn) Hangup() {
	c.hangupOnce.Do(func() { close(c.hangup) })
}

// Outputs returns the agent's responses.
func (c *LoopbackConn) Outputs() <-chan Output { return c.out }

// Done is closed when the session closes the connection.
func (c *LoopbackConn) Done() <-chan struct{} { return c.done }

// Next implements Conn.
func (c *LoopbackConn) Next(ctx context.Context) (Input, bool, error) {
	select {
	case in := <-c.in:
		return in, true, nil
	default:
	}
	select {
	case in := <-c.in:
		return in, true, nil
	case <-c.hangup:
		select {
		case in := <-c.in:
			return in, true, nil
		default:
			return Input{}, false, nil
		}
	case <-c.done:
		return Input{}, false, nil
	case <-ctx.Done():
		return Input{}, false, ctx.Err()
	}
}

// Send implements Conn.
func (c *LoopbackConn) Send(ctx context.Context, out Output) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.out <- out:
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implements Conn.
func (c *LoopbackConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}
