// Package pipeline runs pull-based streams. A session uses it to turn media
// input into turns; the Kafka sink uses it to batch metric events into
// windows.
//
// Nothing runs until a terminal (Drain or Collect) pulls. Each stage pulls
// from the one before it, so a slow consumer slows the producer.
package pipeline

import "context"

// Iterator yields values until it returns ok=false. media.Conn satisfies
// Iterator[media.Input].
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Pipeline is a lazily built stream of T.
type Pipeline[T any] struct {
	open func(ctx context.Context) Iterator[T]
}

// From streams the values of an existing iterator.
func From[T any](it Iterator[T]) *Pipeline[T] {
	return &Pipeline[T]{open: func(context.Context) Iterator[T] { return it }}
}

// FromSlice streams items in order.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{open: func(context.Context) Iterator[T] {
		return &sliceIter[T]{items: items}
	}}
}

// FromChan streams values received on ch until it is closed.
func FromChan[T any](ch <-chan T) *Pipeline[T] {
	return &Pipeline[T]{open: func(context.Context) Iterator[T] { return chanIter[T](ch) }}
}

// Map applies fn to every value. An error from fn ends the stream.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{open: func(ctx context.Context) Iterator[O] {
		return &mapIter[I, O]{src: p.open(ctx), fn: fn}
	}}
}

// Runnable is a stream bound to its sink.
type Runnable struct {
	run func(ctx context.Context) error
}

// Run pulls until the source is exhausted, the sink fails or ctx is done.
func (r *Runnable) Run(ctx context.Context) error { return r.run(ctx) }

// Drain sends every value to sink.
func Drain[T any](p *Pipeline[T], sink func(context.Context, T) error) *Runnable {
	return &Runnable{run: func(ctx context.Context) error {
		it := p.open(ctx)
		defer it.Close()
		for {
			v, ok, err := it.Next(ctx)
			if err != nil || !ok {
				return err
			}
			if err := sink(ctx, v); err != nil {
				return err
			}
		}
	}}
}

// Collect returns every value. On error it returns what was pulled so far.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	var out []T
	err := Drain(p, func(_ context.Context, v T) error {
		out = append(out, v)
		return nil
	}).Run(ctx)
	return out, err
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	var zero T
	if it.pos >= len(it.items) {
		return zero, false, nil
	}
	it.pos++
	return it.items[it.pos-1], true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type chanIter[T any] <-chan T

func (ch chanIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case v, open := <-ch:
		return v, open, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (chanIter[T]) Close() error { return nil }

type mapIter[I, O any] struct {
	src Iterator[I]
	fn  func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	v, ok, err := it.src.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, v)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.src.Close() }
