package pipeline

import (
	"context"
	"time"
)

// TumblingWindow groups values into consecutive windows of length d. Empty
// windows are skipped; the last partial window is emitted when the source
// ends.
func TumblingWindow[T any](p *Pipeline[T], d time.Duration) *Pipeline[[]T] {
	return &Pipeline[[]T]{open: func(ctx context.Context) Iterator[[]T] {
		src := p.open(ctx)
		pumpCtx, cancel := context.WithCancel(ctx)
		w := &windowIter[T]{values: make(chan T), d: d, cancel: cancel, src: src}
		go w.pump(pumpCtx)
		return w
	}}
}

type windowIter[T any] struct {
	values chan T
	err    error
	d      time.Duration
	cancel context.CancelFunc
	src    Iterator[T]
	done   bool
}

// pump moves source values onto the channel. err is written before the
// channel is closed.
func (w *windowIter[T]) pump(ctx context.Context) {
	defer close(w.values)
	for {
		v, ok, err := w.src.Next(ctx)
		if err != nil {
			w.err = err
			return
		}
		if !ok {
			return
		}
		select {
		case w.values <- v:
		case <-ctx.Done():
			return
		}
	}
}

func (w *windowIter[T]) Next(ctx context.Context) ([]T, bool, error) {
	if w.done {
		return nil, false, nil
	}
	timer := time.NewTimer(w.d)
	defer timer.Stop()

	var window []T
	for {
		select {
		case v, open := <-w.values:
			if !open {
				w.done = true
				if w.err != nil && w.err != ctx.Err() {
					return window, len(window) > 0, w.err
				}
				return window, len(window) > 0, nil
			}
			window = append(window, v)
		case <-timer.C:
			if len(window) > 0 {
				return window, true, nil
			}
			timer.Reset(w.d)
		case <-ctx.Done():
			return nil, false, ctx.Err()
		}
	}
}

func (w *windowIter[T]) Close() error {
	w.cancel()
	return w.src.Close()
}
