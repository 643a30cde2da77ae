package provider

import "slices"

// Middleware wraps a capability handle, usually to add logging, tracing,
// metrics or the session's resilience policy around Execute.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares so the first one listed sees a call first and
// its result last: Chain(a, b)(p) is a(b(p)). Nil entries are skipped,
// which lets callers leave optional layers unset.
func Chain[I, O any](middlewares ...Middleware[I, O]) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		for _, mw := range slices.Backward(middlewares) {
			if mw != nil {
				p = mw(p)
			}
		}
		return p
	}
}
