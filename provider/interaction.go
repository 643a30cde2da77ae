package provider

import "context"

// RequestResponse represents a provider that takes one input and returns one
// output. Every capability backend has this shape.
type RequestResponse[I, O any] interface {
	Provider
	Execute(ctx context.Context, input I) (O, error)
}

// Sink represents a provider that accepts input with no meaningful output,
// such as a message broker producer.
type Sink[I any] interface {
	Provider
	Send(ctx context.Context, input I) error
}
