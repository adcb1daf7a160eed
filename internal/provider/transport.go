// Package provider translates the conversation window into provider requests
// and provider responses into generic completions. The outbound surface is a
// single opaque byte contract so the wire layer never depends on a concrete
// HTTP client or SDK.
package provider

import "context"

// Transport sends a serialized request payload and returns the raw response
// payload. Implementations classify failures into TransportError values;
// anything else is treated as non-retriable.
type Transport interface {
	Send(ctx context.Context, payload []byte) ([]byte, error)
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, payload []byte) ([]byte, error)

func (f TransportFunc) Send(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}
