package telemetry

import "context"

// exchangeIDKey is the context key type used to store an exchange ID.
type exchangeIDKey struct{}

// WithExchangeID returns a child context that carries the provided exchange ID.
// If ctx is nil, context.Background() is used.
func WithExchangeID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, exchangeIDKey{}, id)
}

// ExchangeIDFromContext returns the exchange ID from ctx, if present.
// Returns "", false if the value is missing or not a non-empty string.
func ExchangeIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v := ctx.Value(exchangeIDKey{})
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
