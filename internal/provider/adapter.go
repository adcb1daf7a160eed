package provider

import (
	"context"
	"errors"
	"time"

	"github.com/navicore/gamecode-agent/internal/telemetry"
	"github.com/navicore/gamecode-agent/internal/wire"
)

// Defaults for the retry policy when the config leaves them unset.
const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 500 * time.Millisecond
)

// Adapter executes completions against a Transport with bounded retry.
// Retries cover only the transport call: a request is never rebuilt and an
// exchange is never replayed, so tools that already ran are never re-run.
type Adapter struct {
	transport  Transport
	maxRetries int
	baseDelay  time.Duration
}

// NewAdapter wraps a transport with the retry policy. maxRetries <= 0 and
// baseDelay <= 0 fall back to the defaults.
func NewAdapter(t Transport, maxRetries int, baseDelay time.Duration) *Adapter {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	return &Adapter{transport: t, maxRetries: maxRetries, baseDelay: baseDelay}
}

// Complete builds the request payload, sends it with retry/backoff on
// transient failures, and parses the response into a generic completion.
func (a *Adapter) Complete(ctx context.Context, system string, msgs []wire.Message, tools []wire.Tool, p wire.Params) (*wire.Completion, error) {
	payload, err := wire.BuildRequest(system, msgs, tools, p)
	if err != nil {
		// Serialization failures are fatal to the exchange; retrying the
		// same malformed payload cannot succeed.
		return nil, err
	}

	raw, err := a.send(ctx, payload, p.Model)
	if err != nil {
		return nil, err
	}

	c, err := wire.ParseResponse(raw)
	if err != nil {
		return nil, err
	}
	telemetry.Emit("completion", map[string]any{
		"model":         c.Model,
		"stop_reason":   c.StopReason,
		"input_tokens":  c.Usage.InputTokens,
		"output_tokens": c.Usage.OutputTokens,
		"tool_calls":    len(c.Invocations),
	})
	return c, nil
}

// send performs the transport call with exponential backoff: the delay
// starts at baseDelay and doubles per attempt, for at most maxRetries
// retries after the initial call.
func (a *Adapter) send(ctx context.Context, payload []byte, model string) ([]byte, error) {
	delay := a.baseDelay
	for attempt := 0; ; attempt++ {
		raw, err := a.transport.Send(ctx, payload)
		if err == nil {
			return raw, nil
		}

		var te *TransportError
		retriable := errors.As(err, &te) && te.Transient()
		if !retriable || attempt >= a.maxRetries {
			return nil, err
		}

		telemetry.Emit("transport_retry", map[string]any{
			"model":    model,
			"attempt":  attempt + 1,
			"kind":     te.Kind.String(),
			"delay_ms": delay.Milliseconds(),
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}
