package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Default model tiers. The primary tier handles user exchanges; the fast
// tier handles context summarization.
const (
	DefaultModel     = string(anthropic.ModelClaude3_7SonnetLatest)
	DefaultFastModel = string(anthropic.ModelClaude3_5HaikuLatest)
)

// SDKTransport rides the Anthropic SDK for auth, endpoint, and HTTP
// plumbing while keeping the opaque payload contract: the request body is
// built by the wire layer and posted as-is, and the response body comes back
// raw for the wire layer to parse.
type SDKTransport struct {
	client anthropic.Client
}

// NewSDKTransport returns a transport using credentials from the environment,
// plus any extra request options (base URL overrides and the like).
func NewSDKTransport(opts ...option.RequestOption) *SDKTransport {
	return &SDKTransport{client: anthropic.NewClient(opts...)}
}

// Send posts the payload to the messages endpoint and returns the raw
// response body. API failures are classified into the TransportError
// taxonomy by HTTP status.
func (t *SDKTransport) Send(ctx context.Context, payload []byte) ([]byte, error) {
	var out json.RawMessage
	err := t.client.Post(ctx, "v1/messages", json.RawMessage(payload), &out)
	if err == nil {
		return []byte(out), nil
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return nil, Classify(apierr.StatusCode, apierr.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, &TransportError{Kind: KindTimeout, Message: err.Error()}
	}
	if errors.Is(err, context.Canceled) {
		return nil, err
	}
	// Network-level failures without a status; treat as retriable.
	return nil, &TransportError{Kind: KindTimeout, Message: err.Error()}
}
