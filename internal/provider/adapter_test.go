package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/navicore/gamecode-agent/internal/wire"
)

const okResponse = `{
  "content": [{"type": "text", "text": "hi there"}],
  "model": "m",
  "usage": {"input_tokens": 1, "output_tokens": 2}
}`

func testParams() wire.Params {
	return wire.Params{Model: "m", MaxTokens: 64, Temperature: 0.7}
}

func userMsg(text string) []wire.Message {
	return []wire.Message{{Role: wire.RoleUser, Content: []wire.Block{wire.NewTextBlock(text)}}}
}

func TestComplete_HappyPath(t *testing.T) {
	var sent []byte
	tr := TransportFunc(func(_ context.Context, payload []byte) ([]byte, error) {
		sent = payload
		return []byte(okResponse), nil
	})
	a := NewAdapter(tr, 1, time.Millisecond)

	c, err := a.Complete(context.Background(), "sys", userMsg("hello"), nil, testParams())
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if c.Text != "hi there" {
		t.Fatalf("text: %q", c.Text)
	}
	if gjson.GetBytes(sent, "system").String() != "sys" {
		t.Fatal("system prompt not forwarded")
	}
	if gjson.GetBytes(sent, "messages.0.content.0.text").String() != "hello" {
		t.Fatal("user message not forwarded")
	}
}

func TestComplete_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	tr := TransportFunc(func(context.Context, []byte) ([]byte, error) {
		calls++
		if calls < 3 {
			return nil, &TransportError{Kind: KindThrottled, Status: 429, Message: "slow down"}
		}
		return []byte(okResponse), nil
	})
	a := NewAdapter(tr, 3, time.Millisecond)

	if _, err := a.Complete(context.Background(), "", userMsg("x"), nil, testParams()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestComplete_RetryBudgetExhausted(t *testing.T) {
	calls := 0
	tr := TransportFunc(func(context.Context, []byte) ([]byte, error) {
		calls++
		return nil, &TransportError{Kind: KindInternal, Status: 500, Message: "boom"}
	})
	a := NewAdapter(tr, 2, time.Millisecond)

	_, err := a.Complete(context.Background(), "", userMsg("x"), nil, testParams())
	var te *TransportError
	if !errors.As(err, &te) || te.Kind != KindInternal {
		t.Fatalf("expected internal transport error, got %v", err)
	}
	// Initial call plus two retries.
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestComplete_NonTransientFailsImmediately(t *testing.T) {
	calls := 0
	tr := TransportFunc(func(context.Context, []byte) ([]byte, error) {
		calls++
		return nil, &TransportError{Kind: KindAccessDenied, Status: 403, Message: "no"}
	})
	a := NewAdapter(tr, 5, time.Millisecond)

	_, err := a.Complete(context.Background(), "", userMsg("x"), nil, testParams())
	var te *TransportError
	if !errors.As(err, &te) || te.Kind != KindAccessDenied {
		t.Fatalf("expected access denied, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry)", calls)
	}
}

func TestComplete_MalformedResponseNotRetried(t *testing.T) {
	calls := 0
	tr := TransportFunc(func(context.Context, []byte) ([]byte, error) {
		calls++
		return []byte("not json"), nil
	})
	a := NewAdapter(tr, 5, time.Millisecond)

	if _, err := a.Complete(context.Background(), "", userMsg("x"), nil, testParams()); err == nil {
		t.Fatal("expected parse error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (serialization errors are fatal)", calls)
	}
}

func TestComplete_ContextCancelDuringBackoff(t *testing.T) {
	tr := TransportFunc(func(context.Context, []byte) ([]byte, error) {
		return nil, &TransportError{Kind: KindOverloaded, Status: 529, Message: "busy"}
	})
	a := NewAdapter(tr, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := a.Complete(ctx, "", userMsg("x"), nil, testParams())
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Complete did not return after cancellation")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		status    int
		msg       string
		kind      ErrorKind
		transient bool
	}{
		{429, "rate limited", KindThrottled, true},
		{429, "monthly quota exceeded", KindQuotaExceeded, false},
		{503, "service unavailable", KindOverloaded, true},
		{503, "model is not ready yet", KindModelNotReady, true},
		{529, "overloaded", KindOverloaded, true},
		{500, "oops", KindInternal, true},
		{504, "gateway timeout", KindTimeout, true},
		{403, "forbidden", KindAccessDenied, false},
		{400, "bad request", KindValidation, false},
		{404, "no such model", KindNotFound, false},
		{418, "teapot", KindUnknown, false},
	}
	for _, tc := range cases {
		te := Classify(tc.status, tc.msg)
		if te.Kind != tc.kind {
			t.Errorf("Classify(%d, %q).Kind = %s, want %s", tc.status, tc.msg, te.Kind, tc.kind)
		}
		if te.Transient() != tc.transient {
			t.Errorf("Classify(%d, %q).Transient() = %t, want %t", tc.status, tc.msg, te.Transient(), tc.transient)
		}
	}
}
