package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/navicore/gamecode-agent/internal/config"
	"github.com/navicore/gamecode-agent/internal/fsops"
	"github.com/navicore/gamecode-agent/internal/provider"
	"github.com/navicore/gamecode-agent/internal/runner"
	"github.com/navicore/gamecode-agent/tools"
)

// script replays canned response bodies in order and captures each request.
type script struct {
	mu        sync.Mutex
	requests  [][]byte
	responses []string
}

func (s *script) send(_ context.Context, payload []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, append([]byte(nil), payload...))
	if len(s.responses) == 0 {
		return nil, errors.New("script exhausted")
	}
	body := s.responses[0]
	s.responses = s.responses[1:]
	return []byte(body), nil
}

func (s *script) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *script) request(i int) gjson.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gjson.ParseBytes(s.requests[i])
}

func textResponse(text string) string {
	b, _ := json.Marshal(text)
	return fmt.Sprintf(`{"model":"m","stop_reason":"end_turn","content":[{"type":"text","text":%s}],"usage":{"input_tokens":1,"output_tokens":1}}`, b)
}

func toolResponse(text, id, name, input string) string {
	tb, _ := json.Marshal(text)
	return fmt.Sprintf(`{"model":"m","stop_reason":"tool_use","content":[{"type":"text","text":%s},{"type":"tool_use","id":%q,"name":%q,"input":%s}],"usage":{"input_tokens":1,"output_tokens":1}}`, tb, id, name, input)
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ChainDelay = 0
	cfg.RetryBaseDelay = config.Duration(time.Millisecond)
	return cfg
}

func newManager(t *testing.T, cfg config.Config, reg *tools.Registry, s *script) *runner.Manager {
	t.Helper()
	m := runner.New(cfg, reg).WithTransport(provider.TransportFunc(s.send))
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

// countingTool records executions and returns a fixed string.
func countingTool(name string, calls *int) tools.Definition {
	return tools.Definition{
		Name:        name,
		Description: "test tool",
		InputSchema: tools.GenerateSchema[struct{}](),
		Function: func(_ context.Context, _ json.RawMessage) (string, error) {
			*calls++
			return "pong", nil
		},
	}
}

func TestProcessInput_TextOnly(t *testing.T) {
	s := &script{responses: []string{textResponse("hello there")}}
	m := newManager(t, testConfig(), tools.NewRegistry(), s)

	resp, err := m.ProcessInput(context.Background(), "hi")
	if err != nil {
		t.Fatalf("ProcessInput: %v", err)
	}
	if resp.Content != "hello there" {
		t.Fatalf("Content = %q", resp.Content)
	}
	if len(resp.ToolResults) != 0 {
		t.Fatalf("ToolResults = %d, want 0", len(resp.ToolResults))
	}
	if s.calls() != 1 {
		t.Fatalf("transport calls = %d, want 1", s.calls())
	}

	req := s.request(0)
	if got := req.Get("messages.0.content.0.text").String(); got != "hi" {
		t.Fatalf("forwarded user text = %q", got)
	}
	if req.Get("system").String() == "" {
		t.Fatal("system prompt not forwarded")
	}
}

func TestProcessInput_BeforeInit(t *testing.T) {
	m := runner.New(testConfig(), tools.NewRegistry())
	if _, err := m.ProcessInput(context.Background(), "hi"); !errors.Is(err, provider.ErrNotInitialized) {
		t.Fatalf("err = %v, want ErrNotInitialized", err)
	}
}

// Drives the canonical tool round: the model asks for list_directory with
// call id "a1", the directory listing comes back as a tool_result carrying
// that same id, and the follow-up completion closes the exchange.
func TestProcessInput_ToolRound_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	ws, err := fsops.NewWorkspace(dir)
	if err != nil {
		t.Fatalf("NewWorkspace: %v", err)
	}

	s := &script{responses: []string{
		toolResponse("Let me look at that directory.", "a1", "list_directory", `{"path":"."}`),
		textResponse("The directory is empty."),
	}}
	m := newManager(t, testConfig(), tools.Builtin(ws), s)

	resp, err := m.ProcessInput(context.Background(), "what's in here?")
	if err != nil {
		t.Fatalf("ProcessInput: %v", err)
	}

	want := "Let me look at that directory.\n\nThe directory is empty."
	if resp.Content != want {
		t.Fatalf("Content = %q, want %q", resp.Content, want)
	}
	if len(resp.ToolResults) != 1 {
		t.Fatalf("ToolResults = %d, want 1", len(resp.ToolResults))
	}
	if resp.ToolResults[0].CallID != "a1" {
		t.Fatalf("CallID = %q, want a1", resp.ToolResults[0].CallID)
	}
	if !strings.HasPrefix(resp.ToolResults[0].Text, "Contents of") {
		t.Fatalf("result text = %q", resp.ToolResults[0].Text)
	}

	if s.calls() != 2 {
		t.Fatalf("transport calls = %d, want 2", s.calls())
	}

	// Second request must carry the tool_use followed immediately by the
	// matching tool_result, id untouched.
	req := s.request(1)
	msgs := req.Get("messages").Array()
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(msgs))
	}
	last := msgs[1].Get("content").Array()
	if got := last[len(last)-1].Get("id").String(); got != "a1" {
		t.Fatalf("tool_use id = %q, want a1", got)
	}
	follow := msgs[2]
	if follow.Get("role").String() != "user" {
		t.Fatalf("follow role = %q", follow.Get("role").String())
	}
	first := follow.Get("content.0")
	if first.Get("type").String() != "tool_result" {
		t.Fatalf("leading block type = %q", first.Get("type").String())
	}
	if got := first.Get("tool_use_id").String(); got != "a1" {
		t.Fatalf("tool_use_id = %q, want a1", got)
	}
}

func TestProcessInput_DepthBound(t *testing.T) {
	cfg := testConfig()
	cfg.MaxChainDepth = 2

	// Every completion asks for another round; the chain must cut off
	// after two follow-ups and drop the third round's call unexecuted.
	s := &script{responses: []string{
		toolResponse("round 0", "id0", "ping", `{}`),
		toolResponse("round 1", "id1", "ping", `{}`),
		toolResponse("round 2", "id2", "ping", `{}`),
	}}

	calls := 0
	reg := tools.NewRegistry()
	reg.Register(countingTool("ping", &calls))
	m := newManager(t, cfg, reg, s)

	resp, err := m.ProcessInput(context.Background(), "go")
	if err != nil {
		t.Fatalf("ProcessInput: %v", err)
	}
	if calls != 2 {
		t.Fatalf("tool executions = %d, want 2", calls)
	}
	if s.calls() != 3 {
		t.Fatalf("transport calls = %d, want 3", s.calls())
	}
	if len(resp.ToolResults) != 2 {
		t.Fatalf("ToolResults = %d, want 2", len(resp.ToolResults))
	}
	if resp.Content != "round 0\n\nround 1\n\nround 2" {
		t.Fatalf("Content = %q", resp.Content)
	}
}

func TestProcessInputOnce_SingleRound(t *testing.T) {
	s := &script{responses: []string{
		toolResponse("first", "id0", "ping", `{}`),
		toolResponse("second", "id1", "ping", `{}`),
	}}

	calls := 0
	reg := tools.NewRegistry()
	reg.Register(countingTool("ping", &calls))
	m := newManager(t, testConfig(), reg, s)

	resp, err := m.ProcessInputOnce(context.Background(), "go")
	if err != nil {
		t.Fatalf("ProcessInputOnce: %v", err)
	}
	if calls != 1 {
		t.Fatalf("tool executions = %d, want 1", calls)
	}
	if s.calls() != 2 {
		t.Fatalf("transport calls = %d, want 2", s.calls())
	}
	if len(resp.ToolResults) != 1 {
		t.Fatalf("ToolResults = %d, want 1", len(resp.ToolResults))
	}
}

func TestProcessInput_ToolErrorBecomesResultText(t *testing.T) {
	s := &script{responses: []string{
		toolResponse("running it", "e1", "boom", `{}`),
		textResponse("that failed"),
	}}

	reg := tools.NewRegistry()
	reg.Register(tools.Definition{
		Name:        "boom",
		Description: "always fails",
		InputSchema: tools.GenerateSchema[struct{}](),
		Function: func(_ context.Context, _ json.RawMessage) (string, error) {
			return "", errors.New("disk on fire")
		},
	})
	m := newManager(t, testConfig(), reg, s)

	resp, err := m.ProcessInput(context.Background(), "go")
	if err != nil {
		t.Fatalf("ProcessInput: %v", err)
	}
	if len(resp.ToolResults) != 1 {
		t.Fatalf("ToolResults = %d, want 1", len(resp.ToolResults))
	}
	if !strings.Contains(resp.ToolResults[0].Text, "disk on fire") {
		t.Fatalf("result text = %q", resp.ToolResults[0].Text)
	}

	// The failure text still travels back to the provider as a result.
	req := s.request(1)
	got := req.Get("messages.2.content.0.content").String()
	if !strings.Contains(got, "disk on fire") {
		t.Fatalf("forwarded result = %q", got)
	}
}

func TestProcessInput_ConcurrentExchangeRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	slow := provider.TransportFunc(func(ctx context.Context, _ []byte) ([]byte, error) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return []byte(textResponse("done")), nil
	})

	m := runner.New(testConfig(), tools.NewRegistry()).WithTransport(slow)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := m.ProcessInput(context.Background(), "slow one")
		errCh <- err
	}()

	<-started
	if _, err := m.ProcessInput(context.Background(), "second"); !errors.Is(err, runner.ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	close(release)
	if err := <-errCh; err != nil {
		t.Fatalf("first exchange: %v", err)
	}
}

func TestProcessInput_AutoCompaction(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContextWords = 5

	long := strings.Repeat("word ", 20)
	s := &script{responses: []string{
		textResponse(long),
		textResponse("users asked about words"),
		textResponse("short"),
	}}
	m := newManager(t, cfg, tools.NewRegistry(), s)

	if _, err := m.ProcessInput(context.Background(), "tell me words"); err != nil {
		t.Fatalf("ProcessInput: %v", err)
	}
	if s.calls() != 2 {
		t.Fatalf("transport calls = %d, want 2 (exchange + summary)", s.calls())
	}

	// The summary solicitation rides the fast tier.
	sum := s.request(1)
	if got := sum.Get("model").String(); got != cfg.FastModel {
		t.Fatalf("summary model = %q, want %q", got, cfg.FastModel)
	}
	if !strings.Contains(sum.Get("messages.0.content.0.text").String(), "summarize") {
		t.Fatal("summary prompt missing")
	}
	if sum.Get("tools").Exists() {
		t.Fatal("summary request must not carry tools")
	}

	// A later exchange renders the injected summary as system context.
	if _, err := m.ProcessInput(context.Background(), "and now?"); err != nil {
		t.Fatalf("second ProcessInput: %v", err)
	}
	next := s.request(2)
	if !strings.Contains(next.Get("system").String(), "Summary of previous conversation:") {
		t.Fatalf("system = %q", next.Get("system").String())
	}
}

func TestProcessInput_CompactionFailureIsNotFatal(t *testing.T) {
	cfg := testConfig()
	cfg.MaxContextWords = 5
	cfg.MaxRetries = 1

	n := 0
	flaky := provider.TransportFunc(func(_ context.Context, payload []byte) ([]byte, error) {
		n++
		if n == 1 {
			return []byte(textResponse(strings.Repeat("word ", 20))), nil
		}
		return nil, &provider.TransportError{Kind: provider.KindValidation, Status: 400, Message: "bad"}
	})

	m := runner.New(cfg, tools.NewRegistry()).WithTransport(flaky)
	if err := m.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	resp, err := m.ProcessInput(context.Background(), "tell me words")
	if err != nil {
		t.Fatalf("ProcessInput: %v", err)
	}
	if resp.Content == "" {
		t.Fatal("exchange content lost to failed compaction")
	}
}
