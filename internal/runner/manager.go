package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/navicore/gamecode-agent/internal/config"
	"github.com/navicore/gamecode-agent/internal/provider"
	"github.com/navicore/gamecode-agent/internal/telemetry"
	"github.com/navicore/gamecode-agent/internal/wire"
	"github.com/navicore/gamecode-agent/memory"
	"github.com/navicore/gamecode-agent/tools"
)

// ErrBusy is returned when an exchange is already in flight on this
// manager. Callers serialize or queue; exchanges are never interleaved.
var ErrBusy = errors.New("an exchange is already in flight")

// Response is the outcome of one user exchange: the assistant texts joined
// across all chained rounds, plus every tool result produced along the way.
type Response struct {
	Content     string
	ToolResults []memory.ToolResult
}

// Manager is the single owner of a conversation, its tool registry, and the
// protocol adapter. All access goes through one mutex; a second concurrent
// exchange is rejected with ErrBusy rather than queued.
type Manager struct {
	mu sync.Mutex

	cfg       config.Config
	conv      *memory.Conversation
	registry  *tools.Registry
	adapter   *provider.Adapter
	transport provider.Transport
}

// New builds a manager over a fresh conversation seeded with the configured
// system prompt. Init must be called before the first exchange.
func New(cfg config.Config, registry *tools.Registry) *Manager {
	return &Manager{
		cfg:      cfg,
		conv:     memory.New(cfg.SystemPrompt),
		registry: registry,
	}
}

// WithTransport presets the transport Init will wrap, instead of the
// default SDK transport. Used by tests and alternate endpoints.
func (m *Manager) WithTransport(t provider.Transport) *Manager {
	m.transport = t
	return m
}

// Init wires the adapter over the transport. Exchanges before Init fail
// with provider.ErrNotInitialized.
func (m *Manager) Init(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.transport
	if t == nil {
		t = provider.NewSDKTransport()
	}
	m.adapter = provider.NewAdapter(t, m.cfg.MaxRetries, m.cfg.RetryBaseDelay.Std())
	return nil
}

// ProcessInput runs one full user exchange with chained tool rounds up to
// the configured depth.
func (m *Manager) ProcessInput(ctx context.Context, input string) (*Response, error) {
	return m.process(ctx, input, m.cfg.MaxChainDepth, m.cfg.ChainDelay.Std())
}

// ProcessInputOnce runs a single execute/respond cycle: at most one round
// of tool execution and one follow-up completion, with no inter-request
// delay.
func (m *Manager) ProcessInputOnce(ctx context.Context, input string) (*Response, error) {
	return m.process(ctx, input, 1, 0)
}

func (m *Manager) process(ctx context.Context, input string, maxDepth int, delay time.Duration) (*Response, error) {
	if !m.mu.TryLock() {
		return nil, ErrBusy
	}
	defer m.mu.Unlock()
	if m.adapter == nil {
		return nil, provider.ErrNotInitialized
	}

	exchangeID := fmt.Sprintf("ex-%d", time.Now().UnixNano())
	ctx = telemetry.WithExchangeID(ctx, exchangeID)

	m.conv.Append(memory.RoleUser, input)

	completion, err := m.complete(ctx)
	if err != nil {
		return nil, err
	}

	var texts []string
	var results []memory.ToolResult

	// Tool chain as an explicit loop: one iteration per round of tool
	// execution, depth incremented per follow-up solicitation.
	depth := 0
	for {
		if completion.Text != "" {
			texts = append(texts, completion.Text)
		}

		if !completion.HasToolCalls() {
			m.conv.AppendAssistant(completion.Text, nil)
			break
		}

		if depth >= maxDepth {
			names := make([]string, len(completion.Invocations))
			for i, inv := range completion.Invocations {
				names[i] = inv.Name
			}
			telemetry.Warnf("chain_depth_exceeded",
				"dropping %d tool call(s) at depth %d: %s",
				len(names), depth, strings.Join(names, ", "))
			// Appended text-only so the rendered window never carries a
			// tool_use with no answering result.
			m.conv.AppendAssistant(completion.Text, nil)
			break
		}

		m.conv.AppendAssistant(completion.Text, completion.Invocations)
		round := m.executeRound(ctx, completion.Invocations)
		results = append(results, round...)
		m.conv.AppendToolResults(round)

		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		completion, err = m.complete(ctx)
		if err != nil {
			return nil, err
		}
		depth++
	}

	m.maybeCompact(ctx)

	return &Response{
		Content:     strings.Join(texts, "\n\n"),
		ToolResults: results,
	}, nil
}

// executeRound runs the invocations sequentially in provider order. A tool
// failure becomes the result text; it never aborts the exchange.
func (m *Manager) executeRound(ctx context.Context, invs []wire.ToolInvocation) []memory.ToolResult {
	out := make([]memory.ToolResult, 0, len(invs))
	for _, inv := range invs {
		text, err := m.registry.Execute(ctx, inv.Name, inv.Input)
		if err != nil {
			text = err.Error()
		}
		out = append(out, memory.ToolResult{
			ToolName: inv.Name,
			CallID:   inv.ID,
			Text:     text,
		})
	}
	return out
}

func (m *Manager) complete(ctx context.Context) (*wire.Completion, error) {
	system, msgs := m.conv.Render()
	p := wire.Params{
		Model:       m.cfg.Model,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.Temperature,
	}
	return m.adapter.Complete(ctx, system, msgs, m.registry.Definitions(), p)
}

// maybeCompact summarizes the history through the fast model tier when the
// size estimate passes the ceiling. A failed compaction is logged and the
// exchange result stands.
func (m *Manager) maybeCompact(ctx context.Context) {
	if m.cfg.MaxContextWords <= 0 || m.conv.EstimatedSize() <= m.cfg.MaxContextWords {
		return
	}

	prompt := "Please summarize the following conversation concisely while preserving all important information:\n" +
		conversationText(m.conv.Turns())
	msgs := []wire.Message{{
		Role:    wire.RoleUser,
		Content: []wire.Block{wire.NewTextBlock(prompt)},
	}}
	p := wire.Params{
		Model:       m.cfg.FastModel,
		MaxTokens:   m.cfg.MaxTokens,
		Temperature: m.cfg.FastTemperature,
	}

	completion, err := m.adapter.Complete(ctx, "", msgs, nil, p)
	if err != nil {
		telemetry.Warnf("compact_failed", "context compaction failed: %v", err)
		return
	}
	m.conv.Compact(completion.Text)
	telemetry.Emit("context_compacted", map[string]any{
		"estimated_words": m.conv.EstimatedSize(),
		"turns":           m.conv.Len(),
	})
}

func conversationText(turns []memory.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		if t.Text == "" {
			continue
		}
		b.WriteString(string(t.Role))
		b.WriteString(": ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}
	return b.String()
}

// Transcript snapshots the persistable user/assistant text turns.
func (m *Manager) Transcript() []memory.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conv.Transcript()
}

// RestoreTranscript replays persisted records into the conversation.
// Intended for startup, before the first exchange.
func (m *Manager) RestoreTranscript(recs []memory.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conv.Restore(recs)
}
