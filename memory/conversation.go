// Package memory owns the conversation turn log: an append-only, role-tagged
// history that renders into the provider-facing window.
//
// Invariants:
//   - Turns are totally ordered by insertion and never mutated in place;
//     Compact is the only operation that supersedes them.
//   - A rendered message containing tool_use blocks is always immediately
//     followed by a message whose leading blocks are the matching
//     tool_result entries, in invocation order. Turns that would violate
//     this are suppressed from the window with a logged warning.
//   - Tool-result call IDs are copied verbatim from their invocations;
//     results without a matching unresolved invocation are dropped, never
//     coerced onto another call.
package memory

import (
	"strings"

	"github.com/navicore/gamecode-agent/internal/telemetry"
	"github.com/navicore/gamecode-agent/internal/wire"
)

// Role tags a turn in the conversation log.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolResult is the outcome of executing one tool invocation. CallID is the
// provider-assigned identifier copied byte-for-byte from the invocation.
type ToolResult struct {
	ToolName string `json:"tool_name"`
	CallID   string `json:"call_id"`
	Text     string `json:"text"`
}

// Turn is one entry in the conversation log. Invocations is populated only
// for assistant turns that requested tools; Results only for tool turns.
type Turn struct {
	Role        Role
	Text        string
	Invocations []wire.ToolInvocation
	Results     []ToolResult
}

// compactKeepRecent is the number of trailing non-system turns Compact retains.
const compactKeepRecent = 4

// Conversation is the ordered turn log plus a cheap size estimate.
// Not safe for concurrent use; callers serialize access (see runner.Manager).
type Conversation struct {
	turns []Turn
	words int
}

// New returns an empty conversation. When systemPrompt is non-empty it is
// recorded as the initial system turn.
func New(systemPrompt string) *Conversation {
	c := &Conversation{}
	if systemPrompt != "" {
		c.Append(RoleSystem, systemPrompt)
	}
	return c
}

// Append adds a plain text turn and updates the size estimate. Infallible.
func (c *Conversation) Append(role Role, text string) {
	c.turns = append(c.turns, Turn{Role: role, Text: text})
	c.words += wordCount(text)
}

// AppendAssistant adds an assistant turn that may carry pending tool
// invocations. Invocation IDs are stored untouched.
func (c *Conversation) AppendAssistant(text string, invocations []wire.ToolInvocation) {
	c.turns = append(c.turns, Turn{Role: RoleAssistant, Text: text, Invocations: invocations})
	c.words += wordCount(text)
}

// AppendToolResults records tool execution outcomes as a single tool turn.
//
// Each result must answer an invocation in the immediately preceding
// assistant turn; matched results are reordered to invocation order so the
// rendered window satisfies the adjacency invariant. Results with an empty
// CallID, or with no matching unresolved invocation, are skipped with a
// warning. When nothing matches, no turn is appended.
func (c *Conversation) AppendToolResults(results []ToolResult) {
	pending := c.pendingInvocations()
	if len(pending) == 0 {
		for _, r := range results {
			telemetry.Warnf("tool_result_dropped", "no pending invocations; dropping result for tool %q", r.ToolName)
		}
		return
	}

	byID := make(map[string]ToolResult, len(results))
	for _, r := range results {
		if r.CallID == "" {
			telemetry.Warnf("tool_result_missing_call_id", "dropping result for tool %q: missing call_id", r.ToolName)
			continue
		}
		if _, dup := byID[r.CallID]; dup {
			telemetry.Warnf("tool_result_dropped", "duplicate result for call_id %q (tool %q)", r.CallID, r.ToolName)
			continue
		}
		byID[r.CallID] = r
	}

	ordered := make([]ToolResult, 0, len(byID))
	for _, inv := range pending {
		if r, ok := byID[inv.ID]; ok {
			ordered = append(ordered, r)
			delete(byID, inv.ID)
		}
	}
	for id, r := range byID {
		telemetry.Warnf("tool_result_dropped", "result call_id %q (tool %q) matches no pending invocation", id, r.ToolName)
	}
	if len(ordered) == 0 {
		return
	}

	c.turns = append(c.turns, Turn{Role: RoleTool, Results: ordered})
	for _, r := range ordered {
		c.words += wordCount(r.Text)
	}
}

// pendingInvocations returns the invocations of the last turn when it is an
// assistant turn still awaiting results.
func (c *Conversation) pendingInvocations() []wire.ToolInvocation {
	if len(c.turns) == 0 {
		return nil
	}
	last := c.turns[len(c.turns)-1]
	if last.Role != RoleAssistant {
		return nil
	}
	return last.Invocations
}

// EstimatedSize returns the whitespace-delimited word count proxy for the log.
func (c *Conversation) EstimatedSize() int { return c.words }

// Len returns the number of turns in the log.
func (c *Conversation) Len() int { return len(c.turns) }

// Turns returns a copy of the turn log for inspection.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Compact replaces the log with: all system turns in order, one synthetic
// system turn carrying summary, then the most recent compactKeepRecent
// non-system turns in their original relative order. The size estimate is
// recomputed from scratch.
func (c *Conversation) Compact(summary string) {
	var systems []Turn
	var rest []Turn
	for _, t := range c.turns {
		if t.Role == RoleSystem {
			systems = append(systems, t)
		} else {
			rest = append(rest, t)
		}
	}
	if len(rest) > compactKeepRecent {
		rest = rest[len(rest)-compactKeepRecent:]
	}

	compacted := make([]Turn, 0, len(systems)+1+len(rest))
	compacted = append(compacted, systems...)
	compacted = append(compacted, Turn{
		Role: RoleSystem,
		Text: "Summary of previous conversation:\n" + summary,
	})
	compacted = append(compacted, rest...)

	c.turns = compacted
	c.words = 0
	for _, t := range c.turns {
		c.words += wordCount(t.Text)
		for _, r := range t.Results {
			c.words += wordCount(r.Text)
		}
	}
}

func wordCount(s string) int { return len(strings.Fields(s)) }
