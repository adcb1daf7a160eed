package memory

import (
	"github.com/navicore/gamecode-agent/internal/telemetry"
	"github.com/navicore/gamecode-agent/internal/wire"
)

// Render produces the provider-facing window: the joined system prompt and
// the ordered wire messages. Pure and side-effect free on the log; calling it
// repeatedly without intervening mutation yields identical output.
//
// Adjacency guard: an assistant turn's tool_use blocks are emitted only when
// the immediately following turn is a tool turn whose results cover every
// invocation, in order. A tool turn is emitted only when it is that matching
// follower. Anything else (a dropped chain tail, a pair split by
// compaction) renders without the tool blocks, with a warning, so the window
// is always well formed.
func (c *Conversation) Render() (system string, msgs []wire.Message) {
	var systems []string

	for i := 0; i < len(c.turns); i++ {
		t := c.turns[i]
		switch t.Role {
		case RoleSystem:
			systems = append(systems, t.Text)

		case RoleUser:
			msgs = append(msgs, wire.Message{
				Role:    wire.RoleUser,
				Content: []wire.Block{wire.NewTextBlock(t.Text)},
			})

		case RoleAssistant:
			var blocks []wire.Block
			if t.Text != "" {
				blocks = append(blocks, wire.NewTextBlock(t.Text))
			}
			if len(t.Invocations) > 0 {
				if resultsCover(t.Invocations, followingResults(c.turns, i)) {
					for _, inv := range t.Invocations {
						blocks = append(blocks, wire.NewToolUseBlock(inv.ID, inv.Name, inv.Input))
					}
				} else {
					telemetry.Warnf("render_orphan_tool_use",
						"suppressing %d unanswered tool_use block(s) from assistant turn", len(t.Invocations))
				}
			}
			if len(blocks) == 0 {
				continue
			}
			msgs = append(msgs, wire.Message{Role: wire.RoleAssistant, Content: blocks})

		case RoleTool:
			if i == 0 || !resultsCover(c.turns[i-1].Invocations, t.Results) || c.turns[i-1].Role != RoleAssistant {
				telemetry.Warnf("render_orphan_tool_results",
					"suppressing %d tool result(s) with no preceding invocation turn", len(t.Results))
				continue
			}
			blocks := make([]wire.Block, 0, len(t.Results))
			for _, r := range t.Results {
				blocks = append(blocks, wire.NewToolResultBlock(r.CallID, r.Text))
			}
			msgs = append(msgs, wire.Message{Role: wire.RoleUser, Content: blocks})
		}
	}

	return joinSystems(systems), msgs
}

// followingResults returns the results of turns[i+1] when it is a tool turn.
func followingResults(turns []Turn, i int) []ToolResult {
	if i+1 >= len(turns) || turns[i+1].Role != RoleTool {
		return nil
	}
	return turns[i+1].Results
}

// resultsCover reports whether results answer every invocation, in invocation
// order, with no extras. Adjacent pairs written by AppendToolResults always
// satisfy this; compaction or partial execution can break it.
func resultsCover(invocations []wire.ToolInvocation, results []ToolResult) bool {
	if len(invocations) == 0 || len(invocations) != len(results) {
		return false
	}
	for i, inv := range invocations {
		if results[i].CallID != inv.ID {
			return false
		}
	}
	return true
}

func joinSystems(systems []string) string {
	switch len(systems) {
	case 0:
		return ""
	case 1:
		return systems[0]
	}
	out := systems[0]
	for _, s := range systems[1:] {
		out += "\n\n" + s
	}
	return out
}
