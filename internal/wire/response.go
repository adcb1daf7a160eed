package wire

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/navicore/gamecode-agent/internal/telemetry"
)

// Usage reports token accounting from a response.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the generic form of one provider response: the aggregated
// text plus any tool invocations, with call identifiers untouched.
type Completion struct {
	Text        string
	Invocations []ToolInvocation
	Model       string
	StopReason  string
	Usage       Usage
}

// HasToolCalls reports whether the completion requests any tool executions.
func (c *Completion) HasToolCalls() bool { return len(c.Invocations) > 0 }

// ParseResponse deserializes a raw provider response into a Completion.
// Text blocks are concatenated newline-joined; each tool_use block becomes a
// ToolInvocation carrying the provider's id byte-for-byte. Blocks of an
// unrecognized type are ignored with a warning, never an error.
func ParseResponse(raw []byte) (*Completion, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("wire: response is not valid JSON")
	}
	root := gjson.ParseBytes(raw)
	content := root.Get("content")
	if !content.Exists() || !content.IsArray() {
		return nil, fmt.Errorf("wire: response has no content array")
	}

	c := &Completion{
		Model:      root.Get("model").String(),
		StopReason: root.Get("stop_reason").String(),
		Usage: Usage{
			InputTokens:  int(root.Get("usage.input_tokens").Int()),
			OutputTokens: int(root.Get("usage.output_tokens").Int()),
		},
	}

	var texts []string
	var parseErr error
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "text":
			texts = append(texts, block.Get("text").String())
		case "tool_use":
			id := block.Get("id").String()
			name := block.Get("name").String()
			if id == "" || name == "" {
				parseErr = fmt.Errorf("wire: tool_use block missing id or name")
				return false
			}
			input := json.RawMessage(`{}`)
			if in := block.Get("input"); in.Exists() {
				input = json.RawMessage(in.Raw)
			}
			c.Invocations = append(c.Invocations, ToolInvocation{ID: id, Name: name, Input: input})
		default:
			telemetry.Warnf("unknown_content_block", "ignoring content block of type %q", block.Get("type").String())
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	c.Text = strings.Join(texts, "\n")
	return c, nil
}
