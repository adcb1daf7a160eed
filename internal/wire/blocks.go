// Package wire defines the vendor chat-completion wire format: role-tagged
// messages of typed content blocks, the request envelope, and response
// parsing. This is the single structured path between the conversation model
// and the provider; nothing elsewhere scans response text for tool markers.
package wire

import "encoding/json"

// Role tags a wire message. The provider convention only knows user and
// assistant roles; system text travels in the request envelope and tool
// results ride in user messages.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Block is one content block inside a message. Type selects which of the
// remaining fields are meaningful:
//
//	"text"        -> Text
//	"tool_use"    -> ID, Name, Input
//	"tool_result" -> ToolUseID, Content
type Block struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

// Message is one role-tagged entry in the provider-facing window.
type Message struct {
	Role    Role    `json:"role"`
	Content []Block `json:"content"`
}

// NewTextBlock returns a text content block.
func NewTextBlock(text string) Block {
	return Block{Type: "text", Text: text}
}

// NewToolUseBlock returns a tool_use block. The id is the provider-assigned
// call identifier and is carried through without modification.
func NewToolUseBlock(id, name string, input json.RawMessage) Block {
	if len(input) == 0 {
		input = json.RawMessage(`{}`)
	}
	return Block{Type: "tool_use", ID: id, Name: name, Input: input}
}

// NewToolResultBlock returns a tool_result block correlated to a tool_use
// block by its exact id.
func NewToolResultBlock(toolUseID, content string) Block {
	return Block{Type: "tool_result", ToolUseID: toolUseID, Content: content}
}

// ToolInvocation is a model-requested tool call extracted from a response.
// ID is opaque and provider-assigned; it must be copied byte-for-byte onto
// the corresponding tool_result and never regenerated or normalized.
type ToolInvocation struct {
	ID    string
	Name  string
	Input json.RawMessage
}
