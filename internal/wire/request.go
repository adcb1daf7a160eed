package wire

import (
	"encoding/json"
	"fmt"
)

// Tool describes one callable tool in the request envelope.
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputSchema ToolSchema `json:"input_schema"`
}

// ToolSchema is a JSON-schema object describing a tool's input.
type ToolSchema struct {
	Type       string   `json:"type"`
	Properties any      `json:"properties,omitempty"`
	Required   []string `json:"required,omitempty"`
}

// ToolChoice tells the model how to decide on tool use. The only mode this
// system emits is "auto": the model decides whether a tool is needed.
type ToolChoice struct {
	Type string `json:"type"`
}

// Params are per-request model parameters.
type Params struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// Request is the provider request envelope.
type Request struct {
	Model       string      `json:"model"`
	System      string      `json:"system,omitempty"`
	MaxTokens   int         `json:"max_tokens"`
	Temperature float64     `json:"temperature"`
	Messages    []Message   `json:"messages"`
	Tools       []Tool      `json:"tools,omitempty"`
	ToolChoice  *ToolChoice `json:"tool_choice,omitempty"`
}

// BuildRequest assembles and serializes the request payload. Pure: the same
// inputs always yield the same bytes. Serialization failure indicates a
// programming error (a non-encodable schema value) and is returned as-is.
func BuildRequest(system string, msgs []Message, tools []Tool, p Params) ([]byte, error) {
	if p.Model == "" {
		return nil, fmt.Errorf("wire: missing model identifier")
	}
	req := Request{
		Model:       p.Model,
		System:      system,
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
		Messages:    msgs,
	}
	if len(tools) > 0 {
		req.Tools = tools
		req.ToolChoice = &ToolChoice{Type: "auto"}
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("wire: encode request: %w", err)
	}
	return b, nil
}
