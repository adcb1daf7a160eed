// Package tools defines tool contracts and implementations.
//
// Includes:
//   - Definition: name, description, JSON input schema, handler.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: name-keyed dispatch with argument validation.
//   - Built-ins: read_file, write_file, list_directory, execute_command,
//     all bounded by a working-directory workspace.
package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"

	"github.com/navicore/gamecode-agent/internal/wire"
)

// Definition describes one callable tool: its wire-facing schema and its
// handler. Handlers return text output or a recoverable error; the
// orchestrator converts errors into tool-result text, never an aborted
// exchange.
type Definition struct {
	Name        string
	Description string
	InputSchema wire.ToolSchema
	Function    func(ctx context.Context, input json.RawMessage) (string, error)
}

// Wire returns the request-envelope form of the definition.
func (d Definition) Wire() wire.Tool {
	return wire.Tool{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema}
}

// GenerateSchema derives a JSON schema for T's fields. Descriptions come
// from jsonschema_description struct tags; optional fields carry
// ",omitempty" in their json tag.
func GenerateSchema[T any]() wire.ToolSchema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return wire.ToolSchema{
		Type:       "object",
		Properties: schema.Properties,
		Required:   schema.Required,
	}
}
