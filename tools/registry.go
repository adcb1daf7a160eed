package tools

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/navicore/gamecode-agent/internal/fsops"
	"github.com/navicore/gamecode-agent/internal/safety"
	"github.com/navicore/gamecode-agent/internal/telemetry"
	"github.com/navicore/gamecode-agent/internal/wire"
)

// Registry maps tool names to definitions and dispatches execution.
type Registry struct {
	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Builtin returns a registry preloaded with the built-in tools, all bounded
// by the given workspace.
func Builtin(ws *fsops.Workspace) *Registry {
	r := NewRegistry()
	r.Register(NewReadFileTool(ws))
	r.Register(NewWriteFileTool(ws))
	r.Register(NewListDirectoryTool(ws))
	r.Register(NewExecuteCommandTool(ws))
	return r
}

// Register adds a definition. The last registration for a name wins.
func (r *Registry) Register(def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; !exists {
		r.order = append(r.order, def.Name)
	}
	r.defs[def.Name] = def
}

// Definitions returns the wire form of all registered tools in registration order.
func (r *Registry) Definitions() []wire.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]wire.Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name].Wire())
	}
	return out
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Execute looks up and runs a tool. Unknown names and missing required
// arguments fail before any dispatch; both are recoverable tool-level errors.
func (r *Registry) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()

	start := time.Now()
	emit := func(outLen int, errStr string) {
		fields := map[string]any{
			"tool_name":   name,
			"duration_ms": time.Since(start).Milliseconds(),
			"input_size":  len(input),
			"output_size": outLen,
		}
		if id, ok := telemetry.ExchangeIDFromContext(ctx); ok {
			fields["exchange_id"] = id
		}
		if errStr != "" {
			fields["error"] = errStr
		} else {
			fields["error"] = nil
		}
		telemetry.Emit("tool_exec", fields)
	}

	if !ok {
		emit(0, "tool not found")
		return "", safety.ToolError{Code: "ERR_TOOL_NOT_FOUND", Message: "tool '" + name + "' not found"}
	}

	if err := validateRequired(def, input); err != nil {
		emit(0, "invalid arguments")
		return "", err
	}

	out, err := def.Function(ctx, input)
	if err != nil {
		// Emit a generic error string to avoid leaking raw payloads in telemetry;
		// the detailed message still reaches the model as tool-result text.
		emit(0, "tool error")
		return "", err
	}
	emit(len(out), "")
	return out, nil
}

// validateRequired checks that every required key from the declared schema is
// present in the input payload.
func validateRequired(def Definition, input json.RawMessage) error {
	if len(def.InputSchema.Required) == 0 {
		return nil
	}
	parsed := gjson.ParseBytes(input)
	for _, key := range def.InputSchema.Required {
		if !parsed.Get(key).Exists() {
			return safety.ToolError{
				Code:    "ERR_MISSING_ARGUMENT",
				Message: "tool '" + def.Name + "' requires argument '" + key + "'",
			}
		}
	}
	return nil
}
