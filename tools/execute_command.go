package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/navicore/gamecode-agent/internal/fsops"
	"github.com/navicore/gamecode-agent/internal/safety"
)

// commandTimeout bounds subprocess execution so a hung command cannot stall
// the tool chain.
const commandTimeout = 30 * time.Second

type ExecuteCommandInput struct {
	Command string `json:"command" jsonschema_description:"Shell command to execute. Only a small allow-list of read-only commands is permitted; shell metacharacters are rejected."`
}

var executeCommandSchema = GenerateSchema[ExecuteCommandInput]()

// NewExecuteCommandTool returns the execute_command tool. The command line is
// tokenized respecting quotes, vetted against the allow-list and the
// unsafe-argument policy, and run directly (no shell) with the working
// directory as CWD.
func NewExecuteCommandTool(ws *fsops.Workspace) Definition {
	return Definition{
		Name:        "execute_command",
		Description: "Execute an allow-listed shell command (" + joinAllowed() + ") in the working directory.",
		InputSchema: executeCommandSchema,
		Function: func(ctx context.Context, input json.RawMessage) (string, error) {
			var in ExecuteCommandInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			parts, err := safety.VetCommand(in.Command)
			if err != nil {
				return "", err
			}
			return runCommand(ctx, ws.Root(), parts)
		},
	}
}

func runCommand(ctx context.Context, dir string, parts []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", safety.ToolError{
			Code:    "ERR_COMMAND_TIMEOUT",
			Message: fmt.Sprintf("command %q timed out", parts[0]),
		}
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			// Failed to start at all.
			return "", safety.ToolError{
				Code:    "ERR_COMMAND_FAILED",
				Message: fmt.Sprintf("failed to execute command: %v", runErr),
			}
		}
		// Non-zero exit is ordinary tool output; stderr carries the story.
	}

	out := stdout.String()
	if s := stderr.String(); s != "" {
		if out != "" {
			out += "\n\nErrors:\n"
		}
		out += s
	}
	if out == "" {
		out = "Command executed successfully with no output"
	}
	return out, nil
}

func joinAllowed() string {
	allowed := safety.AllowedCommands()
	out := ""
	for i, c := range allowed {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}
