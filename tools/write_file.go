package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/navicore/gamecode-agent/internal/fsops"
)

type WriteFileInput struct {
	Path    string `json:"path" jsonschema_description:"Path to the file to write, resolved against the working directory when relative."`
	Content string `json:"content" jsonschema_description:"Content to write to the file. Existing content is replaced."`
}

var writeFileSchema = GenerateSchema[WriteFileInput]()

// NewWriteFileTool returns the write_file tool bounded by ws. Parent
// directories are created as needed; existing files are overwritten.
func NewWriteFileTool(ws *fsops.Workspace) Definition {
	return Definition{
		Name:        "write_file",
		Description: "Write content to a file in the working directory, creating parent directories as needed.",
		InputSchema: writeFileSchema,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			var in WriteFileInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			if err := ws.WriteFile(in.Path, in.Content); err != nil {
				return "", err
			}
			return fmt.Sprintf("Successfully wrote to file: %s", in.Path), nil
		},
	}
}
