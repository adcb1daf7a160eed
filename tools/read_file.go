package tools

import (
	"context"
	"encoding/json"

	"github.com/navicore/gamecode-agent/internal/fsops"
)

type ReadFileInput struct {
	Path string `json:"path" jsonschema_description:"Path to the file to read, resolved against the working directory when relative."`
}

var readFileSchema = GenerateSchema[ReadFileInput]()

// NewReadFileTool returns the read_file tool bounded by ws.
func NewReadFileTool(ws *fsops.Workspace) Definition {
	return Definition{
		Name:        "read_file",
		Description: "Read the contents of a file from the working directory.",
		InputSchema: readFileSchema,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			var in ReadFileInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			return ws.ReadFile(in.Path)
		},
	}
}
