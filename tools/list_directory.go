package tools

import (
	"context"
	"encoding/json"

	"github.com/navicore/gamecode-agent/internal/fsops"
)

type ListDirectoryInput struct {
	Path string `json:"path,omitempty" jsonschema_description:"Optional directory to list; defaults to the working directory."`
}

var listDirectorySchema = GenerateSchema[ListDirectoryInput]()

// NewListDirectoryTool returns the list_directory tool bounded by ws.
func NewListDirectoryTool(ws *fsops.Workspace) Definition {
	return Definition{
		Name:        "list_directory",
		Description: "List files and directories at a path inside the working directory (defaults to the working directory itself).",
		InputSchema: listDirectorySchema,
		Function: func(_ context.Context, input json.RawMessage) (string, error) {
			var in ListDirectoryInput
			if err := json.Unmarshal(input, &in); err != nil {
				return "", err
			}
			return ws.ListDirectory(in.Path)
		},
	}
}
