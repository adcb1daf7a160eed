// Package fsops provides sandboxed filesystem operations for tool execution.
//
// All paths are validated against a single working-directory root before any
// I/O happens; violations surface as safety.ToolError values the tool layer
// returns to the model as error text.
package fsops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/navicore/gamecode-agent/internal/safety"
)

// Workspace performs file operations bounded by a working directory.
type Workspace struct {
	root string
}

// NewWorkspace resolves root (CWD when empty) and returns a bounded workspace.
func NewWorkspace(root string) (*Workspace, error) {
	abs, err := safety.ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	return &Workspace{root: abs}, nil
}

// Root returns the absolute working-directory root.
func (w *Workspace) Root() string { return w.root }

// ReadFile returns the contents of a file inside the workspace decoded as text.
func (w *Workspace) ReadFile(path string) (string, error) {
	abs, err := safety.ValidatePath(w.root, path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", readError(path, err)
	}
	if info.IsDir() {
		return "", safety.ToolError{Code: "ERR_NOT_A_FILE", Message: fmt.Sprintf("%s is a directory, not a file", path)}
	}
	b, err := os.ReadFile(abs)
	if err != nil {
		return "", readError(path, err)
	}
	return string(b), nil
}

// WriteFile writes content to a file inside the workspace, creating parent
// directories as needed and overwriting any existing file.
func (w *Workspace) WriteFile(path, content string) error {
	abs, err := safety.ValidatePath(w.root, path)
	if err != nil {
		return err
	}
	if parent := filepath.Dir(abs); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return safety.ToolError{Code: "ERR_WRITE_FAILED", Message: fmt.Sprintf("creating directories for %s: %v", path, err)}
		}
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		return safety.ToolError{Code: "ERR_WRITE_FAILED", Message: fmt.Sprintf("writing %s: %v", path, err)}
	}
	return nil
}

// ListDirectory lists the entries of a directory inside the workspace.
// An empty path lists the workspace root. Each entry is rendered as
// "name (file|dir|other)" on its own line, prefixed by a header naming the
// listed path.
func (w *Workspace) ListDirectory(path string) (string, error) {
	if path == "" {
		path = "."
	}
	abs, err := safety.ValidatePath(w.root, path)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", safety.ToolError{Code: "ERR_NO_SUCH_DIRECTORY", Message: fmt.Sprintf("directory does not exist: %s", path)}
		}
		return "", safety.ToolError{Code: "ERR_LIST_FAILED", Message: fmt.Sprintf("stat %s: %v", path, err)}
	}
	if !info.IsDir() {
		return "", safety.ToolError{Code: "ERR_NOT_A_DIRECTORY", Message: fmt.Sprintf("not a directory: %s", path)}
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return "", safety.ToolError{Code: "ERR_LIST_FAILED", Message: fmt.Sprintf("reading %s: %v", path, err)}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Contents of %s:\n", path)
	for _, e := range entries {
		kind := "file"
		switch {
		case e.IsDir():
			kind = "dir"
		case !e.Type().IsRegular():
			kind = "other"
		}
		fmt.Fprintf(&b, "%s (%s)\n", e.Name(), kind)
	}
	return b.String(), nil
}

func readError(path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return safety.ToolError{Code: "ERR_NO_SUCH_FILE", Message: fmt.Sprintf("file does not exist: %s", path)}
	}
	return safety.ToolError{Code: "ERR_READ_FAILED", Message: fmt.Sprintf("reading %s: %v", path, err)}
}
