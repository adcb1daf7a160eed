// Package safety provides helpers for sandboxed file access and command vetting.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToolError is a machine-readable error body for surfacing back to the agent as JSON.
type ToolError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error returns a compact, single-line JSON string to keep tool_result payloads small.
func (e ToolError) Error() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// ResolveRoot makes a working-directory root absolute and symlink-stable.
// An empty root defaults to the process CWD.
func ResolveRoot(root string) (string, error) {
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		root = cwd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("abs(root): %w", err)
	}
	// Resolve symlinks where possible so future boundary checks are reliable.
	if r, err := filepath.EvalSymlinks(abs); err == nil {
		abs = r
	}
	return abs, nil
}

// ValidatePath resolves path against absRoot and returns an absolute path
// inside the sandbox. Relative paths are joined to the root; absolute paths
// are accepted only when they already resolve inside the root. Parent
// traversal and symlink escapes are rejected, and reads/writes under .git/
// and .agent/ are denied. On violation, returns a ToolError.
func ValidatePath(absRoot, path string) (string, error) {
	var candidate string
	if filepath.IsAbs(path) {
		candidate = filepath.Clean(path)
	} else {
		cleaned := filepath.Clean(path)
		if cleaned == "" {
			cleaned = "."
		}
		candidate = filepath.Join(absRoot, cleaned)
	}

	// Best-effort symlink resolution.
	// 1) Resolve the whole candidate if it exists.
	// 2) Otherwise, resolve the deepest existing ancestor (the parent dir)
	//    and rejoin the final segment. This reveals escapes via a symlinked parent.
	if resolved, err := filepath.EvalSymlinks(candidate); err == nil {
		candidate = resolved
	} else {
		parent := filepath.Dir(candidate)
		if resolvedParent, err2 := filepath.EvalSymlinks(parent); err2 == nil {
			candidate = filepath.Join(resolvedParent, filepath.Base(candidate))
		}
	}

	// Boundary check using filepath.Rel (robust against partial prefix matches)
	rel, err := filepath.Rel(absRoot, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", ToolError{Code: "ERR_PATH_OUTSIDE_SANDBOX", Message: "requested path resolves outside the working directory"}
	}

	// Denylist block under .git/ and .agent/
	relClean := filepath.ToSlash(rel)
	if relClean == ".git" || strings.HasPrefix(relClean, ".git/") || relClean == ".agent" || strings.HasPrefix(relClean, ".agent/") {
		return "", ToolError{Code: "ERR_DENIED_PATH", Message: "access under .git/ or .agent/ is not allowed"}
	}

	return candidate, nil
}
