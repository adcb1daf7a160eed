package safety

import "strings"

// allowedCommands is the fixed allow-list for execute_command.
var allowedCommands = []string{
	"ls", "dir", "find", "grep", "cat", "head", "tail", "echo", "pwd",
}

// AllowedCommands returns the command allow-list.
func AllowedCommands() []string {
	out := make([]string, len(allowedCommands))
	copy(out, allowedCommands)
	return out
}

// unsafeMarkers are shell metacharacters that would let an allowed command
// smuggle in a second command, redirect output, or substitute commands.
var unsafeMarkers = []string{";", "&&", "||", "|", ">", "<", "$(", "`", "${"}

// Tokenize splits a command line into parts, preserving quoted substrings.
// Quote characters delimit but are not included in the tokens.
func Tokenize(command string) []string {
	var parts []string
	var current strings.Builder
	inQuotes := false
	quoteChar := ' '

	for _, c := range command {
		switch c {
		case '"', '\'':
			switch {
			case !inQuotes:
				inQuotes = true
				quoteChar = c
			case c == quoteChar:
				inQuotes = false
			default:
				// Different quote character inside quotes, treat as normal char.
				current.WriteRune(c)
			}
		case ' ', '\t':
			if inQuotes {
				current.WriteRune(c)
			} else if current.Len() > 0 {
				parts = append(parts, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(c)
		}
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// VetCommand tokenizes a command line and enforces the allow-list plus the
// unsafe-argument policy. It returns the vetted tokens; any violation returns
// a ToolError and no tokens.
func VetCommand(command string) ([]string, error) {
	parts := Tokenize(command)
	if len(parts) == 0 {
		return nil, ToolError{Code: "ERR_EMPTY_COMMAND", Message: "empty command"}
	}

	// Metacharacter screen runs first: "ls; rm" must trip the unsafe check
	// even though a bare "ls" would have been allowed.
	for _, tok := range parts {
		if tokenUnsafe(tok) {
			return nil, ToolError{
				Code:    "ERR_UNSAFE_ARGUMENT",
				Message: "argument '" + tok + "' contains potentially unsafe characters",
			}
		}
	}

	base := parts[0]
	for _, c := range allowedCommands {
		if c == base {
			return parts, nil
		}
	}
	return nil, ToolError{
		Code:    "ERR_COMMAND_NOT_ALLOWED",
		Message: "command '" + base + "' is not allowed; allowed commands are: " + strings.Join(allowedCommands, ", "),
	}
}

func tokenUnsafe(tok string) bool {
	for _, m := range unsafeMarkers {
		if strings.Contains(tok, m) {
			return true
		}
	}
	return false
}
