package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/navicore/gamecode-agent/internal/runner"
	"github.com/navicore/gamecode-agent/memory"
)

func TestFirstLine(t *testing.T) {
	if got := firstLine("one\ntwo"); got != "one" {
		t.Fatalf("firstLine = %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Fatalf("firstLine = %q", got)
	}
}

func TestEnterWhileBusyIsIgnored(t *testing.T) {
	m := New(nil)
	m.busy = true
	m.input.SetValue("queued input")

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := updated.(Model)
	if !next.busy {
		t.Fatal("busy flag dropped")
	}
	if len(next.lines) != 0 {
		t.Fatalf("lines = %d, want 0", len(next.lines))
	}
}

func TestEnterWithEmptyInputDoesNothing(t *testing.T) {
	m := New(nil)
	m.input.SetValue("   ")

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next := updated.(Model)
	if next.busy {
		t.Fatal("empty input started an exchange")
	}
	if cmd != nil {
		t.Fatal("empty input produced a command")
	}
}

func TestExchangeDoneAppendsTranscript(t *testing.T) {
	m := New(nil)
	m.busy = true

	resp := &runner.Response{
		Content: "here you go",
		ToolResults: []memory.ToolResult{
			{ToolName: "list_directory", CallID: "a1", Text: "Contents of .:\nREADME.md (file)"},
		},
	}
	updated, _ := m.Update(exchangeDoneMsg{resp: resp})
	next := updated.(Model)
	if next.busy {
		t.Fatal("busy flag not cleared")
	}
	joined := strings.Join(next.lines, "\n")
	if !strings.Contains(joined, "list_directory") {
		t.Fatalf("tool line missing: %q", joined)
	}
	if !strings.Contains(joined, "here you go") {
		t.Fatalf("assistant line missing: %q", joined)
	}
	// Multi-line tool output collapses to its first line in the strip.
	if strings.Contains(joined, "README.md") {
		t.Fatalf("tool output not truncated: %q", joined)
	}
}

func TestExchangeErrorIsSurfaced(t *testing.T) {
	m := New(nil)
	m.busy = true

	updated, _ := m.Update(exchangeDoneMsg{err: errors.New("backend unreachable")})
	next := updated.(Model)
	joined := strings.Join(next.lines, "\n")
	if !strings.Contains(joined, "backend unreachable") {
		t.Fatalf("error line missing: %q", joined)
	}
}
