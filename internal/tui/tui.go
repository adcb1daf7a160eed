// Package tui is the interactive shell: a single-pane transcript over one
// agent conversation. One exchange in flight at a time; input is parked
// while the agent works.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/navicore/gamecode-agent/internal/runner"
)

type theme struct {
	user      lipgloss.Style
	assistant lipgloss.Style
	tool      lipgloss.Style
	errText   lipgloss.Style
	header    lipgloss.Style
	hint      lipgloss.Style
}

func newTheme() theme {
	return theme{
		user:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		assistant: lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		tool:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		errText:   lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		header:    lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true).Padding(0, 1),
		hint:      lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// exchangeDoneMsg carries the outcome of one ProcessInput call back onto
// the UI loop.
type exchangeDoneMsg struct {
	resp *runner.Response
	err  error
}

// Model is the bubbletea state for the chat shell.
type Model struct {
	mgr *runner.Manager

	input    textinput.Model
	view     viewport.Model
	spin     spinner.Model
	theme    theme
	lines    []string
	busy     bool
	ready    bool
	quitting bool
}

func New(mgr *runner.Manager) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Ask something, or let the agent use its tools."
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return Model{
		mgr:   mgr,
		input: input,
		spin:  sp,
		theme: newTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// exchangeCmd runs the exchange off the UI loop.
func exchangeCmd(mgr *runner.Manager, text string) tea.Cmd {
	return func() tea.Msg {
		resp, err := mgr.ProcessInput(context.Background(), text)
		return exchangeDoneMsg{resp: resp, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := 2
		if !m.ready {
			m.view = viewport.New(msg.Width, msg.Height-headerHeight-footerHeight)
			m.ready = true
		} else {
			m.view.Width = msg.Width
			m.view.Height = msg.Height - headerHeight - footerHeight
		}
		m.view.SetContent(strings.Join(m.lines, "\n"))
		m.view.GotoBottom()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEnter:
			if m.busy {
				return m, nil
			}
			text := strings.TrimSpace(m.input.Value())
			if text == "" {
				return m, nil
			}
			m.appendLine(m.theme.user.Render("you") + ": " + text)
			m.input.Reset()
			m.input.Blur()
			m.busy = true
			return m, tea.Batch(m.spin.Tick, exchangeCmd(m.mgr, text))
		}

	case exchangeDoneMsg:
		m.busy = false
		m.input.Focus()
		if msg.err != nil {
			m.appendLine(m.theme.errText.Render("error") + ": " + msg.err.Error())
			break
		}
		for _, tr := range msg.resp.ToolResults {
			m.appendLine(m.theme.tool.Render(fmt.Sprintf("[%s] %s", tr.ToolName, firstLine(tr.Text))))
		}
		if msg.resp.Content != "" {
			m.appendLine(m.theme.assistant.Render("agent") + ": " + msg.resp.Content)
		}
		cmds = append(cmds, textinput.Blink)

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.view, cmd = m.view.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) appendLine(line string) {
	m.lines = append(m.lines, line)
	if m.ready {
		m.view.SetContent(strings.Join(m.lines, "\n"))
		m.view.GotoBottom()
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	header := m.theme.header.Render("gamecode")
	var footer string
	if m.busy {
		footer = m.spin.View() + " thinking..."
	} else {
		footer = m.input.View()
	}
	hint := m.theme.hint.Render("enter to send · esc to quit")
	return header + "\n" + m.view.View() + "\n" + footer + "\n" + hint
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Run drives the shell until the user quits.
func Run(mgr *runner.Manager) error {
	p := tea.NewProgram(New(mgr), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
