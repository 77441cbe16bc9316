package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// ErrPromptAborted is returned when the operator cancels a prompt.
var ErrPromptAborted = errors.New("prompt aborted by user")

// Prompter asks the operator for one secret value. Prompts block for as
// long as the operator needs; no timeout is imposed.
type Prompter interface {
	Interactive() bool
	Prompt(ctx context.Context, key Key) (string, error)
}

var (
	labelStyle = lipgloss.NewStyle().Bold(true)
	hintStyle  = lipgloss.NewStyle().Faint(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// TerminalPrompter prompts on the controlling terminal with a bubbletea
// text input. Sensitive keys are masked.
type TerminalPrompter struct {
	in  *os.File
	out io.Writer
}

// NewTerminalPrompter prompts on stdin/stderr so stdout stays clean.
func NewTerminalPrompter() *TerminalPrompter {
	return &TerminalPrompter{in: os.Stdin, out: os.Stderr}
}

// Interactive reports whether stdin is a terminal.
func (p *TerminalPrompter) Interactive() bool {
	return p.in != nil && term.IsTerminal(int(p.in.Fd()))
}

// Prompt runs a single-field form until a non-empty value is entered.
func (p *TerminalPrompter) Prompt(ctx context.Context, key Key) (string, error) {
	program := tea.NewProgram(
		newPromptModel(key),
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	)
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("prompt for %s: %w", key.Name, err)
	}
	m, ok := final.(promptModel)
	if !ok {
		return "", fmt.Errorf("prompt for %s: unexpected model %T", key.Name, final)
	}
	if m.aborted {
		return "", ErrPromptAborted
	}
	return m.value, nil
}

type promptModel struct {
	key     Key
	input   textinput.Model
	problem string
	value   string
	aborted bool
}

func newPromptModel(key Key) promptModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = key.Name
	ti.Width = 64
	if key.Sensitive {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()
	return promptModel{key: key, input: ti}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			v := strings.TrimSpace(m.input.Value())
			if v == "" {
				m.problem = "a value is required"
				return m, nil
			}
			m.value = v
			m.problem = ""
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	if m.value != "" || m.aborted {
		return ""
	}
	label := m.key.Label
	if label == "" {
		label = m.key.Name
	}
	var b strings.Builder
	b.WriteString(labelStyle.Render(label))
	b.WriteString(" ")
	b.WriteString(hintStyle.Render("(" + m.key.Name + ")"))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.problem != "" {
		b.WriteString(errStyle.Render(m.problem))
		b.WriteString("\n")
	}
	return b.String()
}
