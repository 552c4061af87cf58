// Package prompt asks for missing run parameters in the terminal.
package prompt

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user leaves the form without submitting.
var ErrCancelled = errors.New("prompt cancelled")

// Answers are the run parameters collected by the form.
type Answers struct {
	ProjectDir string
	BaseURL    string
	OutputDir  string
}

// Validate checks that every answer is usable
func (a Answers) Validate() error {
	if strings.TrimSpace(a.ProjectDir) == "" {
		return errors.New("project directory is required")
	}
	if strings.TrimSpace(a.OutputDir) == "" {
		return errors.New("output directory is required")
	}
	u, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base URL must be an http(s) URL, got %q", a.BaseURL)
	}
	return nil
}

// field indices
const (
	fieldProject = iota
	fieldBaseURL
	fieldOutput
	fieldCount
)

var (
	accent     = lipgloss.Color("39")
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle = lipgloss.NewStyle().Width(18).Foreground(lipgloss.Color("252"))
	focusStyle = labelStyle.Bold(true).Foreground(accent)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 2)
)

var labels = [fieldCount]string{
	fieldProject: "Project path",
	fieldBaseURL: "Base URL",
	fieldOutput:  "Save path",
}

// Form is the bubbletea model of the parameter form.
type Form struct {
	inputs    [fieldCount]textinput.Model
	focus     int
	err       error
	submitted bool
	cancelled bool
}

// NewForm creates a form pre-filled with defaults. The first empty field
// gets the focus.
func NewForm(defaults Answers) Form {
	values := [fieldCount]string{defaults.ProjectDir, defaults.BaseURL, defaults.OutputDir}
	placeholders := [fieldCount]string{"./my-app", "http://localhost:3000", "./review"}

	var f Form
	f.focus = -1
	for i := range f.inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = 500
		in.Width = 40
		in.SetValue(values[i])
		in.CursorEnd()
		f.inputs[i] = in
		if f.focus < 0 && values[i] == "" {
			f.focus = i
		}
	}
	if f.focus < 0 {
		f.focus = fieldProject
	}
	f.inputs[f.focus].Focus()
	return f
}

// Answers returns the current field values, trimmed
func (f Form) Answers() Answers {
	return Answers{
		ProjectDir: strings.TrimSpace(f.inputs[fieldProject].Value()),
		BaseURL:    strings.TrimSpace(f.inputs[fieldBaseURL].Value()),
		OutputDir:  strings.TrimSpace(f.inputs[fieldOutput].Value()),
	}
}

// Submitted reports whether the form was completed
func (f Form) Submitted() bool { return f.submitted }

// Cancelled reports whether the user left the form
func (f Form) Cancelled() bool { return f.cancelled }

func (f Form) Init() tea.Cmd {
	return textinput.Blink
}

func (f Form) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return f, cmd
	}

	switch key.String() {
	case "ctrl+c", "esc":
		f.cancelled = true
		return f, tea.Quit

	case "tab", "down":
		f.move(1)
		return f, nil

	case "shift+tab", "up":
		f.move(-1)
		return f, nil

	case "enter":
		if f.focus < fieldCount-1 {
			f.move(1)
			return f, nil
		}
		if err := f.Answers().Validate(); err != nil {
			f.err = err
			return f, nil
		}
		f.err = nil
		f.submitted = true
		return f, tea.Quit
	}

	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return f, cmd
}

func (f *Form) move(delta int) {
	f.inputs[f.focus].Blur()
	f.focus = (f.focus + delta + fieldCount) % fieldCount
	f.inputs[f.focus].Focus()
	f.inputs[f.focus].CursorEnd()
}

func (f Form) View() string {
	if f.submitted || f.cancelled {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("routeshot"))
	b.WriteString("\n\n")
	for i, in := range f.inputs {
		label := labelStyle
		if i == f.focus {
			label = focusStyle
		}
		b.WriteString(label.Render(labels[i]+":") + " " + in.View() + "\n")
	}
	if f.err != nil {
		b.WriteString("\n" + errStyle.Render(f.err.Error()) + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("Enter: next/start  Tab: next field  Esc: cancel"))

	return boxStyle.Render(b.String()) + "\n"
}

// Ask runs the form on the given terminal streams and returns the answers.
func Ask(defaults Answers, in io.Reader, out io.Writer) (Answers, error) {
	p := tea.NewProgram(NewForm(defaults), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return Answers{}, fmt.Errorf("prompt failed: %w", err)
	}

	f, ok := final.(Form)
	if !ok || !f.Submitted() {
		return Answers{}, ErrCancelled
	}
	return f.Answers(), nil
}
