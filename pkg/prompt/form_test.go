package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(t *testing.T, f Form, s string) Form {
	t.Helper()
	m, _ := f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	return m.(Form)
}

func press(t *testing.T, f Form, k tea.KeyType) (Form, tea.Cmd) {
	t.Helper()
	m, cmd := f.Update(tea.KeyMsg{Type: k})
	return m.(Form), cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestFormFillsAllFields(t *testing.T) {
	f := NewForm(Answers{})
	assert.Equal(t, fieldProject, f.focus)

	f = typeText(t, f, "./shop")
	f, cmd := press(t, f, tea.KeyEnter)
	assert.False(t, isQuit(cmd))
	assert.Equal(t, fieldBaseURL, f.focus)

	f = typeText(t, f, "http://localhost:5173")
	f, _ = press(t, f, tea.KeyEnter)
	f = typeText(t, f, "./review")
	f, cmd = press(t, f, tea.KeyEnter)

	require.True(t, isQuit(cmd))
	assert.True(t, f.Submitted())
	assert.Equal(t, Answers{ProjectDir: "./shop", BaseURL: "http://localhost:5173", OutputDir: "./review"}, f.Answers())
}

func TestFormFocusesFirstMissingField(t *testing.T) {
	f := NewForm(Answers{ProjectDir: "/srv/app", OutputDir: "/tmp/out"})
	assert.Equal(t, fieldBaseURL, f.focus)

	f = NewForm(Answers{ProjectDir: "/srv/app", BaseURL: "http://x", OutputDir: "/tmp/out"})
	assert.Equal(t, fieldProject, f.focus)
}

func TestFormRejectsInvalidURL(t *testing.T) {
	f := NewForm(Answers{ProjectDir: "./app", BaseURL: "localhost:3000", OutputDir: "./out"})
	f.move(2)

	f, cmd := press(t, f, tea.KeyEnter)
	assert.False(t, isQuit(cmd))
	assert.False(t, f.Submitted())
	require.Error(t, f.err)
	assert.Contains(t, f.View(), "base URL")
}

func TestFormCancel(t *testing.T) {
	f, cmd := press(t, NewForm(Answers{}), tea.KeyEsc)
	assert.True(t, isQuit(cmd))
	assert.True(t, f.Cancelled())
	assert.Empty(t, f.View())
}

func TestFormTabWraps(t *testing.T) {
	f := NewForm(Answers{})
	f, _ = press(t, f, tea.KeyShiftTab)
	assert.Equal(t, fieldOutput, f.focus)
	f, _ = press(t, f, tea.KeyTab)
	assert.Equal(t, fieldProject, f.focus)
}

func TestAnswersValidate(t *testing.T) {
	valid := Answers{ProjectDir: ".", BaseURL: "https://staging.example.com", OutputDir: "out"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		edit func(*Answers)
	}{
		{name: "no project", edit: func(a *Answers) { a.ProjectDir = " " }},
		{name: "no output", edit: func(a *Answers) { a.OutputDir = "" }},
		{name: "no scheme", edit: func(a *Answers) { a.BaseURL = "example.com" }},
		{name: "bad scheme", edit: func(a *Answers) { a.BaseURL = "ftp://example.com" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid
			tt.edit(&a)
			assert.Error(t, a.Validate())
		})
	}
}
