package run

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel represents the console verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only warnings, errors and the final summary
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows run progress (default)
	LogLevelNormal
	// LogLevelVerbose adds per-element detail
	LogLevelVerbose
	// LogLevelDebug shows everything
	LogLevelDebug
)

// ParseLogLevel converts a verbosity name to a LogLevel. Unknown names map to
// LogLevelNormal.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "quiet":
		return LogLevelQuiet
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// Logger is the console reporter of a run. It satisfies logging.Leveled so
// components can report through it directly.
type Logger struct {
	level  LogLevel
	writer io.Writer

	bold    lipgloss.Style
	section lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	dim     lipgloss.Style

	stepCount int
}

// NewLogger creates a console logger writing to stdout
func NewLogger(level LogLevel) *Logger {
	return NewLoggerTo(level, os.Stdout)
}

// NewLoggerTo creates a console logger writing to w. Colors are used only
// when w is a terminal.
func NewLoggerTo(level LogLevel, w io.Writer) *Logger {
	r := lipgloss.NewRenderer(w)
	return &Logger{
		level:   level,
		writer:  w,
		bold:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		section: r.NewStyle().Foreground(lipgloss.Color("6")),
		success: r.NewStyle().Bold(true).Foreground(lipgloss.Color("2")),
		info:    r.NewStyle().Foreground(lipgloss.Color("217")),
		warn:    r.NewStyle().Foreground(lipgloss.Color("3")),
		fail:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("1")),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

func (l *Logger) println(style lipgloss.Style, s string) {
	fmt.Fprintln(l.writer, style.Render(s))
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		rule := strings.Repeat("=", 70)
		fmt.Fprintln(l.writer)
		l.println(l.bold, rule)
		l.println(l.bold, "  "+message)
		l.println(l.bold, rule)
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		l.println(l.section, "▶ "+title)
		l.println(l.dim, strings.Repeat("─", 50))
	}
}

// Step prints a numbered step
func (l *Logger) Step(message string) {
	if l.level >= LogLevelNormal {
		l.stepCount++
		l.println(l.section, fmt.Sprintf("[%d] %s", l.stepCount, message))
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.println(l.success, "✓ "+fmt.Sprintf(format, args...))
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.println(l.info, fmt.Sprintf(format, args...))
	}
}

// Warnf prints a warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.println(l.warn, "⚠ Warning: "+fmt.Sprintf(format, args...))
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.println(l.fail, "✗ Error: "+fmt.Sprintf(format, args...))
}

// Verbosef prints detail shown only in verbose mode
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		l.println(l.dim, "→ "+fmt.Sprintf(format, args...))
	}
}

// Debugf prints debug information
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.println(l.dim, "[DEBUG] "+fmt.Sprintf(format, args...))
	}
}

// Summary prints the final run summary. It is shown at every level.
func (l *Logger) Summary(s *Summary) {
	rule := strings.Repeat("=", 70)
	fmt.Fprintln(l.writer)
	l.println(l.bold, rule)
	l.println(l.bold, "  RUN SUMMARY")
	l.println(l.bold, rule)

	fmt.Fprint(l.writer, "  Status: ")
	switch s.Status {
	case StatusSuccess:
		l.println(l.success, "✓ SUCCESS")
	case StatusPartialSuccess:
		l.println(l.warn, "⚠ PARTIAL SUCCESS")
	case StatusFailed:
		l.println(l.fail, "✗ FAILED")
	default:
		fmt.Fprintln(l.writer, s.Status)
	}

	fmt.Fprintf(l.writer, "  Base URL: %s\n", s.BaseURL)
	fmt.Fprintf(l.writer, "  Duration: %s\n", s.Duration.Round(time.Millisecond))

	m := s.Metrics
	fmt.Fprintf(l.writer, "\n  Routes: %d discovered, %d explored, %d failed\n",
		m.RoutesDiscovered, m.RoutesExplored, m.RoutesFailed)
	fmt.Fprintf(l.writer, "  Snapshots: %d\n", m.Snapshots)
	if m.SkippedStages > 0 {
		fmt.Fprintf(l.writer, "  Skipped stages: %d\n", m.SkippedStages)
	}

	if l.level >= LogLevelVerbose {
		for _, o := range s.Outcomes {
			fmt.Fprintf(l.writer, "    • %s  %s (%d snapshots)\n", o.Route, o.Status, len(o.Snapshots))
		}
	}

	if s.Grid != "" {
		fmt.Fprintf(l.writer, "\n  Grid: %s\n", s.Grid)
	}
	if s.PDF != "" {
		fmt.Fprintf(l.writer, "  PDF: %s\n", s.PDF)
	}

	if s.Error != "" {
		fmt.Fprintln(l.writer)
		l.println(l.fail, "  Error Details:")
		l.println(l.fail, "    "+s.Error)
	}

	l.println(l.bold, rule)
	fmt.Fprintln(l.writer)
}
