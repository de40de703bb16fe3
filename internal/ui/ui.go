// Package ui provides console output helpers for galyleo.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Styles for consistent output
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Bold(true)
)

// UI writes styled status lines. When quiet is set, informational output
// is suppressed; errors and the final access URL are always printed.
type UI struct {
	out   io.Writer
	err   io.Writer
	quiet bool
}

// New creates a UI writing to stdout/stderr.
func New(quiet bool) *UI {
	return &UI{out: os.Stdout, err: os.Stderr, quiet: quiet}
}

// NewWithWriters creates a UI with explicit writers, for tests.
func NewWithWriters(out, err io.Writer, quiet bool) *UI {
	return &UI{out: out, err: err, quiet: quiet}
}

// Success prints a success message.
func (ui *UI) Success(msg string) {
	if ui.quiet {
		return
	}
	fmt.Fprintln(ui.out, successStyle.Render("✓ "+msg))
}

// Error prints an error message. Never suppressed.
func (ui *UI) Error(msg string) {
	fmt.Fprintln(ui.err, errorStyle.Render("✗ "+msg))
}

// Warning prints a warning message. Never suppressed.
func (ui *UI) Warning(msg string) {
	fmt.Fprintln(ui.err, warningStyle.Render("⚠ "+msg))
}

// Info prints an info message.
func (ui *UI) Info(msg string) {
	if ui.quiet {
		return
	}
	fmt.Fprintln(ui.out, infoStyle.Render("ℹ "+msg))
}

// Subtle prints a muted message.
func (ui *UI) Subtle(msg string) {
	if ui.quiet {
		return
	}
	fmt.Fprintln(ui.out, subtleStyle.Render(msg))
}

// Println prints an unstyled line.
func (ui *UI) Println(msg string) {
	if ui.quiet {
		return
	}
	fmt.Fprintln(ui.out, msg)
}

// Header prints a section header.
func (ui *UI) Header(title string) {
	if ui.quiet {
		return
	}
	fmt.Fprintln(ui.out, headerStyle.Render(title))
}

// KeyValue prints a key-value status line.
func (ui *UI) KeyValue(key, value string) {
	if ui.quiet {
		return
	}
	fmt.Fprintf(ui.out, "  %s: %s\n", subtleStyle.Render(key), value)
}

// URL prints the session access URL. Always printed, even in quiet mode,
// since it is the whole point of the launch.
func (ui *UI) URL(url string) {
	fmt.Fprintln(ui.out, urlStyle.Render(url))
}

// Table prints a simple aligned table.
type Table struct {
	ui      *UI
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func (ui *UI) NewTable(headers ...string) *Table {
	return &Table{ui: ui, headers: headers}
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Render writes the table.
func (t *Table) Render() {
	if len(t.headers) == 0 || t.ui.quiet {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	parts := make([]string, len(t.headers))
	for i, h := range t.headers {
		parts[i] = padRight(h, widths[i])
	}
	fmt.Fprintln(t.ui.out, headerStyle.Render(strings.Join(parts, " | ")))

	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("─", w)
	}
	fmt.Fprintln(t.ui.out, subtleStyle.Render(strings.Join(seps, "─┼─")))

	for _, row := range t.rows {
		cells := make([]string, len(t.headers))
		for i := range t.headers {
			if i < len(row) {
				cells[i] = padRight(row[i], widths[i])
			} else {
				cells[i] = padRight("", widths[i])
			}
		}
		fmt.Fprintln(t.ui.out, strings.Join(cells, " │ "))
	}
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
