// Package ui holds terminal styles for CLI output.
package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Lipgloss degrades colors based on terminal capabilities.
var (
	// StyleCyan is used for headers and file names.
	StyleCyan = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	// StyleRed is used for failures.
	StyleRed = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	// StyleYellow is used for warnings.
	StyleYellow = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	// StyleGreen is used for success messages.
	StyleGreen = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("2"))
	// StyleGray is used for secondary details such as sizes.
	StyleGray = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// RenderStyle applies a lipgloss style to text when colors are enabled.
// When useColors is false, the text is returned unmodified.
func RenderStyle(style lipgloss.Style, text string, useColors bool) string {
	if !useColors {
		return text
	}
	return style.Render(text)
}

// Printer writes status lines, colored or plain.
type Printer struct {
	W      io.Writer
	Colors bool
	Quiet  bool
}

// Success prints a green check line.
func (p Printer) Success(format string, args ...any) {
	p.line(StyleGreen, "✓", format, args...)
}

// Warn prints a yellow warning line.
func (p Printer) Warn(format string, args ...any) {
	p.line(StyleYellow, "!", format, args...)
}

// Item prints an indented name with a gray detail.
func (p Printer) Item(name, detail string) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.W, "  %s %s\n", RenderStyle(StyleCyan, name, p.Colors), RenderStyle(StyleGray, detail, p.Colors))
}

func (p Printer) line(style lipgloss.Style, mark, format string, args ...any) {
	if p.Quiet {
		return
	}
	fmt.Fprintf(p.W, "%s %s\n", RenderStyle(style, mark, p.Colors), fmt.Sprintf(format, args...))
}
