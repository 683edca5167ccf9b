// Package diag renders compiler.Diagnostic values for a terminal,
// colorizing the severity label the way gosuda-erago's cmd/erago/
// frontend.go colorizes its own status lines: a package-level
// lipgloss.Style per concern, applied to a formatted string right
// before printing, rather than threading style objects through the
// call stack.
package diag

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"qbx/compiler"
)

var (
	errorLabel = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	gutter     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	caret      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))
	sourceLine = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
)

// Render produces a colorized, caret-annotated rendering of d against
// the original source text, suitable for printing directly to stderr.
func Render(d *compiler.Diagnostic, source string) string {
	lines := strings.Split(source, "\n")
	var b strings.Builder

	b.WriteString(errorLabel.Render(d.Kind.String() + ":"))
	b.WriteByte(' ')
	b.WriteString(d.Message)
	b.WriteByte('\n')

	if d.Pos.Line < 1 || d.Pos.Line > len(lines) {
		return b.String()
	}
	line := lines[d.Pos.Line-1]
	prefix := fmt.Sprintf("%d | ", d.Pos.Line)

	b.WriteString(gutter.Render(prefix))
	b.WriteString(sourceLine.Render(line))
	b.WriteByte('\n')

	pad := strings.Repeat(" ", len(prefix))
	col := d.Pos.Col - 1
	for i := 0; i < col && i < len(line); i++ {
		if line[i] == '\t' {
			pad += "\t"
		} else {
			pad += " "
		}
	}
	b.WriteString(pad)
	b.WriteString(caret.Render("^"))
	return b.String()
}
