package compiler

import (
	"fmt"
	"strings"
)

// Render formats d against source the way the teacher's
// print_error_line prints the offending line followed by a caret span
// under the bad token: a "N | " line-number gutter, the verbatim
// source line, and a line of carets under the triggering position.
// Unlike the teacher, this only has a single source position to point
// at rather than a token length, so the caret span is always one
// column wide.
func (d *Diagnostic) Render(source string) string {
	lines := strings.Split(source, "\n")
	if d.Pos.Line < 1 || d.Pos.Line > len(lines) {
		return d.Error()
	}
	line := lines[d.Pos.Line-1]

	gutter := formatGutter(d.Pos.Line)
	var b strings.Builder
	b.WriteString(d.Kind.String())
	b.WriteString(": ")
	b.WriteString(d.Message)
	b.WriteByte('\n')
	b.WriteString(gutter)
	b.WriteString(line)
	b.WriteByte('\n')

	for i := 0; i < len(gutter); i++ {
		b.WriteByte(' ')
	}
	col := d.Pos.Col - 1
	for i := 0; i < col && i < len(line); i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte('^')
	return b.String()
}

func formatGutter(line int) string {
	return fmt.Sprintf("%d | ", line)
}
