package diag

import (
	"strings"
	"testing"

	"qbx/compiler"
	"qbx/token"
)

func TestRenderIncludesMessageAndCaret(t *testing.T) {
	d := &compiler.Diagnostic{
		Kind:    compiler.Parse,
		Pos:     token.Position{Line: 1, Col: 7},
		Message: "expected expression",
	}
	out := Render(d, "X = 1 +\n")
	if !strings.Contains(out, "expected expression") {
		t.Fatal("expected the diagnostic message in the rendered output")
	}
	if !strings.Contains(out, "^") {
		t.Fatal("expected a caret marker")
	}
	if !strings.Contains(out, "X = 1 +") {
		t.Fatal("expected the offending source line")
	}
}
