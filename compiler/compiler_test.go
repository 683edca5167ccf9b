package compiler

import (
	"strings"
	"testing"

	"qbx/codegen"
)

func mustCompile(t *testing.T, src string) string {
	t.Helper()
	asm, diags, err := Compile([]byte(src), Options{ABI: codegen.SysV("")})
	if err != nil {
		t.Fatalf("Compile: %v (diags=%v)", err, diags)
	}
	return asm
}

// Scenario A: a descending FOR loop's header tests STEP's sign and then
// compares the loop variable against the bound in the matching
// direction, the run-time direction test §4.4 requires, rather than an
// unconditional forward-only comparison. I is unsuffixed, so Double,
// and its bound test is an unsigned-flag SSE compare (jb/ja).
func TestScenarioACountdownLowersWithDirectionTest(t *testing.T) {
	asm := mustCompile(t, "FOR I = 5 TO 1 STEP -1\nPRINT I\nNEXT I\nPRINT \"Blast off!\"\n")
	if !strings.Contains(asm, "call _rt_print_string") && !strings.Contains(asm, "call __rt_print_string") {
		t.Fatal("expected the literal PRINT to lower to a runtime print call")
	}
	if !strings.Contains(asm, "  jb ") && !strings.Contains(asm, "  ja ") {
		t.Fatal("expected a direction-dependent loop-bound branch")
	}
}

// Scenario B: a recursive user FUNCTION must call itself through the
// same _proc_ convention as any other call site.
func TestScenarioBFactorialRecursesThroughProcLabel(t *testing.T) {
	src := "PRINT FACTORIAL(5)\n" +
		"END\n" +
		"FUNCTION FACTORIAL(N)\n" +
		"  IF N <= 1 THEN\n" +
		"    FACTORIAL = 1\n" +
		"  ELSE\n" +
		"    FACTORIAL = N * FACTORIAL(N - 1)\n" +
		"  END IF\n" +
		"END FUNCTION\n"
	asm := mustCompile(t, src)
	if !strings.Contains(asm, "_proc_FACTORIAL:") {
		t.Fatal("expected a _proc_FACTORIAL label")
	}
	if strings.Count(asm, "call _proc_FACTORIAL") < 2 {
		t.Fatal("expected both the top-level call and the recursive self-call")
	}
}

// Scenario C: LEFT$/RIGHT$/MID$ all go through the runtime string
// helpers rather than being inlined as raw pointer arithmetic.
func TestScenarioCStringSlicingUsesRuntimeHelpers(t *testing.T) {
	src := "S$ = \"Hello, World!\"\n" +
		"PRINT LEFT$(S$, 5); \"|\"; RIGHT$(S$, 6); \"|\"; MID$(S$, 8, 5)\n"
	asm := mustCompile(t, src)
	for _, want := range []string{"_rt_str_left", "_rt_str_right", "_rt_str_mid"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected a call to %s", want)
		}
	}
}

// Scenario D: integer division and MOD must go through the GPR path
// (cqo/idiv), not the SSE divsd path that plain "/" uses.
func TestScenarioDIntegerDivisionUsesIdiv(t *testing.T) {
	asm := mustCompile(t, "PRINT 7 / 2\nPRINT 7 \\ 2\nPRINT 7 MOD 2\n")
	if !strings.Contains(asm, "divsd") {
		t.Fatal("expected floating-point division to use divsd")
	}
	if !strings.Contains(asm, "idiv") {
		t.Fatal("expected integer \\ and MOD to use idiv")
	}
	if !strings.Contains(asm, "cqo") {
		t.Fatal("expected idiv to be preceded by a sign-extending cqo")
	}
}

// Scenario E: OPEN/PRINT#/CLOSE/INPUT#/LINE INPUT# all round-trip
// through the file-table runtime routines.
func TestScenarioEFileRoundTripUsesFileRuntime(t *testing.T) {
	src := "OPEN \"t.txt\" FOR OUTPUT AS #1\n" +
		"PRINT #1, 42\n" +
		"PRINT #1, \"abc\"\n" +
		"CLOSE #1\n" +
		"OPEN \"t.txt\" FOR INPUT AS #1\n" +
		"INPUT #1, X\n" +
		"LINE INPUT #1, L$\n" +
		"CLOSE #1\n" +
		"PRINT X; L$\n"
	asm := mustCompile(t, src)
	for _, want := range []string{"_rt_file_open", "_rt_file_close", "_rt_file_print", "_rt_file_input"} {
		if !strings.Contains(asm, want) {
			t.Fatalf("expected a call referencing %s", want)
		}
	}
}

// Scenario F: ON...GOTO with GOSUB arms must drive the same return
// stack plumbing as a bare GOSUB.
func TestScenarioFOnGotoSharesGosubStack(t *testing.T) {
	src := "FOR I = 1 TO 3\n" +
		"  ON I GOSUB A, B, C\n" +
		"NEXT I\n" +
		"END\n" +
		"A:\nPRINT \"a\"\nRETURN\n" +
		"B:\nPRINT \"b\"\nRETURN\n" +
		"C:\nPRINT \"c\"\nRETURN\n"
	asm := mustCompile(t, src)
	if !strings.Contains(asm, "_gosub_stack") {
		t.Fatal("expected ON...GOSUB to emit the shared return stack")
	}
	if !strings.Contains(asm, "_gosub_sp") {
		t.Fatal("expected ON...GOSUB to push through the shared stack cursor")
	}
}

func TestCompileReportsFirstErrorAndStops(t *testing.T) {
	_, diags, err := Compile([]byte("PRINT (\n"), Options{ABI: codegen.SysV("")})
	if err == nil {
		t.Fatal("expected a parse error")
	}
	if len(diags) != 1 {
		t.Fatalf("expected exactly one diagnostic, got %d", len(diags))
	}
	if diags[0].Kind != Parse {
		t.Fatalf("expected a Parse diagnostic, got %v", diags[0].Kind)
	}
}

func TestDiagnosticRenderShowsCaretUnderPosition(t *testing.T) {
	d := &Diagnostic{Kind: Parse, Message: "boom"}
	d.Pos.Line, d.Pos.Col = 1, 3
	out := d.Render("ABC DEF\n")
	if !strings.Contains(out, "ABC DEF") {
		t.Fatal("expected the offending source line to be rendered")
	}
	if !strings.Contains(out, "^") {
		t.Fatal("expected a caret")
	}
}
