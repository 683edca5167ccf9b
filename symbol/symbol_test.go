package symbol

import (
	"testing"

	"qbx/ast"
	"qbx/parser"
	"qbx/token"
	"qbx/types"
)

func resolveSrc(t *testing.T, src string) (*Table, *ast.Program) {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := NewTable()
	if err := table.Collect(prog); err != nil {
		t.Fatalf("collect: %v", err)
	}
	out, err := NewResolver(table).Resolve(prog)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	return out, prog
}

func resolveSrcErr(t *testing.T, src string) error {
	t.Helper()
	prog, err := parser.Parse(src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	table := NewTable()
	if err := table.Collect(prog); err != nil {
		return err
	}
	_, err = NewResolver(table).Resolve(prog)
	return err
}

func TestSuffixFixesScalarType(t *testing.T) {
	table, prog := resolveSrc(t, "X% = 1\nY# = 2.0\nZ$ = \"hi\"\n")
	scope := table.Scopes[prog.Main]
	cases := []struct {
		name   string
		suffix token.Suffix
		want   types.Type
	}{
		{"X", token.Percent, types.Integer},
		{"Y", token.Hashf, types.Double},
		{"Z", token.Dollar, types.String},
	}
	for _, c := range cases {
		v, ok := scope.Vars[keyOf(c.name, c.suffix)]
		if !ok {
			t.Fatalf("%s not declared", c.name)
		}
		if v.Type != c.want {
			t.Fatalf("%s: got %v, want %v", c.name, v.Type, c.want)
		}
	}
}

func TestUnsuffixedDefaultsToDouble(t *testing.T) {
	table, prog := resolveSrc(t, "X = 1\n")
	scope := table.Scopes[prog.Main]
	v, ok := scope.Vars[keyOf("X", token.NoSuffix)]
	if !ok {
		t.Fatal("X not declared")
	}
	if v.Type != types.Double {
		t.Fatalf("unsuffixed X: got %v, want DOUBLE", v.Type)
	}
}

func TestSameBaseNameDifferentSuffixAreDistinct(t *testing.T) {
	table, prog := resolveSrc(t, "X% = 1\nX# = 2.5\n")
	scope := table.Scopes[prog.Main]
	if len(scope.Vars) != 2 {
		t.Fatalf("want 2 distinct variables, got %d", len(scope.Vars))
	}
}

func TestArrayMustBeDimmedBeforeUse(t *testing.T) {
	if err := resolveSrcErr(t, "A(1) = 5\n"); err == nil {
		t.Fatal("expected error for undimensioned array use")
	}
}

func TestArraySubscriptCountChecked(t *testing.T) {
	if err := resolveSrcErr(t, "DIM A(10, 10)\nA(1) = 5\n"); err == nil {
		t.Fatal("expected error for wrong subscript count")
	}
}

func TestMixedStringNumericAddErrors(t *testing.T) {
	if err := resolveSrcErr(t, `X = "a" + 1`+"\n"); err == nil {
		t.Fatal("expected error mixing string and numeric operands")
	}
}

func TestCallToUndeclaredArrayOrFunctionErrors(t *testing.T) {
	if err := resolveSrcErr(t, "X = FOO(1)\n"); err == nil {
		t.Fatal("expected error calling an undefined name")
	}
}

func TestGotoUndefinedLabelErrors(t *testing.T) {
	if err := resolveSrcErr(t, "GOTO NOWHERE\n"); err == nil {
		t.Fatal("expected error for GOTO to an undefined label")
	}
}

func TestGotoDefinedLabelResolves(t *testing.T) {
	resolveSrc(t, "NOWHERE:\nGOTO NOWHERE\n")
}

func TestDuplicateLabelInSameProcedureErrors(t *testing.T) {
	if err := resolveSrcErr(t, "L1:\nPRINT 1\nL1:\nPRINT 2\n"); err == nil {
		t.Fatal("expected error for a duplicate label")
	}
}

func TestSwapRequiresMatchingTypes(t *testing.T) {
	if err := resolveSrcErr(t, "X% = 1\nY$ = \"a\"\nSWAP X%, Y$\n"); err == nil {
		t.Fatal("expected error for SWAP between mismatched types")
	}
}

func TestFunctionForwardReference(t *testing.T) {
	resolveSrc(t, "X = DOUBLEIT(3)\nEND\nFUNCTION DOUBLEIT(N)\n    DOUBLEIT = N * 2\nEND FUNCTION\n")
}

func TestSubCannotBeUsedInExpression(t *testing.T) {
	if err := resolveSrcErr(t, "X = HELLO()\nEND\nSUB HELLO\nEND SUB\n"); err == nil {
		t.Fatal("expected error calling a SUB from expression position")
	}
}

func TestDivAlwaysProducesDouble(t *testing.T) {
	table, prog := resolveSrc(t, "X% = 1\nY% = 2\nZ = X% / Y%\n")
	scope := table.Scopes[prog.Main]
	v, ok := scope.Vars[keyOf("Z", token.NoSuffix)]
	if !ok {
		t.Fatal("Z not declared")
	}
	if v.Type != types.Double {
		t.Fatalf("Z: got %v, want DOUBLE", v.Type)
	}
}
