// Package compiler orchestrates lex -> parse -> resolve -> codegen as
// one call, the split-out equivalent of the teacher's straight-line
// main() pipeline (tokenize, parse-loop, generate_assembly) so that
// both the CLI and the test suite can drive the full pipeline without
// shelling out to a built binary.
package compiler

import (
	"fmt"

	"qbx/codegen"
	"qbx/lexer"
	"qbx/parser"
	"qbx/symbol"
	"qbx/token"
)

// DiagnosticKind classifies which stage raised a Diagnostic.
type DiagnosticKind int

const (
	Lex DiagnosticKind = iota
	Parse
	Resolution
	Type
)

func (k DiagnosticKind) String() string {
	switch k {
	case Lex:
		return "lex error"
	case Parse:
		return "parse error"
	case Resolution:
		return "resolution error"
	case Type:
		return "type error"
	default:
		return "error"
	}
}

// Diagnostic is a single compile-time error with the source position
// that triggered it. The teacher's print_error_line prints the
// offending line and a caret span directly to stdout and returns a
// bool; here that data is carried structurally so cmd/qbxc can render
// it (via internal/diag) independently of where it was raised.
type Diagnostic struct {
	Kind    DiagnosticKind
	Pos     token.Position
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Kind, d.Message)
}

// Options configures one Compile call. Its only setting is the target
// ABI; output paths and -S belong to driver.Options. It stays a plain struct,
// matching the teacher's near-total absence of configuration (a single
// hardcoded input filename).
type Options struct {
	ABI codegen.ABI
}

// Compile runs the full frontend-to-assembly pipeline over source,
// stopping at the first error any stage raises (per the "first error
// aborts" rule). On success it returns the generated assembly text and
// a nil error; diags is currently always empty on success and holds at
// most one entry on failure, a shape intentionally left open for a
// future multi-error recovery mode.
func Compile(source []byte, opts Options) (asm string, diags []Diagnostic, err error) {
	prog, perr := parser.Parse(string(source))
	if perr != nil {
		d := diagnosticFromError(perr)
		return "", []Diagnostic{d}, &d
	}

	table := symbol.NewTable()
	if cerr := table.Collect(prog); cerr != nil {
		d := diagnosticFromError(cerr)
		return "", []Diagnostic{d}, &d
	}

	if _, rerr := symbol.NewResolver(table).Resolve(prog); rerr != nil {
		d := diagnosticFromError(rerr)
		return "", []Diagnostic{d}, &d
	}

	abi := opts.ABI
	if abi == nil {
		abi = codegen.SysV("")
	}
	asm, gerr := codegen.Generate(prog, table, abi)
	if gerr != nil {
		d := Diagnostic{Kind: Type, Message: gerr.Error()}
		return "", []Diagnostic{d}, &d
	}
	return asm, nil, nil
}

// diagnosticFromError classifies err by its concrete type, the stages
// being distinguishable because each one's Error implementation is its
// own named type (lexer.Error, parser.Error, symbol.Error).
func diagnosticFromError(err error) Diagnostic {
	switch e := err.(type) {
	case *lexer.Error:
		return Diagnostic{Kind: Lex, Pos: e.Pos, Message: e.Msg}
	case *parser.Error:
		return Diagnostic{Kind: Parse, Pos: e.Pos, Message: fmt.Sprintf("expected %s, found %s", e.Expected, e.Found)}
	case *symbol.Error:
		return Diagnostic{Kind: Resolution, Pos: e.Pos, Message: e.Msg}
	default:
		return Diagnostic{Kind: Type, Message: err.Error()}
	}
}
