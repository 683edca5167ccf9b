// Package symbol resolves names, scopes, and types over an ast.Program:
// a Collect pre-pass gathers procedure signatures and label namespaces,
// and a Resolver pass fixes every variable's storage class and type,
// inserting the explicit widening/narrowing conversions codegen needs
// (§4.3). This generalizes the teacher's global all_decls table and
// inline are_types_equal checks into a package-scoped symbol table.
package symbol

import (
	"fmt"
	"strings"

	"qbx/ast"
	"qbx/token"
	"qbx/types"
)

// Error is a symbol-resolution error with the source position that
// triggered it.
type Error struct {
	Msg string
	Pos token.Position
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

// StorageClass distinguishes where a variable's value lives (§3.4).
type StorageClass int

const (
	Global StorageClass = iota // fixed label in the data section (__main's variables)
	Local                      // [rbp + offset] in a procedure's stack frame
	Param                      // [rbp + offset], passed in by the caller
)

func (c StorageClass) String() string {
	switch c {
	case Global:
		return "global"
	case Local:
		return "local"
	case Param:
		return "param"
	default:
		return "invalid"
	}
}

// VarKey identifies a variable: its upper-cased base name plus the
// sigil that fixed its type at first mention. Two different sigils on
// the same base name name two distinct variables (§3.3).
type VarKey struct {
	Name   string
	Suffix token.Suffix
}

func keyOf(name string, suffix token.Suffix) VarKey {
	return VarKey{Name: strings.ToUpper(name), Suffix: suffix}
}

// VarInfo describes one resolved variable or array.
type VarInfo struct {
	Key     VarKey
	Type    types.Type // element type for arrays
	Class   StorageClass
	IsArray bool
	Dims    int // number of dimensions, 0 for scalars
}

// ProcSig is a resolved procedure signature, collected up front so
// calls can be checked regardless of declaration order.
type ProcSig struct {
	Decl       *ast.Procedure
	Name       string
	Kind       ast.ProcKind
	Params     []ast.Param
	ReturnType types.Type
}

// Scope holds the resolved variables belonging to one procedure (or to
// __main, whose scope is Global-classed).
type Scope struct {
	Proc  *ast.Procedure
	Vars  map[VarKey]*VarInfo
	Order []*VarInfo // first-mention order, for stable frame layout
}

func newScope(proc *ast.Procedure) *Scope {
	return &Scope{Proc: proc, Vars: make(map[VarKey]*VarInfo)}
}

func (s *Scope) declare(key VarKey, t types.Type, class StorageClass) *VarInfo {
	if v, ok := s.Vars[key]; ok {
		return v
	}
	v := &VarInfo{Key: key, Type: t, Class: class}
	s.Vars[key] = v
	s.Order = append(s.Order, v)
	return v
}

func (s *Scope) declareArray(key VarKey, elem types.Type, dims int, class StorageClass) *VarInfo {
	if v, ok := s.Vars[key]; ok {
		return v
	}
	v := &VarInfo{Key: key, Type: elem, Class: class, IsArray: true, Dims: dims}
	s.Vars[key] = v
	s.Order = append(s.Order, v)
	return v
}

// Table is the complete result of symbol resolution: every procedure's
// signature, every procedure's (and __main's) resolved scope, and the
// per-procedure label namespace GOTO/GOSUB/ON...GOTO validate against.
type Table struct {
	Procs  map[string]*ProcSig
	Scopes map[*ast.Procedure]*Scope
	Labels map[*ast.Procedure]map[string]token.Position
}

// NewTable returns an empty Table ready for Collect.
func NewTable() *Table {
	return &Table{
		Procs:  make(map[string]*ProcSig),
		Scopes: make(map[*ast.Procedure]*Scope),
		Labels: make(map[*ast.Procedure]map[string]token.Position),
	}
}

// Collect performs the pre-pass: procedure signatures (so a call can
// reference a SUB/FUNCTION declared later in the source) and each
// procedure's label namespace (§3.5: every label resolves uniquely
// within its own procedure).
func (t *Table) Collect(prog *ast.Program) error {
	for _, proc := range prog.Procs {
		name := strings.ToUpper(proc.Name)
		if _, dup := t.Procs[name]; dup {
			return &Error{Msg: fmt.Sprintf("%s %s redeclared", procKindWord(proc.Kind), proc.Name), Pos: proc.Pos}
		}
		t.Procs[name] = &ProcSig{
			Decl: proc, Name: proc.Name, Kind: proc.Kind,
			Params: proc.Params, ReturnType: proc.ReturnType,
		}
	}
	if err := t.collectLabels(prog.Main); err != nil {
		return err
	}
	for _, proc := range prog.Procs {
		if err := t.collectLabels(proc); err != nil {
			return err
		}
	}
	return nil
}

func procKindWord(k ast.ProcKind) string {
	if k == ast.FunctionProc {
		return "function"
	}
	return "sub"
}

func (t *Table) collectLabels(proc *ast.Procedure) error {
	seen := make(map[string]token.Position)
	var walk func(stmts []ast.Statement) error
	walk = func(stmts []ast.Statement) error {
		for _, s := range stmts {
			if err := walkLabel(s, seen, walk); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(proc.Body); err != nil {
		return err
	}
	t.Labels[proc] = seen
	return nil
}

// walkLabel records s's label (if it is, or wraps, a LabelStmt) and
// recurses into every nested statement list so labels inside IF/FOR/
// WHILE/DO/SELECT CASE bodies are found too.
func walkLabel(s ast.Statement, seen map[string]token.Position, walk func([]ast.Statement) error) error {
	switch n := s.(type) {
	case *ast.LabelStmt:
		key := strings.ToUpper(n.Name)
		if prior, dup := seen[key]; dup {
			return &Error{Msg: fmt.Sprintf("label %s redeclared (first at %s)", n.Name, prior), Pos: n.Pos}
		}
		seen[key] = n.Pos
		return walkLabel(n.Inner, seen, walk)
	case *ast.IfStmt:
		if err := walk(n.Then); err != nil {
			return err
		}
		for _, arm := range n.ElseIfs {
			if err := walk(arm.Then); err != nil {
				return err
			}
		}
		return walk(n.Else)
	case *ast.SingleLineIfStmt:
		if n.Then != nil {
			if err := walkLabel(n.Then, seen, walk); err != nil {
				return err
			}
		}
		if n.Else != nil {
			return walkLabel(n.Else, seen, walk)
		}
		return nil
	case *ast.ForStmt:
		return walk(n.Body)
	case *ast.WhileStmt:
		return walk(n.Body)
	case *ast.DoStmt:
		return walk(n.Body)
	case *ast.SelectCaseStmt:
		for _, arm := range n.Arms {
			if err := walk(arm.Body); err != nil {
				return err
			}
		}
		return walk(n.Default)
	case *ast.BlockStmt:
		return walk(n.Stmts)
	default:
		return nil
	}
}
