// Package codegen lowers an annotated ast.Program (post symbol.Resolve)
// to x86-64 assembly text, Intel syntax, GAS-compatible (-masm=intel).
// There is no register allocator: operand placement follows a fixed
// convention, generalizing the teacher's single-type Var_Pos map to
// the five-member type lattice.
package codegen

import (
	"fmt"
	"math"
	"strings"

	"qbx/ast"
	"qbx/symbol"
	"qbx/types"
)

// Generator holds the mutable state threaded through one Generate
// call: the asmWriter output buffer, the target ABI, the symbol table
// built by an earlier symbol.Resolve pass, and whichever procedure's
// frame is currently in scope.
type Generator struct {
	w           *asmWriter
	abi         ABI
	table       *symbol.Table
	prog        *ast.Program
	globalFrame frame
	curFrame    frame
	curProc     *ast.Procedure

	strLits  map[string]string
	gosubSeq int
}

// Generate lowers prog to a complete assembly-language translation
// unit targeting abi. This is the entry point original_source/src/
// codegen.rs's generate() plays for the reference implementation:
// emit the header, every user SUB/FUNCTION, then __main, then the
// accumulated data/bss sections.
func Generate(prog *ast.Program, table *symbol.Table, abi ABI) (string, error) {
	g := &Generator{
		w:       &asmWriter{},
		abi:     abi,
		table:   table,
		prog:    prog,
		strLits: make(map[string]string),
	}
	g.globalFrame = buildGlobalFrame(table.Scopes[prog.Main])

	g.w.text_(".globl %smain", abi.SymbolPrefix())
	if usesGosub(prog) {
		g.w.text_(".globl _gosub_sp")
	}
	g.w.text_("")

	for _, proc := range prog.Procs {
		if err := g.genProcedure(proc); err != nil {
			return "", err
		}
	}

	if err := g.genMain(); err != nil {
		return "", err
	}

	g.emitDataSection()
	return g.w.assemble(abi), nil
}

// genProcedure lowers one user SUB or FUNCTION to a labeled routine,
// callable via the _proc_ convention genCall emits.
func (g *Generator) genProcedure(proc *ast.Procedure) error {
	scope := g.table.Scopes[proc]
	fr := buildLocalFrame(scope)
	g.curFrame = fr
	g.curProc = proc

	g.w.text_("%s_proc_%s:", g.abi.SymbolPrefix(), strings.ToUpper(proc.Name))
	g.w.text_("  push rbp")
	g.w.text_("  mov rbp, rsp")
	g.w.text_("  sub rsp, %d", fr.FrameSize)
	g.spillParams(proc)

	for _, s := range proc.Body {
		g.genStmt(s)
	}

	g.w.text_("%s:", g.procReturnLabel(proc))
	if proc.Kind == ast.FunctionProc {
		g.genLoadVar(proc.Name, proc.ReturnType.Suffix(), proc.ReturnType)
	}
	g.w.text_("  leave")
	g.w.text_("  ret")
	g.w.text_("")
	return nil
}

func (g *Generator) procReturnLabel(proc *ast.Procedure) string {
	return fmt.Sprintf("%s_proc_%s_ret", g.abi.SymbolPrefix(), strings.ToUpper(proc.Name))
}

// spillParams copies incoming arguments out of the ABI's argument
// registers into the callee's stack slots, the standard prologue
// technique that lets the rest of codegen treat every Local and Param
// alike once inside the procedure body.
func (g *Generator) spillParams(proc *ast.Procedure) {
	ints := g.abi.IntArgRegs()
	floats := g.abi.FloatArgRegs()
	ii, fi := 0, 0
	for _, p := range proc.Params {
		slot, ok := g.curFrame.slot(varKey(p.Name, p.Suffix))
		if !ok {
			continue
		}
		if p.Type == types.String {
			g.w.text_("  mov %s, %s", slot.operand(), ints[ii])
			g.w.text_("  mov %s, %s", slot.lenOperand(), ints[ii+1])
			ii += 2
		} else if types.InSSE(p.Type) {
			g.w.text_("  movsd %s, %s", slot.operand(), floats[fi])
			fi++
		} else {
			g.w.text_("  mov %s, %s", slot.operand(), ints[ii])
			ii++
		}
	}
}

func (g *Generator) genMain() error {
	main := g.prog.Main
	g.curFrame = frame{} // __main's own scalars are Global, not framed
	g.curProc = main

	g.w.text_("%smain:", g.abi.SymbolPrefix())
	g.w.text_("  push rbp")
	g.w.text_("  mov rbp, rsp")
	if usesGosub(g.prog) {
		g.w.text_("  lea rax, [rip+_gosub_stack]")
		g.w.text_("  mov [rip+_gosub_sp], rax")
	}

	for _, s := range main.Body {
		g.genStmt(s)
	}

	g.w.text_("%s:", g.procReturnLabel(main))
	g.w.text_("  xor eax, eax")
	g.w.text_("  leave")
	g.w.text_("  ret")
	g.w.text_("")
	return nil
}

// internString returns the data-section label for s, allocating one
// on first use. Every string literal is deduplicated by value.
func (g *Generator) internString(s string) string {
	if label, ok := g.strLits[s]; ok {
		return label
	}
	label := fmt.Sprintf("_str_%d", len(g.strLits))
	g.strLits[s] = label
	return label
}

// emitDataSection writes every global variable's .bss slot, every
// interned string literal, the GOSUB return stack (if used), and the
// DATA/READ literal table (§6's {tag,payload} layout).
func (g *Generator) emitDataSection() {
	for _, v := range g.table.Scopes[g.prog.Main].Order {
		label := globalLabel(v.Key)
		if v.IsArray {
			g.w.bss_("%s: .skip 8", label)
			continue
		}
		if v.Type == types.String {
			g.w.bss_("%s: .skip 16", label)
		} else {
			g.w.bss_("%s: .skip 8", label)
		}
	}

	// The DATA table interns its string literals, so it is laid out
	// before the literal pool is written.
	g.emitDataTable()

	for s, label := range g.strLits {
		g.w.data_("%s: .ascii \"%s\\0\"", label, escapeAsm(s))
	}

	if usesGosub(g.prog) {
		g.w.data_("_gosub_sp: .quad 0")
		g.w.bss_("_gosub_stack: .skip %d", 256*8)
	}
}

// emitDataTable lays out Program.Data as the fixed {tag: u64, payload:
// u64} table §6 specifies, one entry per DATA literal in program order.
func (g *Generator) emitDataTable() {
	g.w.data_("_data_table:")
	for _, lit := range g.prog.Data {
		switch lit.Kind {
		case ast.LitInt:
			g.w.data_("  .quad 0, %d", lit.Int)
		case ast.LitFloat:
			g.w.data_("  .quad 1, %d", int64(math.Float64bits(lit.Float)))
		case ast.LitString:
			label := g.internString(lit.Str)
			g.w.data_("  .quad 2, %s", label)
		}
	}
	g.w.data_("_data_count: .quad %d", len(g.prog.Data))
}

func escapeAsm(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// usesGosub reports whether any GOSUB appears anywhere in the program,
// matching original_source/src/codegen.rs's gosub_used flag: the
// return-stack globals are only worth emitting when a GOSUB actually
// needs them.
func usesGosub(prog *ast.Program) bool {
	var walk func([]ast.Statement) bool
	walk = func(stmts []ast.Statement) bool {
		for _, s := range stmts {
			if stmtUsesGosub(s, walk) {
				return true
			}
		}
		return false
	}
	if walk(prog.Main.Body) {
		return true
	}
	for _, p := range prog.Procs {
		if walk(p.Body) {
			return true
		}
	}
	return false
}

func stmtUsesGosub(s ast.Statement, walk func([]ast.Statement) bool) bool {
	switch n := s.(type) {
	case *ast.GosubStmt:
		return true
	case *ast.OnGotoStmt:
		return n.IsGosub
	case *ast.LabelStmt:
		return stmtUsesGosub(n.Inner, walk)
	case *ast.IfStmt:
		if walk(n.Then) {
			return true
		}
		for _, arm := range n.ElseIfs {
			if walk(arm.Then) {
				return true
			}
		}
		return walk(n.Else)
	case *ast.SingleLineIfStmt:
		if n.Then != nil && stmtUsesGosub(n.Then, walk) {
			return true
		}
		return n.Else != nil && stmtUsesGosub(n.Else, walk)
	case *ast.ForStmt:
		return walk(n.Body)
	case *ast.WhileStmt:
		return walk(n.Body)
	case *ast.DoStmt:
		return walk(n.Body)
	case *ast.SelectCaseStmt:
		for _, arm := range n.Arms {
			if walk(arm.Body) {
				return true
			}
		}
		return walk(n.Default)
	case *ast.BlockStmt:
		return walk(n.Stmts)
	default:
		return false
	}
}
