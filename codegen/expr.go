package codegen

import (
	"math"
	"strings"

	"qbx/ast"
	"qbx/symbol"
	"qbx/token"
	"qbx/types"
)

// genExpr lowers e, leaving its value in the fixed location its type
// dictates (§4.4): Integer/Long sign-extended into rax, Single/Double
// in xmm0 as a double, String as rax=ptr/rdx=len. This generalizes the
// teacher's single fixed accumulator convention to the five-type
// lattice instead of allocating registers per expression.
func (g *Generator) genExpr(e ast.Expr) {
	switch n := e.(type) {
	case *ast.NumLit:
		g.genNumLit(n)
	case *ast.StrLit:
		g.genStrLit(n)
	case *ast.Var:
		g.genLoadVar(n.Name, n.Suffix, n.ExprType())
	case *ast.ArrayRef:
		g.genArrayLoad(n)
	case *ast.Call:
		g.genCall(n)
	case *ast.BuiltinCall:
		g.genBuiltin(n)
	case *ast.Unary:
		g.genUnary(n)
	case *ast.Binary:
		g.genBinary(n)
	case *ast.Coerce:
		g.genCoerce(n)
	default:
		g.w.text_("  # unhandled expr %T", n)
	}
}

func int64AsBits(f float64) int64 { return int64(math.Float64bits(f)) }

func (g *Generator) genNumLit(n *ast.NumLit) {
	t := n.ExprType()
	switch {
	case types.InGPR(t):
		v := n.Value.Int
		if n.Value.Kind == ast.LitFloat {
			v = int64(n.Value.Float)
		}
		g.w.text_("  mov rax, %d", v)
	case types.InSSE(t):
		f := n.Value.Float
		if n.Value.Kind == ast.LitInt {
			f = float64(n.Value.Int)
		}
		g.w.text_("  mov rax, %d", int64AsBits(f))
		g.w.text_("  movq xmm0, rax")
	default:
		g.w.text_("  # unhandled literal type %v", t)
	}
}

func (g *Generator) genStrLit(n *ast.StrLit) {
	label := g.internString(n.Value)
	g.w.text_("  lea rax, [rip+%s]", label)
	g.w.text_("  mov rdx, %d", len(n.Value))
}

func varKey(name string, suffix token.Suffix) symbol.VarKey {
	return symbol.VarKey{Name: strings.ToUpper(name), Suffix: suffix}
}

// mustSlot looks up a variable's slot in the current frame, falling
// back to the global frame for names declared in __main (a SUB/
// FUNCTION body never shares locals with __main; this fallback only
// ever fires while generating __main itself).
func (g *Generator) mustSlot(name string, suffix token.Suffix) varSlot {
	key := varKey(name, suffix)
	if s, ok := g.curFrame.slot(key); ok {
		return s
	}
	if s, ok := g.globalFrame.slot(key); ok {
		return s
	}
	return varSlot{}
}

// genLoadVar loads a scalar variable into the fixed evaluation
// location for t.
func (g *Generator) genLoadVar(name string, suffix token.Suffix, t types.Type) {
	slot := g.mustSlot(name, suffix)
	switch t {
	case types.String:
		g.w.text_("  mov rax, %s", slot.operand())
		g.w.text_("  mov rdx, %s", slot.lenOperand())
	case types.Integer:
		g.w.text_("  movsx rax, word %s", slot.operand())
	case types.Long:
		g.w.text_("  movsxd rax, dword %s", slot.operand())
	case types.Single:
		g.w.text_("  cvtss2sd xmm0, dword %s", slot.operand())
	case types.Double:
		g.w.text_("  movsd xmm0, %s", slot.operand())
	default:
		g.w.text_("  # unhandled var load type %v", t)
	}
}

// genStoreVar stores the value currently in the fixed evaluation
// location for t into name's slot. Callers must genExpr the value
// first.
func (g *Generator) genStoreVar(name string, suffix token.Suffix, t types.Type) {
	slot := g.mustSlot(name, suffix)
	switch t {
	case types.String:
		g.w.text_("  mov %s, rax", slot.operand())
		g.w.text_("  mov %s, rdx", slot.lenOperand())
	case types.Integer:
		g.w.text_("  mov word %s, ax", slot.operand())
	case types.Long:
		g.w.text_("  mov dword %s, eax", slot.operand())
	case types.Single:
		g.w.text_("  cvtsd2ss xmm1, xmm0")
		g.w.text_("  movss dword %s, xmm1", slot.operand())
	case types.Double:
		g.w.text_("  movsd %s, xmm0", slot.operand())
	default:
		g.w.text_("  # unhandled var store type %v", t)
	}
}

// genArrayElemAddr computes the byte address of one element of an
// array reference and leaves it in rax. Arrays are heap blocks shaped
// [dimCount][dim0 size]...[dimN size][elements...] (§9 supplement to
// §3.4's DIM semantics); the element stride is read back out of the
// header at run time since dimension sizes may be run-time expressions.
func (g *Generator) genArrayElemAddr(n *ast.ArrayRef) {
	slot := g.mustSlot(n.Name, n.Suffix)
	elemSize := types.Size(slot.Info.Type)
	if slot.Info.Type == types.String {
		elemSize = 16
	}
	g.w.text_("  mov r12, %s # array base pointer", slot.operand())
	g.w.text_("  xor r13, r13 # running offset")
	for i, idx := range n.Indices {
		// a nested array index (A(B(i))) recursively re-enters this
		// function and clobbers r12/r13, so they are spilled around
		// each index's evaluation.
		g.w.text_("  push r12")
		g.w.text_("  push r13")
		g.genExpr(idx)
		g.w.text_("  pop r13")
		g.w.text_("  pop r12")
		g.w.text_("  movsxd rax, eax")
		g.w.text_("  mov r14, r12")
		g.w.text_("  add r14, %d # header entry for dim %d", 8+8*i, i)
		g.w.text_("  imul r13, qword [r14]")
		g.w.text_("  add r13, rax")
	}
	g.w.text_("  lea rax, [r12 + 8*%d] # element storage start", len(n.Indices)+1)
	g.w.text_("  imul r13, %d", elemSize)
	g.w.text_("  add rax, r13")
}

func (g *Generator) genArrayLoad(n *ast.ArrayRef) {
	g.genArrayElemAddr(n)
	g.w.text_("  mov r15, rax")
	t := n.ExprType()
	switch t {
	case types.String:
		g.w.text_("  mov rax, [r15]")
		g.w.text_("  mov rdx, [r15+8]")
	case types.Integer:
		g.w.text_("  movsx rax, word [r15]")
	case types.Long:
		g.w.text_("  movsxd rax, dword [r15]")
	case types.Single:
		g.w.text_("  cvtss2sd xmm0, dword [r15]")
	case types.Double:
		g.w.text_("  movsd xmm0, [r15]")
	}
}

func (g *Generator) genArrayStore(n *ast.ArrayRef, t types.Type) {
	// The value to store arrives in rax/rdx/xmm0, which the element
	// address computation overwrites; keep it on the stack meanwhile.
	g.w.text_("  push rax")
	g.w.text_("  push rdx")
	g.w.text_("  sub rsp, 16")
	g.w.text_("  movsd [rsp], xmm0")
	g.genArrayElemAddr(n)
	g.w.text_("  mov r15, rax")
	g.w.text_("  movsd xmm0, [rsp]")
	g.w.text_("  add rsp, 16")
	g.w.text_("  pop rdx")
	g.w.text_("  pop rax")
	switch t {
	case types.String:
		g.w.text_("  mov [r15], rax")
		g.w.text_("  mov [r15+8], rdx")
	case types.Integer:
		g.w.text_("  mov word [r15], ax")
	case types.Long:
		g.w.text_("  mov dword [r15], eax")
	case types.Single:
		g.w.text_("  cvtsd2ss xmm1, xmm0")
		g.w.text_("  movss dword [r15], xmm1")
	case types.Double:
		g.w.text_("  movsd [r15], xmm0")
	}
}

// genCall lowers a user FUNCTION invocation using the target ABI's
// argument registers, matching original_source/src/codegen.rs's
// gen_call stack-alignment convention (sub rsp,8 before a call whose
// argument setup may have left the stack misaligned).
func (g *Generator) genCall(n *ast.Call) {
	g.genCallArgs(n.Args)
	g.w.text_("  sub rsp, 8")
	g.w.text_("  call %s_proc_%s", g.abi.SymbolPrefix(), strings.ToUpper(n.Name))
	g.w.text_("  add rsp, 8")
}

// genCallArgs evaluates each argument and moves it into its ABI slot.
// String arguments consume one integer-register pair (ptr, then the
// next integer register for len) since the ABI interface only exposes
// a flat integer-register list; this is a deliberate simplification
// (no variadic / >register-budget call sites are exercised by
// generated code, since user procedures are small).
func (g *Generator) genCallArgs(args []ast.Expr) {
	ints := g.abi.IntArgRegs()
	floats := g.abi.FloatArgRegs()
	type pending struct {
		reg string
		f64 bool
	}
	var plan []pending
	ii, fi := 0, 0
	for _, a := range args {
		if a.ExprType() == types.String {
			plan = append(plan, pending{reg: ints[ii]}, pending{reg: ints[ii+1]})
			ii += 2
		} else if types.InSSE(a.ExprType()) {
			plan = append(plan, pending{reg: floats[fi], f64: true})
			fi++
		} else {
			plan = append(plan, pending{reg: ints[ii]})
			ii++
		}
	}
	// Evaluate right-to-left so a later argument's evaluation cannot
	// clobber an earlier argument's register before it is consumed.
	slot := len(plan) - 1
	for i := len(args) - 1; i >= 0; i-- {
		a := args[i]
		g.genExpr(a)
		if a.ExprType() == types.String {
			g.w.text_("  mov %s, rdx", plan[slot].reg)
			slot--
			g.w.text_("  mov %s, rax", plan[slot].reg)
			slot--
		} else if types.InSSE(a.ExprType()) {
			g.w.text_("  movsd %s, xmm0", plan[slot].reg)
			slot--
		} else {
			g.w.text_("  mov %s, rax", plan[slot].reg)
			slot--
		}
	}
}

func (g *Generator) genUnary(n *ast.Unary) {
	t := n.ExprType()
	switch n.Op {
	case ast.OpNeg:
		g.genExpr(n.X)
		if types.InSSE(t) {
			g.w.text_("  mov rax, %d # sign bit", int64(-1)<<63)
			g.w.text_("  movq xmm1, rax")
			g.w.text_("  xorpd xmm0, xmm1")
		} else {
			g.w.text_("  neg rax")
		}
	case ast.OpPos:
		g.genExpr(n.X)
	case ast.OpNot:
		g.genExpr(n.X) // operand already coerced to Integer by the resolver
		g.w.text_("  not eax")
	}
}

func (g *Generator) genBinary(n *ast.Binary) {
	switch {
	case n.Op == ast.OpAdd && n.L.ExprType() == types.String:
		g.genConcat(n)
	case types.InSSE(n.L.ExprType()) || n.Op == ast.OpPow:
		g.genBinarySSE(n)
	default:
		g.genBinaryGPR(n)
	}
}

// genBinaryGPR lowers an integer binary op via a push/pop spill,
// adapted from original_source/src/codegen.rs's Expr::Binary pattern
// (evaluate L, spill, evaluate R, recombine) but over the GPR
// registers instead of xmm0/xmm1, since this generator keeps a real
// Integer/Long (GPR) vs Single/Double (SSE) split instead of the
// original's uniform double representation.
func (g *Generator) genBinaryGPR(n *ast.Binary) {
	g.genExpr(n.L)
	g.w.text_("  push rax")
	g.genExpr(n.R)
	g.w.text_("  mov r8, rax")
	g.w.text_("  pop rax")
	switch n.Op {
	case ast.OpAdd:
		g.w.text_("  add rax, r8")
	case ast.OpSub:
		g.w.text_("  sub rax, r8")
	case ast.OpMul:
		g.w.text_("  imul rax, r8")
	case ast.OpIDiv:
		g.w.text_("  cqo")
		g.w.text_("  idiv r8")
	case ast.OpMod:
		g.w.text_("  cqo")
		g.w.text_("  idiv r8")
		g.w.text_("  mov rax, rdx")
	case ast.OpAnd:
		g.w.text_("  and eax, r8d")
	case ast.OpOr:
		g.w.text_("  or eax, r8d")
	case ast.OpXor:
		g.w.text_("  xor eax, r8d")
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		g.w.text_("  cmp rax, r8")
		g.w.text_("  %s al", setccFor(n.Op))
		g.w.text_("  movzx eax, al")
		g.w.text_("  neg eax # BASIC true is -1")
	}
}

func setccFor(op ast.BinOp) string {
	switch op {
	case ast.OpEq:
		return "sete"
	case ast.OpNe:
		return "setne"
	case ast.OpLt:
		return "setl"
	case ast.OpGt:
		return "setg"
	case ast.OpLe:
		return "setle"
	case ast.OpGe:
		return "setge"
	default:
		return "sete"
	}
}

func ucomisetccFor(op ast.BinOp) string {
	// unsigned variants: ucomisd sets flags as an unsigned compare
	switch op {
	case ast.OpEq:
		return "sete"
	case ast.OpNe:
		return "setne"
	case ast.OpLt:
		return "setb"
	case ast.OpGt:
		return "seta"
	case ast.OpLe:
		return "setbe"
	case ast.OpGe:
		return "setae"
	default:
		return "sete"
	}
}

// genBinarySSE lowers a floating binary op (including comparisons,
// which still produce a Long per §4.3) via a stack spill, grounded the
// same way as genBinaryGPR but over xmm0/xmm1.
func (g *Generator) genBinarySSE(n *ast.Binary) {
	g.genExpr(n.L)
	g.w.text_("  sub rsp, 8")
	g.w.text_("  movsd [rsp], xmm0")
	g.genExpr(n.R)
	g.w.text_("  movsd xmm1, xmm0")
	g.w.text_("  movsd xmm0, [rsp]")
	g.w.text_("  add rsp, 8")
	switch n.Op {
	case ast.OpAdd:
		g.w.text_("  addsd xmm0, xmm1")
	case ast.OpSub:
		g.w.text_("  subsd xmm0, xmm1")
	case ast.OpMul:
		g.w.text_("  mulsd xmm0, xmm1")
	case ast.OpDiv:
		g.w.text_("  divsd xmm0, xmm1")
	case ast.OpPow:
		g.w.text_("  call %spow", g.abi.SymbolPrefix())
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		g.w.text_("  ucomisd xmm0, xmm1")
		g.w.text_("  %s al", ucomisetccFor(n.Op))
		g.w.text_("  movzx eax, al")
		g.w.text_("  neg eax")
	}
}

// genConcat lowers string concatenation via the runtime's heap-
// allocating _rt_str_cat helper (§4.5); unlike substring builtins,
// concatenation cannot be zero-copy.
func (g *Generator) genConcat(n *ast.Binary) {
	g.genExpr(n.L)
	g.w.text_("  push rax")
	g.w.text_("  push rdx")
	g.genExpr(n.R)
	g.w.text_("  mov r8, rax")
	g.w.text_("  mov r9, rdx")
	ints := g.abi.IntArgRegs()
	g.w.text_("  pop %s # lhs len", ints[1])
	g.w.text_("  pop %s # lhs ptr", ints[0])
	g.w.text_("  mov %s, r8 # rhs ptr", ints[2])
	g.w.text_("  mov %s, r9 # rhs len", ints[3])
	g.w.text_("  call %s_rt_str_cat", g.abi.SymbolPrefix())
}

func (g *Generator) genCoerce(n *ast.Coerce) {
	from := n.X.ExprType()
	to := n.ExprType()
	g.genExpr(n.X)
	if from == to {
		return
	}
	switch {
	case types.InGPR(from) && types.InGPR(to):
		// already carried sign-extended in rax; no instruction needed
	case types.InGPR(from) && types.InSSE(to):
		g.w.text_("  cvtsi2sd xmm0, rax")
	case types.InSSE(from) && types.InGPR(to):
		g.w.text_("  cvttsd2si rax, xmm0")
	case types.InSSE(from) && types.InSSE(to):
		// both carried as double during evaluation; no instruction needed
	default:
		g.w.text_("  # unhandled coercion %v -> %v", from, to)
	}
}
