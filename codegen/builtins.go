package codegen

import (
	"qbx/ast"
	"qbx/types"
)

// genBuiltin lowers one of the fixed builtin functions (§9) to either
// a libc math call (templated with the ABI's symbol prefix, matching
// original_source/src/runtime.rs's {libc} substitution) or a runtime
// helper call (§4.5, _rt_-prefixed).
func (g *Generator) genBuiltin(n *ast.BuiltinCall) {
	switch n.ID {
	case ast.BuiltinAbs:
		g.genExpr(n.Args[0])
		if types.InSSE(n.Args[0].ExprType()) {
			g.w.text_("  mov rax, %d", int64(-1)<<63)
			g.w.text_("  movq xmm1, rax")
			g.w.text_("  andnpd xmm1, xmm0")
			g.w.text_("  movsd xmm0, xmm1")
		} else {
			g.w.text_("  mov r8, rax")
			g.w.text_("  neg rax")
			g.w.text_("  cmp r8, 0")
			g.w.text_("  cmovge rax, r8")
		}
	case ast.BuiltinSgn:
		g.genExpr(n.Args[0])
		g.genSgn(n.Args[0].ExprType())
	case ast.BuiltinSqr:
		g.unaryLibm(n.Args[0], "sqrt")
	case ast.BuiltinSin:
		g.unaryLibm(n.Args[0], "sin")
	case ast.BuiltinCos:
		g.unaryLibm(n.Args[0], "cos")
	case ast.BuiltinTan:
		g.unaryLibm(n.Args[0], "tan")
	case ast.BuiltinAtn:
		g.unaryLibm(n.Args[0], "atan")
	case ast.BuiltinExp:
		g.unaryLibm(n.Args[0], "exp")
	case ast.BuiltinLog:
		g.unaryLibm(n.Args[0], "log")
	case ast.BuiltinCDbl:
		g.genExpr(n.Args[0]) // already coerced to Double by the resolver
	case ast.BuiltinInt, ast.BuiltinFix:
		g.genExpr(n.Args[0])
		if n.ID == ast.BuiltinInt {
			g.w.text_("  roundsd xmm0, xmm0, 1 # round toward -infinity")
		} else {
			g.w.text_("  roundsd xmm0, xmm0, 3 # round toward zero")
		}
	case ast.BuiltinCInt, ast.BuiltinCLng:
		g.genExpr(n.Args[0])
		g.w.text_("  roundsd xmm0, xmm0, 0 # round to nearest")
		g.w.text_("  cvttsd2si rax, xmm0")
	case ast.BuiltinCSng:
		g.genExpr(n.Args[0])
	case ast.BuiltinLen:
		g.genExpr(n.Args[0])
		g.w.text_("  mov rax, rdx")
	case ast.BuiltinAsc:
		g.genExpr(n.Args[0])
		g.w.text_("  movzx eax, byte [rax]")
	case ast.BuiltinStr:
		g.genExpr(n.Args[0])
		g.callRuntime1f("str_str")
	case ast.BuiltinVal:
		g.genExpr(n.Args[0])
		g.callRuntime2("str_val")
	case ast.BuiltinChr:
		g.genExpr(n.Args[0])
		g.callRuntime1i("str_chr")
	case ast.BuiltinUCase:
		g.genExpr(n.Args[0])
		g.callRuntime2("str_ucase")
	case ast.BuiltinLCase:
		g.genExpr(n.Args[0])
		g.callRuntime2("str_lcase")
	case ast.BuiltinLeft:
		g.genStrIntArgs(n.Args)
		g.callRuntimeRaw("str_left")
	case ast.BuiltinRight:
		g.genStrIntArgs(n.Args)
		g.callRuntimeRaw("str_right")
	case ast.BuiltinMid:
		g.genMid(n)
	case ast.BuiltinInstr:
		g.genInstr(n)
	case ast.BuiltinSpace:
		g.genExpr(n.Args[0])
		g.callRuntime1i("str_space")
	case ast.BuiltinString:
		g.genString2(n)
	case ast.BuiltinRnd:
		if len(n.Args) > 0 {
			g.genExpr(n.Args[0])
		} else {
			g.w.text_("  xorps xmm0, xmm0")
		}
		g.callRuntimeRawF("rnd")
	case ast.BuiltinTimer:
		g.callRuntimeRawF("timer")
	default:
		g.w.text_("  # unhandled builtin %s", n.Name)
	}
}

func (g *Generator) genSgn(t types.Type) {
	if types.InSSE(t) {
		g.w.text_("  xorps xmm1, xmm1")
		g.w.text_("  ucomisd xmm0, xmm1")
		g.w.text_("  seta r8b")
		g.w.text_("  setb r9b")
		g.w.text_("  movzx eax, r8b")
		g.w.text_("  movzx ecx, r9b")
		g.w.text_("  sub eax, ecx")
	} else {
		g.w.text_("  mov r8, rax")
		g.w.text_("  xor eax, eax")
		g.w.text_("  cmp r8, 0")
		g.w.text_("  setg al")
		g.w.text_("  mov r9, 0")
		g.w.text_("  setl r9b")
		g.w.text_("  movzx r9, r9b")
		g.w.text_("  sub eax, r9d")
	}
}

func (g *Generator) unaryLibm(arg ast.Expr, name string) {
	g.genExpr(arg) // already coerced to Double by the resolver
	g.w.text_("  call %s%s", g.abi.SymbolPrefix(), name)
}

func (g *Generator) callRuntime1f(name string) {
	g.w.text_("  movsd %s, xmm0", g.abi.FloatArgRegs()[0])
	g.w.text_("  call %s_rt_%s", g.abi.SymbolPrefix(), name)
}

func (g *Generator) callRuntime1i(name string) {
	g.w.text_("  mov %s, rax", g.abi.IntArgRegs()[0])
	g.w.text_("  call %s_rt_%s", g.abi.SymbolPrefix(), name)
}

func (g *Generator) callRuntime2(name string) {
	ints := g.abi.IntArgRegs()
	g.w.text_("  mov %s, rax", ints[0])
	g.w.text_("  mov %s, rdx", ints[1])
	g.w.text_("  call %s_rt_%s", g.abi.SymbolPrefix(), name)
}

func (g *Generator) callRuntimeRaw(name string) {
	g.w.text_("  call %s_rt_%s", g.abi.SymbolPrefix(), name)
}

func (g *Generator) callRuntimeRawF(name string) {
	g.w.text_("  call %s_rt_%s", g.abi.SymbolPrefix(), name)
}

// genStrIntArgs evaluates (String, Long) args into the first three
// integer argument registers (ptr, len, count) for str_left/str_right.
func (g *Generator) genStrIntArgs(args []ast.Expr) {
	ints := g.abi.IntArgRegs()
	g.genExpr(args[1])
	g.w.text_("  push rax")
	g.genExpr(args[0])
	g.w.text_("  mov %s, rax", ints[0])
	g.w.text_("  mov %s, rdx", ints[1])
	g.w.text_("  pop %s", ints[2])
}

func (g *Generator) genMid(n *ast.BuiltinCall) {
	ints := g.abi.IntArgRegs()
	hasLen := len(n.Args) == 3
	if hasLen {
		g.genExpr(n.Args[2])
		g.w.text_("  push rax")
	}
	g.genExpr(n.Args[1])
	g.w.text_("  push rax")
	g.genExpr(n.Args[0])
	g.w.text_("  mov %s, rax", ints[0])
	g.w.text_("  mov %s, rdx", ints[1])
	g.w.text_("  pop %s", ints[2])
	if hasLen {
		g.w.text_("  pop %s", ints[3])
	} else {
		g.w.text_("  mov %s, -1 # to end of string", ints[3])
	}
	g.w.text_("  call %s_rt_str_mid", g.abi.SymbolPrefix())
}

// storeIntArg moves src into the i-th integer argument slot: a
// register if the target ABI has one at that position, otherwise a
// stack slot past the ABI's shadow space (the Win64 convention for
// the 5th-and-beyond integer argument; SysV never needs this branch,
// since it has six integer argument registers).
func (g *Generator) storeIntArg(i int, src string) {
	ints := g.abi.IntArgRegs()
	if i < len(ints) {
		g.w.text_("  mov %s, %s", ints[i], src)
		return
	}
	off := g.abi.ShadowSpace() + 8*(i-len(ints))
	g.w.text_("  mov [rsp+%d], %s", off, src)
}

// genInstr lowers both the 2-arg INSTR(hay, needle) and 3-arg
// INSTR(start, hay, needle) forms to a call into _rt_str_instr, which
// expects (start, hayptr, haylen, needleptr, needlelen). Operands are
// evaluated right-to-left; every one but the first is pushed, since
// each subsequent genExpr call clobbers rax/rdx, and the first stays in
// registers. The final mov/pop sequence then places each value into its
// argument slot.
func (g *Generator) genInstr(n *ast.BuiltinCall) {
	if len(n.Args) == 3 {
		g.genExpr(n.Args[2]) // needle
		g.w.text_("  push rax")
		g.w.text_("  push rdx")
		g.genExpr(n.Args[1]) // hay
		g.w.text_("  push rax")
		g.w.text_("  push rdx")
		g.genExpr(n.Args[0]) // start, stays live in rax across the pops below
		g.w.text_("  pop r9")
		g.storeIntArg(2, "r9") // hay len
		g.w.text_("  pop r9")
		g.storeIntArg(1, "r9") // hay ptr
		g.w.text_("  pop r9")
		g.storeIntArg(4, "r9") // needle len
		g.w.text_("  pop r9")
		g.storeIntArg(3, "r9") // needle ptr
		g.storeIntArg(0, "rax") // start
	} else {
		g.genExpr(n.Args[1]) // needle
		g.w.text_("  push rax")
		g.w.text_("  push rdx")
		g.genExpr(n.Args[0]) // hay
		g.w.text_("  mov r10, rax")
		g.w.text_("  mov r11, rdx")
		g.storeIntArg(1, "r10") // hay ptr
		g.storeIntArg(2, "r11") // hay len
		g.w.text_("  pop r9")
		g.storeIntArg(4, "r9") // needle len
		g.w.text_("  pop r9")
		g.storeIntArg(3, "r9") // needle ptr
		g.storeIntArg(0, "1")  // start defaults to the beginning of hay
	}
	g.w.text_("  call %s_rt_str_instr", g.abi.SymbolPrefix())
}

// genString2 lowers STRING$(count, x), where x is either a numeric
// char code or a one-character string; _rt_str_string always wants a
// char code byte in its second argument, so the String form must load
// the first (only) byte of the string rather than pass its pointer.
func (g *Generator) genString2(n *ast.BuiltinCall) {
	g.genExpr(n.Args[1])
	if n.Args[1].ExprType() == types.String {
		g.w.text_("  movzx r8, byte [rax]")
	} else {
		g.w.text_("  mov r8, rax")
	}
	g.w.text_("  push r8")
	g.genExpr(n.Args[0])
	g.storeIntArg(0, "rax")
	g.w.text_("  pop r9")
	g.storeIntArg(1, "r9")
	g.w.text_("  call %s_rt_str_string", g.abi.SymbolPrefix())
}
