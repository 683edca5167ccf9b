package codegen

import (
	"strings"

	"qbx/ast"
	"qbx/token"
	"qbx/types"
)

// genStmt lowers one statement. This is the generalization of the
// teacher's per-statement-kind switch to the richer statement set §3
// names; every case mirrors the sequencing original_source/src/
// codegen.rs uses for the same BASIC construct, adapted to this
// generator's GPR/SSE/String evaluation convention.
func (g *Generator) genStmt(s ast.Statement) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		g.genAssign(n)
	case *ast.PrintStmt:
		g.genPrintItems(n.Items, "")
	case *ast.FilePrintStmt:
		g.genPrintItems(n.Items, g.fileNoOperand(n.FileNo))
	case *ast.InputStmt:
		g.genInput(n)
	case *ast.LineInputStmt:
		g.genLineInput(n)
	case *ast.IfStmt:
		g.genIf(n)
	case *ast.SingleLineIfStmt:
		g.genSingleLineIf(n)
	case *ast.ForStmt:
		g.genFor(n)
	case *ast.WhileStmt:
		g.genWhile(n)
	case *ast.DoStmt:
		g.genDo(n)
	case *ast.GotoStmt:
		g.w.text_("  jmp %s", g.labelFor(n.Label))
	case *ast.GosubStmt:
		g.genGosub(n)
	case *ast.ReturnStmt:
		g.genReturn()
	case *ast.OnGotoStmt:
		g.genOnGoto(n)
	case *ast.DimStmt:
		g.genDim(n)
	case *ast.SubCallStmt:
		g.genSubCall(n)
	case *ast.ReadStmt:
		g.genRead(n)
	case *ast.RestoreStmt:
		g.genRestore(n)
	case *ast.SelectCaseStmt:
		g.genSelectCase(n)
	case *ast.FileOpenStmt:
		g.genFileOpen(n)
	case *ast.FileCloseStmt:
		g.genFileClose(n)
	case *ast.FileInputStmt:
		g.genFileInput(n)
	case *ast.ClsStmt:
		g.w.text_("  call %s_rt_cls", g.abi.SymbolPrefix())
	case *ast.EndStmt:
		g.w.text_("  jmp %s", g.procReturnLabel(g.curProc))
	case *ast.StopStmt:
		g.w.text_("  jmp %s", g.procReturnLabel(g.curProc))
	case *ast.SwapStmt:
		g.genSwap(n)
	case *ast.RandomizeStmt:
		g.genRandomize(n)
	case *ast.BlockStmt:
		for _, inner := range n.Stmts {
			g.genStmt(inner)
		}
	case *ast.LabelStmt:
		g.w.text_("%s:", g.labelFor(n.Name))
		g.genStmt(n.Inner)
	case *ast.DataStmt:
		// literals already lifted into Program.Data by the parser
	default:
		g.w.text_("  # unhandled statement %T", n)
	}
}

// labelFor renders a source label/line-number as an assembly label,
// scoped to the current procedure since §3.5 gives every procedure
// its own label namespace.
func (g *Generator) labelFor(name string) string {
	scope := "main"
	if g.curProc != nil && g.curProc.Kind != ast.MainProc {
		scope = strings.ToUpper(g.curProc.Name)
	}
	return ".L_" + scope + "_" + strings.ToUpper(name)
}

func (g *Generator) genAssign(n *ast.AssignStmt) {
	switch lv := n.Target.(type) {
	case *ast.ScalarLValue:
		g.genExpr(n.Value)
		g.genStoreVar(lv.Name, lv.Suffix, n.Value.ExprType())
	case *ast.ArrayLValue:
		g.genExpr(n.Value)
		ref := ast.NewArrayRef(lv.Pos, lv.Name, lv.Suffix, lv.Indices)
		ast.SetType(ref, n.Value.ExprType())
		g.genArrayStore(ref, n.Value.ExprType())
	case *ast.FuncResultLValue:
		g.genExpr(n.Value)
		g.genStoreVar(lv.Name, n.Value.ExprType().Suffix(), n.Value.ExprType())
	}
}

// genPrintItems lowers PRINT/PRINT# (fileNo is "" for the console
// form, the file number operand for the file form), one
// item at a time, inserting the tab/no-separator behaviour §3 assigns
// to ",", ";" and a bare trailing item.
func (g *Generator) genPrintItems(items []ast.PrintItem, fileNo string) {
	for _, item := range items {
		g.genExpr(item.Expr)
		g.callPrintFor(item.Expr.ExprType(), fileNo)
		switch item.Sep {
		case ast.SepComma:
			g.callPrintTab(fileNo)
		case ast.SepSemi:
			// no separator emitted
		case ast.SepNone:
			g.callPrintNewline(fileNo)
		}
	}
	if len(items) == 0 {
		g.callPrintNewline(fileNo)
	}
}

func (g *Generator) callPrintFor(t types.Type, fileNo string) {
	ints := g.abi.IntArgRegs()
	prefix := g.abi.SymbolPrefix()
	if types.InGPR(t) {
		// the float printers take their value in xmm0
		g.w.text_("  cvtsi2sd xmm0, rax")
	}
	if fileNo != "" {
		switch t {
		case types.String:
			g.w.text_("  mov %s, rdx", ints[2])
			g.w.text_("  mov %s, rax", ints[1])
			g.w.text_("  mov %s, %s", ints[0], fileNo)
			g.w.text_("  call %s_rt_file_print_string", prefix)
		default:
			g.w.text_("  movsd %s, xmm0", g.abi.FloatArgRegs()[0])
			g.w.text_("  mov %s, %s", ints[0], fileNo)
			g.w.text_("  call %s_rt_file_print_float", prefix)
		}
		return
	}
	switch t {
	case types.String:
		g.w.text_("  mov %s, rax", ints[0])
		g.w.text_("  mov %s, rdx", ints[1])
		g.w.text_("  call %s_rt_print_string", prefix)
	default:
		g.w.text_("  call %s_rt_print_float", prefix)
	}
}

func (g *Generator) callPrintTab(fileNo string) {
	prefix := g.abi.SymbolPrefix()
	if fileNo != "" {
		g.w.text_("  mov %s, %s", g.abi.IntArgRegs()[0], fileNo)
		g.w.text_("  mov %s, 9", g.abi.IntArgRegs()[1])
		g.w.text_("  call %s_rt_file_print_char", prefix)
		return
	}
	g.w.text_("  mov %s, 9", g.abi.IntArgRegs()[0])
	g.w.text_("  call %s_rt_print_char", prefix)
}

func (g *Generator) callPrintNewline(fileNo string) {
	prefix := g.abi.SymbolPrefix()
	if fileNo != "" {
		g.w.text_("  mov %s, %s", g.abi.IntArgRegs()[0], fileNo)
		g.w.text_("  call %s_rt_file_print_newline", prefix)
		return
	}
	g.w.text_("  call %s_rt_print_newline", prefix)
}

func (g *Generator) fileNoOperand(n int) string {
	return strings.TrimSpace(itoa(n))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func (g *Generator) genInput(n *ast.InputStmt) {
	if n.HasProm {
		g.genPromptString(n.Prompt)
	}
	for _, target := range n.Targets {
		g.genInputOne(target)
	}
}

// genPromptString prints an INPUT/LINE INPUT prompt before the
// runtime read call; a literal belongs in the same interned-string
// table PRINT's string literals use.
func (g *Generator) genPromptString(s string) {
	label := g.internString(s)
	ints := g.abi.IntArgRegs()
	g.w.text_("  lea %s, [rip+%s]", ints[0], label)
	g.w.text_("  mov %s, %d", ints[1], len(s))
	g.w.text_("  call %s_rt_print_string", g.abi.SymbolPrefix())
}

func (g *Generator) genInputOne(target ast.LValue) {
	prefix := g.abi.SymbolPrefix()
	switch lv := target.(type) {
	case *ast.ScalarLValue:
		t := typeOfLValue(g, lv)
		if t == types.String {
			g.w.text_("  call %s_rt_input_string", prefix)
			g.genStoreVar(lv.Name, lv.Suffix, types.String)
		} else {
			g.w.text_("  call %s_rt_input_number", prefix)
			g.genStoreVar(lv.Name, lv.Suffix, types.Double)
		}
	case *ast.ArrayLValue:
		slot := g.mustSlot(lv.Name, lv.Suffix)
		t := types.FromSuffix(lv.Suffix)
		if slot.Info != nil {
			t = slot.Info.Type
		}
		if t == types.String {
			g.w.text_("  call %s_rt_input_string", prefix)
		} else {
			g.w.text_("  call %s_rt_input_number", prefix) // -> xmm0, a Double
			if types.InGPR(t) {
				g.w.text_("  cvttsd2si rax, xmm0")
			}
		}
		ref := ast.NewArrayRef(lv.Pos, lv.Name, lv.Suffix, lv.Indices)
		ast.SetType(ref, t)
		g.genArrayStore(ref, t)
	}
}

func typeOfLValue(g *Generator, lv *ast.ScalarLValue) types.Type {
	slot := g.mustSlot(lv.Name, lv.Suffix)
	if slot.Info != nil {
		return slot.Info.Type
	}
	return types.FromSuffix(lv.Suffix)
}

func (g *Generator) genLineInput(n *ast.LineInputStmt) {
	if n.HasProm {
		g.genPromptString(n.Prompt)
	}
	g.w.text_("  call %s_rt_input_string", g.abi.SymbolPrefix())
	if lv, ok := n.Target.(*ast.ScalarLValue); ok {
		g.genStoreVar(lv.Name, lv.Suffix, types.String)
	}
}

func (g *Generator) genIf(n *ast.IfStmt) {
	elseLabel := g.w.newLabel("else")
	endLabel := g.w.newLabel("endif")
	g.genExpr(n.Cond)
	g.w.text_("  cmp eax, 0")
	g.w.text_("  je %s", elseLabel)
	for _, s := range n.Then {
		g.genStmt(s)
	}
	g.w.text_("  jmp %s", endLabel)
	g.w.text_("%s:", elseLabel)
	for _, arm := range n.ElseIfs {
		nextLabel := g.w.newLabel("elseif")
		g.genExpr(arm.Cond)
		g.w.text_("  cmp eax, 0")
		g.w.text_("  je %s", nextLabel)
		for _, s := range arm.Then {
			g.genStmt(s)
		}
		g.w.text_("  jmp %s", endLabel)
		g.w.text_("%s:", nextLabel)
	}
	for _, s := range n.Else {
		g.genStmt(s)
	}
	g.w.text_("%s:", endLabel)
}

func (g *Generator) genSingleLineIf(n *ast.SingleLineIfStmt) {
	elseLabel := g.w.newLabel("else")
	endLabel := g.w.newLabel("endif")
	g.genExpr(n.Cond)
	g.w.text_("  cmp eax, 0")
	g.w.text_("  je %s", elseLabel)
	if n.Then != nil {
		g.genStmt(n.Then)
	}
	g.w.text_("  jmp %s", endLabel)
	g.w.text_("%s:", elseLabel)
	if n.Else != nil {
		g.genStmt(n.Else)
	}
	g.w.text_("%s:", endLabel)
}

// genFor lowers FOR/NEXT with a runtime test of STEP's sign so a
// negative step still terminates correctly (§3's requirement that the
// loop direction follow STEP's sign rather than assuming ascending).
func (g *Generator) genFor(n *ast.ForStmt) {
	varType := n.Start.ExprType() // the resolver coerces Start/End/Step to the loop variable's type
	stepLabel := g.w.newLabel("forstep")
	testLabel := g.w.newLabel("fortest")
	endLabel := g.w.newLabel("forend")

	g.genExpr(n.Start)
	g.genStoreVar(n.Var.Name, n.Var.Suffix, varType)

	stepSlot := g.tempSlotFor(varType, "forstep")
	if n.Step != nil {
		g.genExpr(n.Step)
	} else {
		g.genOne(varType)
	}
	g.storeTemp(stepSlot, varType)

	endSlot := g.tempSlotFor(varType, "forend")
	g.genExpr(n.End)
	g.storeTemp(endSlot, varType)

	g.w.text_("  jmp %s", testLabel)
	g.w.text_("%s:", stepLabel)
	g.genLoadVar(n.Var.Name, n.Var.Suffix, varType)
	g.loadTemp(stepSlot, varType)
	g.addInPlace(varType)
	g.genStoreVar(n.Var.Name, n.Var.Suffix, varType)

	g.w.text_("%s:", testLabel)
	g.genLoadVar(n.Var.Name, n.Var.Suffix, varType)
	g.loadTemp(endSlot, varType)
	g.w.text_("  # loop test: step>=0 ? var<=end : var>=end")
	g.genCompareLoopBound(stepSlot, varType, endLabel)

	for _, s := range n.Body {
		g.genStmt(s)
	}
	g.w.text_("  jmp %s", stepLabel)
	g.w.text_("%s:", endLabel)
}

func (g *Generator) genOne(t types.Type) {
	if types.InSSE(t) {
		g.w.text_("  mov rax, %d", int64AsBits(1.0))
		g.w.text_("  movq xmm0, rax")
	} else {
		g.w.text_("  mov rax, 1")
	}
}

func (g *Generator) addInPlace(t types.Type) {
	if types.InSSE(t) {
		g.w.text_("  addsd xmm0, xmm1")
	} else {
		g.w.text_("  add rax, r8")
	}
}

// tempSlotFor/storeTemp/loadTemp model the small fixed-size temporary
// area a FOR loop needs for its END and STEP values; these live in
// the current procedure's own frame as ordinary extra stack slots.
type tempSlot struct {
	offset int
}

func (g *Generator) tempSlotFor(t types.Type, hint string) tempSlot {
	g.curFrame.FrameSize += 8
	return tempSlot{offset: -g.curFrame.FrameSize}
}

func (g *Generator) storeTemp(s tempSlot, t types.Type) {
	if types.InSSE(t) {
		g.w.text_("  movsd [rbp%+d], xmm0", s.offset)
	} else {
		g.w.text_("  mov [rbp%+d], rax", s.offset)
	}
}

func (g *Generator) loadTemp(s tempSlot, t types.Type) {
	if types.InSSE(t) {
		g.w.text_("  movsd xmm1, [rbp%+d]", s.offset)
	} else {
		g.w.text_("  mov r8, [rbp%+d]", s.offset)
	}
}

// genCompareLoopBound assumes var is already loaded (rax or xmm0) and
// end is loaded into r8/xmm1 (via loadTemp immediately before this
// call); it jumps to endLabel once the loop should stop.
func (g *Generator) genCompareLoopBound(stepSlot tempSlot, t types.Type, endLabel string) {
	negStepLabel := g.w.newLabel("forneg")
	doneLabel := g.w.newLabel("fordone")
	if types.InSSE(t) {
		g.w.text_("  movsd xmm2, xmm1") // save end
		g.loadTemp(stepSlot, t)
		g.w.text_("  xorps xmm3, xmm3")
		g.w.text_("  ucomisd xmm1, xmm3")
		g.w.text_("  jb %s", negStepLabel)
		g.w.text_("  ucomisd xmm0, xmm2")
		g.w.text_("  ja %s", endLabel)
		g.w.text_("  jmp %s", doneLabel)
		g.w.text_("%s:", negStepLabel)
		g.w.text_("  ucomisd xmm0, xmm2")
		g.w.text_("  jb %s", endLabel)
		g.w.text_("%s:", doneLabel)
	} else {
		g.w.text_("  mov r9, r8") // save end
		g.loadTemp(stepSlot, t)
		g.w.text_("  cmp r8, 0")
		g.w.text_("  jl %s", negStepLabel)
		g.w.text_("  cmp rax, r9")
		g.w.text_("  jg %s", endLabel)
		g.w.text_("  jmp %s", doneLabel)
		g.w.text_("%s:", negStepLabel)
		g.w.text_("  cmp rax, r9")
		g.w.text_("  jl %s", endLabel)
		g.w.text_("%s:", doneLabel)
	}
}

func (g *Generator) genWhile(n *ast.WhileStmt) {
	top := g.w.newLabel("while")
	end := g.w.newLabel("endwhile")
	g.w.text_("%s:", top)
	g.genExpr(n.Cond)
	g.w.text_("  cmp eax, 0")
	g.w.text_("  je %s", end)
	for _, s := range n.Body {
		g.genStmt(s)
	}
	g.w.text_("  jmp %s", top)
	g.w.text_("%s:", end)
}

func (g *Generator) genDo(n *ast.DoStmt) {
	top := g.w.newLabel("do")
	end := g.w.newLabel("enddo")
	g.w.text_("%s:", top)
	if n.Kind == ast.DoPreWhile || n.Kind == ast.DoPreUntil {
		g.genExpr(n.Cond)
		g.w.text_("  cmp eax, 0")
		if n.Kind == ast.DoPreWhile {
			g.w.text_("  je %s", end)
		} else {
			g.w.text_("  jne %s", end)
		}
	}
	for _, s := range n.Body {
		g.genStmt(s)
	}
	switch n.Kind {
	case ast.DoPlain:
		g.w.text_("  jmp %s", top)
	case ast.DoPreWhile, ast.DoPreUntil:
		g.w.text_("  jmp %s", top)
	case ast.DoPostWhile:
		g.genExpr(n.Cond)
		g.w.text_("  cmp eax, 0")
		g.w.text_("  jne %s", top)
	case ast.DoPostUntil:
		g.genExpr(n.Cond)
		g.w.text_("  cmp eax, 0")
		g.w.text_("  je %s", top)
	}
	g.w.text_("%s:", end)
}

// genGosub pushes a return address onto the fixed-depth GOSUB return
// stack and jumps, overflowing into _rt_gosub_overflow if the stack is
// exhausted (§5's depth>=256 guarantee).
func (g *Generator) genGosub(n *ast.GosubStmt) {
	ret := g.w.newLabel("gosubret")
	g.genGosubTo(n.Label, ret)
	g.w.text_("%s:", ret)
}

// genGosubTo pushes retLabel onto the fixed-depth GOSUB return stack
// and jumps to the target label, overflowing into _rt_gosub_overflow
// if the stack is exhausted (§5's depth>=256 guarantee). retLabel is
// left for the caller to define at the resumption point; this lets
// ON...GOSUB share one return label across every branch.
func (g *Generator) genGosubTo(label, retLabel string) {
	okLabel := g.w.newLabel("gosubok")
	g.w.text_("  mov rax, [rip+_gosub_sp]")
	g.w.text_("  lea rcx, [rip+%s]", retLabel)
	g.w.text_("  mov [rax], rcx")
	g.w.text_("  add rax, 8")
	g.w.text_("  lea rdx, [rip+_gosub_stack+%d]", 256*8)
	g.w.text_("  cmp rax, rdx")
	g.w.text_("  jb %s", okLabel)
	g.w.text_("  call %s_rt_gosub_overflow", g.abi.SymbolPrefix())
	g.w.text_("%s:", okLabel)
	g.w.text_("  mov [rip+_gosub_sp], rax")
	g.w.text_("  jmp %s", g.labelFor(label))
}

func (g *Generator) genReturn() {
	g.w.text_("  mov rax, [rip+_gosub_sp]")
	g.w.text_("  sub rax, 8")
	g.w.text_("  mov [rip+_gosub_sp], rax")
	g.w.text_("  jmp [rax]")
}

func (g *Generator) genOnGoto(n *ast.OnGotoStmt) {
	g.genExpr(n.Selector)
	g.w.text_("  dec eax")
	if !n.IsGosub {
		for i, label := range n.Labels {
			g.w.text_("  cmp eax, %d", i)
			g.w.text_("  je %s", g.labelFor(label))
		}
		return
	}
	ret := g.w.newLabel("ongosubret")
	for i, label := range n.Labels {
		branch := g.w.newLabel("ongosub")
		g.w.text_("  cmp eax, %d", i)
		g.w.text_("  jne %s", branch)
		g.genGosubTo(label, ret)
		g.w.text_("%s:", branch)
	}
	g.w.text_("%s:", ret)
}

func (g *Generator) genDim(n *ast.DimStmt) {
	for _, decl := range n.Arrays {
		g.genDimOne(decl)
	}
}

// genDimOne heap-allocates an array's backing storage, shaped
// [dimCount][dim0 size]...[dimN size][elements...] (supplementing §3.4
// with a concrete representation, since the distilled spec leaves
// array storage unspecified beyond "DIM reserves space").
func (g *Generator) genDimOne(decl ast.ArrayDecl) {
	slot := g.mustSlot(decl.Name, decl.Suffix)
	elemSize := 8
	if slot.Info != nil && slot.Info.Type == types.String {
		elemSize = 16
	}
	prefix := g.abi.SymbolPrefix()

	g.w.text_("  mov r12, 1 # running element count")
	for _, dim := range decl.Dims {
		g.genExpr(dim)
		g.w.text_("  movsxd rax, eax")
		g.w.text_("  inc rax # inclusive upper bound")
		g.w.text_("  push rax")
	}
	for range decl.Dims {
		g.w.text_("  pop rax")
		g.w.text_("  imul r12, rax")
	}
	g.w.text_("  mov r13, r12")
	g.w.text_("  imul r13, %d", elemSize)
	g.w.text_("  add r13, %d # header", 8*(len(decl.Dims)+1))
	g.w.text_("  mov %s, r13", g.abi.IntArgRegs()[0])
	g.w.text_("  call %smalloc", prefix)
	g.w.text_("  mov %s, rax", slot.operand())

	for i, dim := range decl.Dims {
		g.genExpr(dim)
		g.w.text_("  movsxd rax, eax")
		g.w.text_("  inc rax")
		g.w.text_("  mov r14, %s", slot.operand())
		g.w.text_("  mov [r14+%d], rax", 8+8*i)
	}
	g.w.text_("  mov r14, %s", slot.operand())
	g.w.text_("  mov [r14], %d", len(decl.Dims))
}

func (g *Generator) genSubCall(n *ast.SubCallStmt) {
	g.genCallArgs(n.Args)
	g.w.text_("  sub rsp, 8")
	g.w.text_("  call %s_proc_%s", g.abi.SymbolPrefix(), strings.ToUpper(n.Name))
	g.w.text_("  add rsp, 8")
}

func (g *Generator) genRead(n *ast.ReadStmt) {
	prefix := g.abi.SymbolPrefix()
	for _, target := range n.Targets {
		lv, ok := target.(*ast.ScalarLValue)
		if !ok {
			continue
		}
		t := typeOfLValue(g, lv)
		if t == types.String {
			g.w.text_("  call %s_rt_read_string", prefix)
			g.genStoreVar(lv.Name, lv.Suffix, types.String)
		} else {
			g.w.text_("  call %s_rt_read_number", prefix)
			g.genStoreVar(lv.Name, lv.Suffix, types.Double)
		}
	}
}

func (g *Generator) genRestore(n *ast.RestoreStmt) {
	index := 0
	if n.HasLbl {
		if idx, ok := g.prog.DataLabelIndex[n.Label]; ok {
			index = idx
		} else if idx, ok := g.prog.DataLabelIndex[strings.ToUpper(n.Label)]; ok {
			index = idx
		}
	}
	g.w.text_("  mov %s, %d", g.abi.IntArgRegs()[0], index)
	g.w.text_("  call %s_rt_restore", g.abi.SymbolPrefix())
}

func (g *Generator) genSelectCase(n *ast.SelectCaseStmt) {
	endLabel := g.w.newLabel("endselect")
	g.genExpr(n.Scrutinee)
	scrType := n.Scrutinee.ExprType()
	scrTemp := g.tempSlotFor(scrType, "select")
	g.storeTemp(scrTemp, scrType)

	for _, arm := range n.Arms {
		armLabel := g.w.newLabel("case")
		nextLabel := g.w.newLabel("casenext")
		for _, m := range arm.Matchers {
			g.genCaseMatcher(m, scrTemp, scrType, armLabel)
		}
		g.w.text_("  jmp %s", nextLabel)
		g.w.text_("%s:", armLabel)
		for _, s := range arm.Body {
			g.genStmt(s)
		}
		g.w.text_("  jmp %s", endLabel)
		g.w.text_("%s:", nextLabel)
	}
	for _, s := range n.Default {
		g.genStmt(s)
	}
	g.w.text_("%s:", endLabel)
}

func (g *Generator) genCaseMatcher(m ast.CaseMatcher, scrTemp tempSlot, scrType types.Type, matchLabel string) {
	switch m.Kind {
	case ast.MatchValue:
		g.compareScrutinee(scrTemp, scrType, m.Value, ast.OpEq, matchLabel)
	case ast.MatchRange:
		skip := g.w.newLabel("rangemiss")
		g.compareScrutinee(scrTemp, scrType, m.Lo, ast.OpLt, skip)
		g.compareScrutinee(scrTemp, scrType, m.Hi, ast.OpGt, skip)
		g.w.text_("  jmp %s", matchLabel)
		g.w.text_("%s:", skip)
	case ast.MatchRelop:
		g.compareScrutinee(scrTemp, scrType, m.Rhs, relopToBinOp(m.Op), matchLabel)
	}
}

func relopToBinOp(k token.Kind) ast.BinOp {
	switch k {
	case token.Eq:
		return ast.OpEq
	case token.Ne:
		return ast.OpNe
	case token.Lt:
		return ast.OpLt
	case token.Gt:
		return ast.OpGt
	case token.Le:
		return ast.OpLe
	case token.Ge:
		return ast.OpGe
	default:
		return ast.OpEq
	}
}

// compareScrutinee evaluates rhs, compares it against the spilled
// scrutinee under op, and jumps to label if the comparison holds.
// This mirrors genBinaryGPR/genBinarySSE's spill-and-combine shape but
// branches directly instead of materializing a Long -1/0 result,
// since a CASE arm only needs the branch.
func (g *Generator) compareScrutinee(scrTemp tempSlot, t types.Type, rhs ast.Expr, op ast.BinOp, label string) {
	g.genExpr(rhs)
	if types.InSSE(t) {
		g.w.text_("  movsd xmm1, xmm0")
		g.loadTempInto(scrTemp, t)
		g.w.text_("  ucomisd xmm0, xmm1")
		g.w.text_("  %s %s", jccUnsignedFor(op), label)
	} else {
		g.w.text_("  mov r8, rax")
		g.loadTempInto(scrTemp, t)
		g.w.text_("  cmp rax, r8")
		g.w.text_("  %s %s", jccFor(op), label)
	}
}

// loadTempInto reloads the scrutinee into the same evaluation location
// genExpr would leave a freshly-evaluated expression in, so comparisons
// below can treat it as "the left operand".
func (g *Generator) loadTempInto(s tempSlot, t types.Type) {
	if types.InSSE(t) {
		g.w.text_("  movsd xmm0, [rbp%+d]", s.offset)
	} else {
		g.w.text_("  mov rax, [rbp%+d]", s.offset)
	}
}

func jccFor(op ast.BinOp) string {
	switch op {
	case ast.OpEq:
		return "je"
	case ast.OpNe:
		return "jne"
	case ast.OpLt:
		return "jl"
	case ast.OpGt:
		return "jg"
	case ast.OpLe:
		return "jle"
	case ast.OpGe:
		return "jge"
	default:
		return "je"
	}
}

func jccUnsignedFor(op ast.BinOp) string {
	switch op {
	case ast.OpEq:
		return "je"
	case ast.OpNe:
		return "jne"
	case ast.OpLt:
		return "jb"
	case ast.OpGt:
		return "ja"
	case ast.OpLe:
		return "jbe"
	case ast.OpGe:
		return "jae"
	default:
		return "je"
	}
}

func (g *Generator) genFileOpen(n *ast.FileOpenStmt) {
	g.genExpr(n.Path)
	ints := g.abi.IntArgRegs()
	g.w.text_("  mov %s, rax", ints[0])
	g.w.text_("  mov %s, rdx", ints[1])
	g.w.text_("  mov %s, %d", ints[2], int(n.Mode))
	g.w.text_("  mov %s, %d", ints[3], n.FileNo)
	g.w.text_("  call %s_rt_file_open", g.abi.SymbolPrefix())
}

func (g *Generator) genFileClose(n *ast.FileCloseStmt) {
	if !n.HasFileNo {
		g.w.text_("  mov %s, -1 # close all", g.abi.IntArgRegs()[0])
	} else {
		g.w.text_("  mov %s, %d", g.abi.IntArgRegs()[0], n.FileNo)
	}
	g.w.text_("  call %s_rt_file_close", g.abi.SymbolPrefix())
}

func (g *Generator) genFileInput(n *ast.FileInputStmt) {
	prefix := g.abi.SymbolPrefix()
	for _, target := range n.Targets {
		lv, ok := target.(*ast.ScalarLValue)
		if !ok {
			continue
		}
		g.w.text_("  mov %s, %d", g.abi.IntArgRegs()[0], n.FileNo)
		t := typeOfLValue(g, lv)
		if t == types.String {
			g.w.text_("  call %s_rt_file_input_string", prefix)
			g.genStoreVar(lv.Name, lv.Suffix, types.String)
		} else {
			g.w.text_("  call %s_rt_file_input_number", prefix)
			g.genStoreVar(lv.Name, lv.Suffix, types.Double)
		}
	}
}

func (g *Generator) genSwap(n *ast.SwapStmt) {
	la, ok1 := n.A.(*ast.ScalarLValue)
	lb, ok2 := n.B.(*ast.ScalarLValue)
	if !ok1 || !ok2 {
		return
	}
	t := typeOfLValue(g, la)
	g.genLoadVar(la.Name, la.Suffix, t)
	if types.InSSE(t) {
		g.w.text_("  movsd xmm2, xmm0")
	} else if t == types.String {
		g.w.text_("  mov r10, rax")
		g.w.text_("  mov r11, rdx")
	} else {
		g.w.text_("  mov r10, rax")
	}
	g.genLoadVar(lb.Name, lb.Suffix, t)
	g.genStoreVar(la.Name, la.Suffix, t)
	if types.InSSE(t) {
		g.w.text_("  movsd xmm0, xmm2")
	} else if t == types.String {
		g.w.text_("  mov rax, r10")
		g.w.text_("  mov rdx, r11")
	} else {
		g.w.text_("  mov rax, r10")
	}
	g.genStoreVar(lb.Name, lb.Suffix, t)
}

func (g *Generator) genRandomize(n *ast.RandomizeStmt) {
	if n.Seed != nil {
		g.genExpr(n.Seed)
	} else {
		g.w.text_("  call %s_rt_timer", g.abi.SymbolPrefix())
	}
	g.w.text_("  movsd %s, xmm0", g.abi.FloatArgRegs()[0])
	g.w.text_("  call %s_rt_randomize", g.abi.SymbolPrefix())
}
