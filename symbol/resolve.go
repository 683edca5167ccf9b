package symbol

import (
	"fmt"
	"strings"

	"qbx/ast"
	"qbx/token"
	"qbx/types"
)

// Resolver walks an ast.Program after Collect has run, fixing every
// variable's type and storage class, rewriting ambiguous Name(args)
// Call nodes into ArrayRef where the name denotes a DIM'd array, and
// inserting ast.Coerce nodes at every implicit numeric conversion
// (§4.3). The teacher's equivalent is the inline checking threaded
// through resolve_decl_value/are_types_equal in parser.go; this keeps
// the same "check as you walk" shape in a separate pass instead.
type Resolver struct {
	table *Table
	prog  *ast.Program
	proc  *ast.Procedure // procedure currently being resolved
	scope *Scope
}

// NewResolver returns a Resolver over a Table already populated by
// Collect.
func NewResolver(t *Table) *Resolver {
	return &Resolver{table: t}
}

// Resolve runs the full pass and returns the completed Table.
func (r *Resolver) Resolve(prog *ast.Program) (*Table, error) {
	r.prog = prog

	mainScope := newScope(prog.Main)
	r.table.Scopes[prog.Main] = mainScope
	if err := r.resolveProc(prog.Main, mainScope, Global); err != nil {
		return nil, err
	}

	for _, proc := range prog.Procs {
		scope := newScope(proc)
		r.table.Scopes[proc] = scope
		for _, param := range proc.Params {
			scope.declare(keyOf(param.Name, param.Suffix), param.Type, Param)
		}
		if err := r.resolveProc(proc, scope, Local); err != nil {
			return nil, err
		}
	}
	return r.table, nil
}

func (r *Resolver) resolveProc(proc *ast.Procedure, scope *Scope, class StorageClass) error {
	r.proc, r.scope = proc, scope
	return r.resolveBody(proc.Body, class)
}

func (r *Resolver) resolveBody(stmts []ast.Statement, class StorageClass) error {
	for i, s := range stmts {
		resolved, err := r.resolveStmt(s, class)
		if err != nil {
			return err
		}
		stmts[i] = resolved
	}
	return nil
}

func errAt(pos token.Position, format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...), Pos: pos}
}

func (r *Resolver) resolveStmt(s ast.Statement, class StorageClass) (ast.Statement, error) {
	switch n := s.(type) {
	case *ast.AssignStmt:
		targetType, err := r.resolveLValue(n.Target, class)
		if err != nil {
			return nil, err
		}
		val, err := r.resolveExpr(n.Value, class)
		if err != nil {
			return nil, err
		}
		if val.ExprType() == types.String || targetType == types.String {
			if val.ExprType() != targetType {
				return nil, errAt(n.Pos, "cannot assign %s to %s target", val.ExprType(), targetType)
			}
		} else {
			val = coerce(val, targetType)
		}
		n.Value = val
		return n, nil

	case *ast.PrintStmt:
		if err := r.resolvePrintItems(n.Items, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.FilePrintStmt:
		if err := r.resolvePrintItems(n.Items, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.InputStmt:
		for i, lv := range n.Targets {
			if _, err := r.resolveLValue(lv, class); err != nil {
				return nil, err
			}
			n.Targets[i] = lv
		}
		return n, nil

	case *ast.LineInputStmt:
		if _, err := r.resolveLValue(n.Target, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.FileInputStmt:
		for _, lv := range n.Targets {
			if _, err := r.resolveLValue(lv, class); err != nil {
				return nil, err
			}
		}
		return n, nil

	case *ast.IfStmt:
		cond, err := r.resolveNumericExpr(n.Cond, class)
		if err != nil {
			return nil, err
		}
		n.Cond = cond
		if err := r.resolveBody(n.Then, class); err != nil {
			return nil, err
		}
		for i := range n.ElseIfs {
			c, err := r.resolveNumericExpr(n.ElseIfs[i].Cond, class)
			if err != nil {
				return nil, err
			}
			n.ElseIfs[i].Cond = c
			if err := r.resolveBody(n.ElseIfs[i].Then, class); err != nil {
				return nil, err
			}
		}
		if err := r.resolveBody(n.Else, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.SingleLineIfStmt:
		cond, err := r.resolveNumericExpr(n.Cond, class)
		if err != nil {
			return nil, err
		}
		n.Cond = cond
		then, err := r.resolveStmt(n.Then, class)
		if err != nil {
			return nil, err
		}
		n.Then = then
		if n.Else != nil {
			els, err := r.resolveStmt(n.Else, class)
			if err != nil {
				return nil, err
			}
			n.Else = els
		}
		return n, nil

	case *ast.BlockStmt:
		if err := r.resolveBody(n.Stmts, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.LabelStmt:
		inner, err := r.resolveStmt(n.Inner, class)
		if err != nil {
			return nil, err
		}
		n.Inner = inner
		return n, nil

	case *ast.ForStmt:
		varType, err := r.resolveLValue(n.Var, class)
		if err != nil {
			return nil, err
		}
		start, err := r.resolveNumericExpr(n.Start, class)
		if err != nil {
			return nil, err
		}
		n.Start = coerce(start, varType)
		end, err := r.resolveNumericExpr(n.End, class)
		if err != nil {
			return nil, err
		}
		n.End = coerce(end, varType)
		if n.Step != nil {
			step, err := r.resolveNumericExpr(n.Step, class)
			if err != nil {
				return nil, err
			}
			n.Step = coerce(step, varType)
		}
		if err := r.resolveBody(n.Body, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.WhileStmt:
		cond, err := r.resolveNumericExpr(n.Cond, class)
		if err != nil {
			return nil, err
		}
		n.Cond = cond
		if err := r.resolveBody(n.Body, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.DoStmt:
		if n.Cond != nil {
			cond, err := r.resolveNumericExpr(n.Cond, class)
			if err != nil {
				return nil, err
			}
			n.Cond = cond
		}
		if err := r.resolveBody(n.Body, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.GotoStmt:
		if err := r.checkLabel(n.Label, n.Pos); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.GosubStmt:
		if err := r.checkLabel(n.Label, n.Pos); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.ReturnStmt:
		return n, nil

	case *ast.OnGotoStmt:
		sel, err := r.resolveNumericExpr(n.Selector, class)
		if err != nil {
			return nil, err
		}
		n.Selector = coerce(sel, types.Integer)
		for _, lbl := range n.Labels {
			if err := r.checkLabel(lbl, n.Pos); err != nil {
				return nil, err
			}
		}
		return n, nil

	case *ast.DimStmt:
		for _, decl := range n.Arrays {
			if err := r.resolveArrayDecl(decl, class); err != nil {
				return nil, err
			}
		}
		return n, nil

	case *ast.SubCallStmt:
		if err := r.resolveCallArgs(n.Name, n.Args, n.Pos, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.ReadStmt:
		for _, lv := range n.Targets {
			if _, err := r.resolveLValue(lv, class); err != nil {
				return nil, err
			}
		}
		return n, nil

	case *ast.RestoreStmt:
		if n.HasLbl {
			if _, ok := r.prog.DataLabelIndex[n.Label]; !ok {
				if _, ok2 := r.prog.DataLabelIndex[strings.ToUpper(n.Label)]; !ok2 {
					return nil, errAt(n.Pos, "RESTORE: undefined label %q", n.Label)
				}
			}
		}
		return n, nil

	case *ast.SelectCaseStmt:
		scrut, err := r.resolveExpr(n.Scrutinee, class)
		if err != nil {
			return nil, err
		}
		n.Scrutinee = scrut
		for ai := range n.Arms {
			for mi := range n.Arms[ai].Matchers {
				if err := r.resolveMatcher(&n.Arms[ai].Matchers[mi], scrut.ExprType(), class); err != nil {
					return nil, err
				}
			}
			if err := r.resolveBody(n.Arms[ai].Body, class); err != nil {
				return nil, err
			}
		}
		if err := r.resolveBody(n.Default, class); err != nil {
			return nil, err
		}
		return n, nil

	case *ast.FileOpenStmt:
		path, err := r.resolveExpr(n.Path, class)
		if err != nil {
			return nil, err
		}
		if path.ExprType() != types.String {
			return nil, errAt(n.Pos, "OPEN path must be a string expression")
		}
		n.Path = path
		return n, nil

	case *ast.FileCloseStmt, *ast.ClsStmt, *ast.EndStmt, *ast.StopStmt:
		return n, nil

	case *ast.SwapStmt:
		at, err := r.resolveLValue(n.A, class)
		if err != nil {
			return nil, err
		}
		bt, err := r.resolveLValue(n.B, class)
		if err != nil {
			return nil, err
		}
		if at != bt {
			return nil, errAt(n.Pos, "SWAP requires two variables of the same type")
		}
		return n, nil

	case *ast.RandomizeStmt:
		if n.Seed != nil {
			seed, err := r.resolveNumericExpr(n.Seed, class)
			if err != nil {
				return nil, err
			}
			n.Seed = seed
		}
		return n, nil

	case *ast.DataStmt:
		return n, nil

	default:
		return nil, errAt(s.StmtPos(), "internal: unhandled statement %T", s)
	}
}

func (r *Resolver) resolvePrintItems(items []ast.PrintItem, class StorageClass) error {
	for i := range items {
		e, err := r.resolveExpr(items[i].Expr, class)
		if err != nil {
			return err
		}
		items[i].Expr = e
	}
	return nil
}

func (r *Resolver) checkLabel(label string, pos token.Position) error {
	labels := r.table.Labels[r.proc]
	if _, ok := labels[strings.ToUpper(label)]; !ok {
		return errAt(pos, "undefined label %q", label)
	}
	return nil
}

func (r *Resolver) resolveMatcher(m *ast.CaseMatcher, scrutType types.Type, class StorageClass) error {
	switch m.Kind {
	case ast.MatchValue:
		v, err := r.resolveExpr(m.Value, class)
		if err != nil {
			return err
		}
		m.Value = r.matchCoerce(v, scrutType)
	case ast.MatchRange:
		lo, err := r.resolveExpr(m.Lo, class)
		if err != nil {
			return err
		}
		hi, err := r.resolveExpr(m.Hi, class)
		if err != nil {
			return err
		}
		m.Lo = r.matchCoerce(lo, scrutType)
		m.Hi = r.matchCoerce(hi, scrutType)
	case ast.MatchRelop:
		rhs, err := r.resolveExpr(m.Rhs, class)
		if err != nil {
			return err
		}
		m.Rhs = r.matchCoerce(rhs, scrutType)
	}
	return nil
}

func (r *Resolver) matchCoerce(e ast.Expr, scrutType types.Type) ast.Expr {
	if scrutType == types.String || e.ExprType() == types.String {
		return e
	}
	return coerce(e, types.Join(scrutType, e.ExprType()))
}

func (r *Resolver) resolveArrayDecl(decl ast.ArrayDecl, class StorageClass) error {
	key := keyOf(decl.Name, decl.Suffix)
	if _, exists := r.scope.Vars[key]; exists {
		return errAt(decl.Pos, "%s redeclared", decl.Name)
	}
	for i, d := range decl.Dims {
		e, err := r.resolveNumericExpr(d, class)
		if err != nil {
			return err
		}
		decl.Dims[i] = coerce(e, types.Long)
	}
	r.scope.declareArray(key, types.FromSuffix(decl.Suffix), len(decl.Dims), class)
	return nil
}

// resolveLValue returns the fixed type of an assignment target,
// declaring it on first mention.
func (r *Resolver) resolveLValue(lv ast.LValue, class StorageClass) (types.Type, error) {
	switch n := lv.(type) {
	case *ast.ScalarLValue:
		key := keyOf(n.Name, n.Suffix)
		if v, ok := r.scope.Vars[key]; ok {
			if v.IsArray {
				return types.Invalid, errAt(n.Pos, "%s is an array, not a scalar", n.Name)
			}
			return v.Type, nil
		}
		v := r.scope.declare(key, types.FromSuffix(n.Suffix), class)
		return v.Type, nil
	case *ast.ArrayLValue:
		elem, err := r.resolveArrayAccess(n.Name, n.Suffix, n.Indices, n.Pos, class)
		if err != nil {
			return types.Invalid, err
		}
		return elem, nil
	case *ast.FuncResultLValue:
		sig, ok := r.table.Procs[strings.ToUpper(r.proc.Name)]
		if !ok {
			return types.Invalid, errAt(n.Pos, "internal: function result outside a FUNCTION")
		}
		return sig.ReturnType, nil
	default:
		return types.Invalid, errAt(lv.LValuePos(), "internal: unhandled lvalue %T", lv)
	}
}

func (r *Resolver) resolveArrayAccess(name string, suffix token.Suffix, indices []ast.Expr, pos token.Position, class StorageClass) (types.Type, error) {
	key := keyOf(name, suffix)
	v, ok := r.scope.Vars[key]
	if !ok {
		return types.Invalid, errAt(pos, "array %s used before DIM", name)
	}
	if !v.IsArray {
		return types.Invalid, errAt(pos, "%s is not an array", name)
	}
	if len(indices) != v.Dims {
		return types.Invalid, errAt(pos, "%s expects %d subscript(s), got %d", name, v.Dims, len(indices))
	}
	for i, idx := range indices {
		e, err := r.resolveNumericExpr(idx, class)
		if err != nil {
			return types.Invalid, err
		}
		indices[i] = coerce(e, types.Long)
	}
	return v.Type, nil
}

func (r *Resolver) resolveCallArgs(name string, args []ast.Expr, pos token.Position, class StorageClass) error {
	sig, ok := r.table.Procs[strings.ToUpper(name)]
	if !ok {
		return errAt(pos, "undefined procedure %s", name)
	}
	if len(args) != len(sig.Params) {
		return errAt(pos, "%s expects %d argument(s), got %d", name, len(sig.Params), len(args))
	}
	for i, a := range args {
		e, err := r.resolveExpr(a, class)
		if err != nil {
			return err
		}
		pt := sig.Params[i].Type
		if pt == types.String || e.ExprType() == types.String {
			if e.ExprType() != pt {
				return errAt(a.ExprPos(), "argument %d to %s: cannot pass %s where %s expected", i+1, name, e.ExprType(), pt)
			}
			args[i] = e
		} else {
			args[i] = coerce(e, pt)
		}
	}
	return nil
}

// resolveNumericExpr resolves e and requires a numeric result.
func (r *Resolver) resolveNumericExpr(e ast.Expr, class StorageClass) (ast.Expr, error) {
	resolved, err := r.resolveExpr(e, class)
	if err != nil {
		return nil, err
	}
	if !resolved.ExprType().IsNumeric() {
		return nil, errAt(resolved.ExprPos(), "expected a numeric expression, got %s", resolved.ExprType())
	}
	return resolved, nil
}

func coerce(e ast.Expr, target types.Type) ast.Expr {
	if e.ExprType() == target {
		return e
	}
	return ast.NewCoerce(e, target)
}

// resolveExpr type-checks e and every subexpression, inserting Coerce
// nodes at implicit numeric conversions, and returns the (possibly
// rewritten) expression to install in the parent.
func (r *Resolver) resolveExpr(e ast.Expr, class StorageClass) (ast.Expr, error) {
	switch n := e.(type) {
	case *ast.NumLit:
		t := n.Value.Declared
		if t == types.Invalid {
			t = naturalLitType(n.Value)
		}
		ast.SetType(n, t)
		return n, nil

	case *ast.StrLit:
		ast.SetType(n, types.String)
		return n, nil

	case *ast.Var:
		key := keyOf(n.Name, n.Suffix)
		if v, ok := r.scope.Vars[key]; ok {
			if v.IsArray {
				return nil, errAt(n.Pos, "%s is an array; use a subscript", n.Name)
			}
			ast.SetType(n, v.Type)
			return n, nil
		}
		v := r.scope.declare(key, types.FromSuffix(n.Suffix), class)
		ast.SetType(n, v.Type)
		return n, nil

	case *ast.ArrayRef:
		elem, err := r.resolveArrayAccess(n.Name, n.Suffix, n.Indices, n.Pos, class)
		if err != nil {
			return nil, err
		}
		ast.SetType(n, elem)
		return n, nil

	case *ast.Call:
		return r.resolveCallExpr(n, class)

	case *ast.BuiltinCall:
		return r.resolveBuiltin(n, class)

	case *ast.Unary:
		x, err := r.resolveExpr(n.X, class)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case ast.OpNot:
			n.X = coerce(x, types.Integer)
			ast.SetType(n, types.Integer)
		case ast.OpNeg, ast.OpPos:
			if !x.ExprType().IsNumeric() {
				return nil, errAt(n.Pos, "unary %s requires a numeric operand", unaryOpName(n.Op))
			}
			n.X = x
			ast.SetType(n, x.ExprType())
		}
		return n, nil

	case *ast.Binary:
		return r.resolveBinary(n, class)

	case *ast.Coerce:
		x, err := r.resolveExpr(n.X, class)
		if err != nil {
			return nil, err
		}
		n.X = x
		return n, nil

	default:
		return nil, errAt(e.ExprPos(), "internal: unhandled expression %T", e)
	}
}

func unaryOpName(op ast.UnaryOp) string {
	switch op {
	case ast.OpNeg:
		return "-"
	case ast.OpPos:
		return "+"
	default:
		return "NOT"
	}
}

// naturalLitType assigns the default type of an unsuffixed literal:
// an integer literal that fits in 16 bits is Integer, one that fits in
// 32 bits is Long, and anything bigger (or any fractional literal) is
// Double — the unsuffixed-numeric-defaults-to-Double rule of §3.3,
// specialized for literals so small whole numbers still generate
// 16-bit immediates instead of always paying for a Double.
func naturalLitType(lit ast.Literal) types.Type {
	if lit.Kind == ast.LitString {
		return types.String
	}
	if lit.Kind == ast.LitFloat {
		return types.Double
	}
	switch {
	case lit.Int >= -32768 && lit.Int <= 32767:
		return types.Integer
	case lit.Int >= -2147483648 && lit.Int <= 2147483647:
		return types.Long
	default:
		return types.Double
	}
}

func (r *Resolver) resolveCallExpr(n *ast.Call, class StorageClass) (ast.Expr, error) {
	key := keyOf(n.Name, token.NoSuffix)
	if v, ok := r.scope.Vars[key]; ok && v.IsArray {
		elem, err := r.resolveArrayAccess(n.Name, token.NoSuffix, n.Args, n.Pos, class)
		if err != nil {
			return nil, err
		}
		ref := ast.NewArrayRef(n.Pos, n.Name, token.NoSuffix, n.Args)
		ast.SetType(ref, elem)
		return ref, nil
	}

	sig, ok := r.table.Procs[strings.ToUpper(n.Name)]
	if !ok {
		return nil, errAt(n.Pos, "undefined function or array %s", n.Name)
	}
	if sig.Kind != ast.FunctionProc {
		return nil, errAt(n.Pos, "%s is a SUB and cannot be used in an expression", n.Name)
	}
	if err := r.resolveCallArgs(n.Name, n.Args, n.Pos, class); err != nil {
		return nil, err
	}
	ast.SetType(n, sig.ReturnType)
	return n, nil
}

func (r *Resolver) resolveBinary(n *ast.Binary, class StorageClass) (ast.Expr, error) {
	l, err := r.resolveExpr(n.L, class)
	if err != nil {
		return nil, err
	}
	rr, err := r.resolveExpr(n.R, class)
	if err != nil {
		return nil, err
	}
	lt, rt := l.ExprType(), rr.ExprType()

	switch n.Op {
	case ast.OpAdd:
		if lt == types.String && rt == types.String {
			n.L, n.R = l, rr
			ast.SetType(n, types.String)
			return n, nil
		}
		if lt == types.String || rt == types.String {
			return nil, errAt(n.Pos, "cannot mix string and numeric operands")
		}
		j := types.Join(lt, rt)
		n.L, n.R = coerce(l, j), coerce(rr, j)
		ast.SetType(n, j)
		return n, nil

	case ast.OpSub, ast.OpMul:
		if lt == types.String || rt == types.String {
			return nil, errAt(n.Pos, "operator requires numeric operands")
		}
		j := types.Join(lt, rt)
		n.L, n.R = coerce(l, j), coerce(rr, j)
		ast.SetType(n, j)
		return n, nil

	case ast.OpDiv, ast.OpPow:
		if lt == types.String || rt == types.String {
			return nil, errAt(n.Pos, "operator requires numeric operands")
		}
		n.L, n.R = coerce(l, types.Double), coerce(rr, types.Double)
		ast.SetType(n, types.Double)
		return n, nil

	case ast.OpIDiv, ast.OpMod:
		if lt == types.String || rt == types.String {
			return nil, errAt(n.Pos, "operator requires numeric operands")
		}
		n.L, n.R = coerce(l, types.Long), coerce(rr, types.Long)
		ast.SetType(n, types.Long)
		return n, nil

	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		if lt == types.String && rt == types.String {
			n.L, n.R = l, rr
		} else if lt != types.String && rt != types.String {
			j := types.Join(lt, rt)
			n.L, n.R = coerce(l, j), coerce(rr, j)
		} else {
			return nil, errAt(n.Pos, "cannot compare string with numeric")
		}
		ast.SetType(n, types.Long)
		return n, nil

	case ast.OpAnd, ast.OpOr, ast.OpXor:
		if lt == types.String || rt == types.String {
			return nil, errAt(n.Pos, "logical operator requires numeric operands")
		}
		n.L, n.R = coerce(l, types.Integer), coerce(rr, types.Integer)
		ast.SetType(n, types.Integer)
		return n, nil

	default:
		return nil, errAt(n.Pos, "internal: unhandled binary operator")
	}
}

// resolveBuiltin type-checks a fixed builtin's arguments and fixes its
// result type. Argument coercions follow the same numeric/string rules
// as everywhere else; a handful of builtins (CINT/CLNG/CSNG/CDBL) are
// themselves the conversion, so they take any numeric argument without
// an inserted Coerce.
func (r *Resolver) resolveBuiltin(n *ast.BuiltinCall, class StorageClass) (ast.Expr, error) {
	for i, a := range n.Args {
		e, err := r.resolveExpr(a, class)
		if err != nil {
			return nil, err
		}
		n.Args[i] = e
	}

	numArg := func(i int) (ast.Expr, error) {
		if i >= len(n.Args) {
			return nil, errAt(n.Pos, "%s: missing argument %d", n.Name, i+1)
		}
		if !n.Args[i].ExprType().IsNumeric() {
			return nil, errAt(n.Pos, "%s: argument %d must be numeric", n.Name, i+1)
		}
		return n.Args[i], nil
	}
	strArg := func(i int) (ast.Expr, error) {
		if i >= len(n.Args) {
			return nil, errAt(n.Pos, "%s: missing argument %d", n.Name, i+1)
		}
		if n.Args[i].ExprType() != types.String {
			return nil, errAt(n.Pos, "%s: argument %d must be a string", n.Name, i+1)
		}
		return n.Args[i], nil
	}

	switch n.ID {
	case ast.BuiltinAbs:
		a, err := numArg(0)
		if err != nil {
			return nil, err
		}
		ast.SetType(n, a.ExprType())

	case ast.BuiltinSgn, ast.BuiltinCInt:
		if _, err := numArg(0); err != nil {
			return nil, err
		}
		ast.SetType(n, types.Integer)

	case ast.BuiltinCLng:
		if _, err := numArg(0); err != nil {
			return nil, err
		}
		ast.SetType(n, types.Long)

	case ast.BuiltinCSng:
		if _, err := numArg(0); err != nil {
			return nil, err
		}
		ast.SetType(n, types.Single)

	case ast.BuiltinSqr, ast.BuiltinSin, ast.BuiltinCos, ast.BuiltinTan,
		ast.BuiltinAtn, ast.BuiltinExp, ast.BuiltinLog, ast.BuiltinCDbl,
		ast.BuiltinVal:
		if n.ID == ast.BuiltinVal {
			if _, err := strArg(0); err != nil {
				return nil, err
			}
		} else {
			a, err := numArg(0)
			if err != nil {
				return nil, err
			}
			n.Args[0] = coerce(a, types.Double)
		}
		ast.SetType(n, types.Double)

	case ast.BuiltinInt, ast.BuiltinFix:
		a, err := numArg(0)
		if err != nil {
			return nil, err
		}
		ast.SetType(n, a.ExprType())

	case ast.BuiltinLen, ast.BuiltinAsc:
		if _, err := strArg(0); err != nil {
			return nil, err
		}
		ast.SetType(n, types.Integer)

	case ast.BuiltinStr:
		a, err := numArg(0)
		if err != nil {
			return nil, err
		}
		n.Args[0] = coerce(a, types.Double)
		ast.SetType(n, types.String)

	case ast.BuiltinChr:
		a, err := numArg(0)
		if err != nil {
			return nil, err
		}
		n.Args[0] = coerce(a, types.Integer)
		ast.SetType(n, types.String)

	case ast.BuiltinUCase, ast.BuiltinLCase:
		if _, err := strArg(0); err != nil {
			return nil, err
		}
		ast.SetType(n, types.String)

	case ast.BuiltinLeft, ast.BuiltinRight:
		if _, err := strArg(0); err != nil {
			return nil, err
		}
		a, err := numArg(1)
		if err != nil {
			return nil, err
		}
		n.Args[1] = coerce(a, types.Long)
		ast.SetType(n, types.String)

	case ast.BuiltinMid:
		if _, err := strArg(0); err != nil {
			return nil, err
		}
		a, err := numArg(1)
		if err != nil {
			return nil, err
		}
		n.Args[1] = coerce(a, types.Long)
		if len(n.Args) > 2 {
			b, err := numArg(2)
			if err != nil {
				return nil, err
			}
			n.Args[2] = coerce(b, types.Long)
		}
		ast.SetType(n, types.String)

	case ast.BuiltinInstr:
		if len(n.Args) == 3 {
			a, err := numArg(0)
			if err != nil {
				return nil, err
			}
			n.Args[0] = coerce(a, types.Long)
			if _, err := strArg(1); err != nil {
				return nil, err
			}
			if _, err := strArg(2); err != nil {
				return nil, err
			}
		} else {
			if _, err := strArg(0); err != nil {
				return nil, err
			}
			if _, err := strArg(1); err != nil {
				return nil, err
			}
		}
		ast.SetType(n, types.Integer)

	case ast.BuiltinSpace:
		a, err := numArg(0)
		if err != nil {
			return nil, err
		}
		n.Args[0] = coerce(a, types.Long)
		ast.SetType(n, types.String)

	case ast.BuiltinString:
		a, err := numArg(0)
		if err != nil {
			return nil, err
		}
		n.Args[0] = coerce(a, types.Long)
		if len(n.Args) > 1 && n.Args[1].ExprType() != types.String {
			b, err := numArg(1)
			if err != nil {
				return nil, err
			}
			n.Args[1] = coerce(b, types.Integer)
		}
		ast.SetType(n, types.String)

	case ast.BuiltinRnd:
		if len(n.Args) > 0 {
			a, err := numArg(0)
			if err != nil {
				return nil, err
			}
			n.Args[0] = coerce(a, types.Double)
		}
		ast.SetType(n, types.Single)

	case ast.BuiltinTimer:
		ast.SetType(n, types.Double)

	default:
		return nil, errAt(n.Pos, "internal: unhandled builtin %s", n.Name)
	}
	return n, nil
}
