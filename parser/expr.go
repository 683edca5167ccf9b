package parser

import (
	"strings"

	"qbx/ast"
	"qbx/token"
	"qbx/types"
)

// Precedence levels per §4.2's table, lowest to highest:
//
//	OR, XOR  <  AND  <  unary NOT  <  relational  <  +, -  <  *, /, \, MOD  <  unary -, +  <  ^
//
// NOT is prefix-only so it cannot share the generic binary-climbing
// loop with AND/OR; it is parsed as its own level instead.
const precLowest = 0

// parseExpr is the expression entry point used throughout the
// statement parser. The minPrec parameter is reserved for future
// restricted contexts (none currently need anything but precLowest)
// and is presently ignored; every expression climbs the full table.
func (p *Parser) parseExpr(minPrec int) (ast.Expr, error) {
	return p.parseOr()
}

func (p *Parser) parseOr() (ast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR) || p.at(token.XOR) {
		op := ast.OpOr
		if p.at(token.XOR) {
			op = ast.OpXor
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(pos, op, left, right)
	}
	return left, nil
}

func (p *Parser) parseAnd() (ast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(pos, ast.OpAnd, left, right)
	}
	return left, nil
}

func (p *Parser) parseNot() (ast.Expr, error) {
	if p.at(token.NOT) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, ast.OpNot, x), nil
	}
	return p.parseCompare()
}

func relOp(k token.Kind) (ast.BinOp, bool) {
	switch k {
	case token.Eq:
		return ast.OpEq, true
	case token.Ne:
		return ast.OpNe, true
	case token.Lt:
		return ast.OpLt, true
	case token.Gt:
		return ast.OpGt, true
	case token.Le:
		return ast.OpLe, true
	case token.Ge:
		return ast.OpGe, true
	default:
		return 0, false
	}
}

func (p *Parser) parseCompare() (ast.Expr, error) {
	left, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	for {
		op, ok := relOp(p.cur.Kind)
		if !ok {
			return left, nil
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(pos, op, left, right)
	}
}

func (p *Parser) parseAdd() (ast.Expr, error) {
	left, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.at(token.Plus) || p.at(token.Minus) {
		op := ast.OpAdd
		if p.at(token.Minus) {
			op = ast.OpSub
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(pos, op, left, right)
	}
	return left, nil
}

func (p *Parser) parseMul() (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.BinOp
		switch p.cur.Kind {
		case token.Star:
			op = ast.OpMul
		case token.Slash:
			op = ast.OpDiv
		case token.Backslash:
			op = ast.OpIDiv
		case token.MOD:
			op = ast.OpMod
		default:
			return left, nil
		}
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(pos, op, left, right)
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	switch p.cur.Kind {
	case token.Minus:
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, ast.OpNeg, x), nil
	case token.Plus:
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.NewUnary(pos, ast.OpPos, x), nil
	default:
		return p.parsePow()
	}
}

// parsePow handles right-associative ^: the right operand recurses
// through parseUnary (so 2^-2^2 parses as 2^(-(2^2))), which in turn
// falls back into parsePow for any further ^ in the chain.
func (p *Parser) parsePow() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.at(token.Caret) {
		pos := p.cur.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = ast.NewBinary(pos, ast.OpPow, left, right)
	}
	return left, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur.Kind {
	case token.IntLit:
		t := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		declared := types.Invalid
		if t.Suffix != token.NoSuffix {
			declared = types.FromSuffix(t.Suffix)
		}
		return ast.NewNumLit(t.Pos, ast.Literal{Kind: ast.LitInt, Int: t.Int, Declared: declared}), nil
	case token.FloatLit:
		t := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		declared := types.Invalid
		if t.Suffix != token.NoSuffix {
			declared = types.FromSuffix(t.Suffix)
		}
		return ast.NewNumLit(t.Pos, ast.Literal{Kind: ast.LitFloat, Float: t.Float, Declared: declared}), nil
	case token.StrLit:
		t := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.NewStrLit(t.Pos, t.Text), nil
	case token.LParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return e, nil
	case token.Ident:
		return p.parseIdentExpr()
	default:
		return nil, &Error{Expected: "expression", Found: p.cur, Pos: p.cur.Pos}
	}
}

// parseIdentExpr parses a builtin call, a bare variable reference, or
// a Name(args) form — the last of which is ambiguous between a
// user-function call and an array element reference until the symbol
// resolver sees which declaration name binds to. The parser always
// produces a Call node for Name(args) and lets the resolver rewrite it
// to an ArrayRef where name denotes a DIM'd array (§4.3).
func (p *Parser) parseIdentExpr() (ast.Expr, error) {
	t := p.cur
	upper := strings.ToUpper(t.Text)
	if id, ok := builtinByName[upper]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		args, err := p.parseOptionalArgs()
		if err != nil {
			return nil, err
		}
		return ast.NewBuiltinCall(t.Pos, id, t.Text, args), nil
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.at(token.LParen) {
		args, err := p.parseIndexList()
		if err != nil {
			return nil, err
		}
		return ast.NewCall(t.Pos, t.Text, args), nil
	}
	return ast.NewVar(t.Pos, t.Text, t.Suffix), nil
}

func (p *Parser) parseOptionalArgs() ([]ast.Expr, error) {
	if !p.at(token.LParen) {
		return nil, nil
	}
	return p.parseIndexList()
}

// builtinByName maps the upper-cased, unsuffixed spelling of each
// fixed builtin to its ast.Builtin id (§9 Supplemented Features).
var builtinByName = map[string]ast.Builtin{
	"ABS":    ast.BuiltinAbs,
	"SGN":    ast.BuiltinSgn,
	"SQR":    ast.BuiltinSqr,
	"SIN":    ast.BuiltinSin,
	"COS":    ast.BuiltinCos,
	"TAN":    ast.BuiltinTan,
	"ATN":    ast.BuiltinAtn,
	"EXP":    ast.BuiltinExp,
	"LOG":    ast.BuiltinLog,
	"INT":    ast.BuiltinInt,
	"FIX":    ast.BuiltinFix,
	"CINT":   ast.BuiltinCInt,
	"CLNG":   ast.BuiltinCLng,
	"CSNG":   ast.BuiltinCSng,
	"CDBL":   ast.BuiltinCDbl,
	"LEN":    ast.BuiltinLen,
	"STR":    ast.BuiltinStr,
	"VAL":    ast.BuiltinVal,
	"CHR":    ast.BuiltinChr,
	"ASC":    ast.BuiltinAsc,
	"LEFT":   ast.BuiltinLeft,
	"RIGHT":  ast.BuiltinRight,
	"MID":    ast.BuiltinMid,
	"INSTR":  ast.BuiltinInstr,
	"UCASE":  ast.BuiltinUCase,
	"LCASE":  ast.BuiltinLCase,
	"SPACE":  ast.BuiltinSpace,
	"STRING": ast.BuiltinString,
	"RND":    ast.BuiltinRnd,
	"TIMER":  ast.BuiltinTimer,
}
