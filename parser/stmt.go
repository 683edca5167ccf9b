package parser

import (
	"strconv"
	"strings"

	"qbx/ast"
	"qbx/token"
	"qbx/types"
)

// parseStatement parses exactly one unlabeled statement.
func (p *Parser) parseStatement() (ast.Statement, error) {
	pos := p.cur.Pos
	switch p.cur.Kind {
	case token.LET:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return p.parseAssign(pos)
	case token.PRINT:
		return p.parsePrint()
	case token.INPUT:
		return p.parseInput()
	case token.LINE:
		return p.parseLineInput()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDo()
	case token.GOTO:
		return p.parseGoto()
	case token.GOSUB:
		return p.parseGosub()
	case token.RETURN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ReturnStmt{Pos: pos}, nil
	case token.ON:
		return p.parseOnGoto()
	case token.DIM:
		return p.parseDim()
	case token.DATA:
		return p.parseData()
	case token.READ:
		return p.parseRead()
	case token.RESTORE:
		return p.parseRestore()
	case token.SELECT:
		return p.parseSelectCase()
	case token.OPEN:
		return p.parseOpen()
	case token.CLOSE:
		return p.parseClose()
	case token.CLS:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.ClsStmt{Pos: pos}, nil
	case token.END:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.EndStmt{Pos: pos}, nil
	case token.STOP:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.StopStmt{Pos: pos}, nil
	case token.SWAP:
		return p.parseSwap()
	case token.RANDOMIZE:
		return p.parseRandomize()
	case token.Ident:
		return p.parseIdentStatement(pos)
	default:
		return nil, &Error{Expected: "statement", Found: p.cur, Pos: pos}
	}
}

// parseIdentStatement handles the two statement forms that start with
// a bare identifier: assignment (X = expr) and a SUB call without
// parentheses (Name arg, arg) or with them (Name(arg, arg)).
func (p *Parser) parseIdentStatement(pos token.Position) (ast.Statement, error) {
	name := p.cur.Text
	suffix := p.cur.Suffix
	if err := p.advance(); err != nil {
		return nil, err
	}

	// Array element assignment: Name(idx, idx) = expr
	if p.at(token.LParen) {
		indices, err := p.parseIndexList()
		if err != nil {
			return nil, err
		}
		if p.at(token.Eq) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			val, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			return &ast.AssignStmt{
				Target: &ast.ArrayLValue{Name: name, Suffix: suffix, Indices: indices, Pos: pos},
				Value:  val,
				Pos:    pos,
			}, nil
		}
		// Parenthesized argument list to a SUB call: Name(a, b)
		return &ast.SubCallStmt{Name: name, Args: indices, Pos: pos}, nil
	}

	if p.at(token.Eq) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{
			Target: &ast.ScalarLValue{Name: name, Suffix: suffix, Pos: pos},
			Value:  val,
			Pos:    pos,
		}, nil
	}

	// SUB call without parentheses: Name arg, arg, ...
	var args []ast.Expr
	if !p.atStatementEnd() {
		for {
			arg, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.at(token.Comma) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	return &ast.SubCallStmt{Name: name, Args: args, Pos: pos}, nil
}

func (p *Parser) parseAssign(pos token.Position) (ast.Statement, error) {
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if p.at(token.LParen) {
		indices, err := p.parseIndexList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.Eq); err != nil {
			return nil, err
		}
		val, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		return &ast.AssignStmt{
			Target: &ast.ArrayLValue{Name: nameTok.Text, Suffix: nameTok.Suffix, Indices: indices, Pos: pos},
			Value:  val,
			Pos:    pos,
		}, nil
	}
	if _, err := p.expect(token.Eq); err != nil {
		return nil, err
	}
	val, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	return &ast.AssignStmt{
		Target: &ast.ScalarLValue{Name: nameTok.Text, Suffix: nameTok.Suffix, Pos: pos},
		Value:  val,
		Pos:    pos,
	}, nil
}

// atStatementEnd reports whether the cursor sits on a token that can
// never start an expression: the statement is over.
func (p *Parser) atStatementEnd() bool {
	switch p.cur.Kind {
	case token.Newline, token.Colon, token.EOF,
		token.ELSE, token.ELSEIF, token.ENDIF, token.NEXT, token.WEND, token.LOOP,
		token.ENDSELECT, token.CASE, token.ENDSUB, token.ENDFUNCTION:
		return true
	default:
		return false
	}
}

func (p *Parser) parseIndexList() ([]ast.Expr, error) {
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	var exprs []ast.Expr
	for !p.at(token.RParen) {
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	return exprs, nil
}

func (p *Parser) parseLValue() (ast.LValue, error) {
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if p.at(token.LParen) {
		indices, err := p.parseIndexList()
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLValue{Name: nameTok.Text, Suffix: nameTok.Suffix, Indices: indices, Pos: nameTok.Pos}, nil
	}
	return &ast.ScalarLValue{Name: nameTok.Text, Suffix: nameTok.Suffix, Pos: nameTok.Pos}, nil
}

func (p *Parser) parseLValueList() ([]ast.LValue, error) {
	var lvs []ast.LValue
	for {
		lv, err := p.parseLValue()
		if err != nil {
			return nil, err
		}
		lvs = append(lvs, lv)
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		return lvs, nil
	}
}

// parsePrintItems parses a ;/,-separated list of expressions, stopping
// at end of statement, and records the separator that followed each
// item (§4.4 PRINT lowering needs to know whether the statement ends
// with a trailing ;/, to suppress the newline).
func (p *Parser) parsePrintItems() ([]ast.PrintItem, error) {
	var items []ast.PrintItem
	for !p.atStatementEnd() {
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		sep := ast.SepNone
		switch p.cur.Kind {
		case token.Semicolon:
			sep = ast.SepSemi
			if err := p.advance(); err != nil {
				return nil, err
			}
		case token.Comma:
			sep = ast.SepComma
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		items = append(items, ast.PrintItem{Expr: e, Sep: sep})
		if sep == ast.SepNone {
			break
		}
	}
	return items, nil
}

func (p *Parser) parseFileNumber() (int, error) {
	if _, err := p.expect(token.Hash); err != nil {
		return 0, err
	}
	return p.parseIntLiteralValue()
}

func (p *Parser) parseIntLiteralValue() (int, error) {
	t, err := p.expect(token.IntLit)
	if err != nil {
		return 0, err
	}
	return int(t.Int), nil
}

func (p *Parser) parsePrint() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.at(token.Hash) {
		fileno, err := p.parseFileNumber()
		if err != nil {
			return nil, err
		}
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		items, err := p.parsePrintItems()
		if err != nil {
			return nil, err
		}
		return &ast.FilePrintStmt{FileNo: fileno, Items: items, Pos: pos}, nil
	}
	items, err := p.parsePrintItems()
	if err != nil {
		return nil, err
	}
	return &ast.PrintStmt{Items: items, Pos: pos}, nil
}

func (p *Parser) parseInput() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.at(token.Hash) {
		fileno, err := p.parseFileNumber()
		if err != nil {
			return nil, err
		}
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		targets, err := p.parseLValueList()
		if err != nil {
			return nil, err
		}
		return &ast.FileInputStmt{FileNo: fileno, Targets: targets, Pos: pos}, nil
	}

	stmt := &ast.InputStmt{Pos: pos}
	if p.at(token.StrLit) {
		stmt.Prompt = p.cur.Text
		stmt.HasProm = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(token.Semicolon) || p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	targets, err := p.parseLValueList()
	if err != nil {
		return nil, err
	}
	stmt.Targets = targets
	return stmt, nil
}

func (p *Parser) parseLineInput() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil { // consume LINE
		return nil, err
	}
	if _, err := p.expect(token.INPUT); err != nil {
		return nil, err
	}
	if p.at(token.Hash) {
		fileno, err := p.parseFileNumber()
		if err != nil {
			return nil, err
		}
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		target, err := p.parseLValue()
		if err != nil {
			return nil, err
		}
		return &ast.FileInputStmt{FileNo: fileno, Targets: []ast.LValue{target}, LineMode: true, Pos: pos}, nil
	}
	stmt := &ast.LineInputStmt{Pos: pos}
	if p.at(token.StrLit) {
		stmt.Prompt = p.cur.Text
		stmt.HasProm = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(token.Semicolon) || p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	target, err := p.parseLValue()
	if err != nil {
		return nil, err
	}
	stmt.Target = target
	return stmt, nil
}

// parseIf distinguishes single-line from block IF by whether a
// statement follows THEN on the same logical line (§4.2).
func (p *Parser) parseIf() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.THEN); err != nil {
		return nil, err
	}

	if p.at(token.Newline) || p.at(token.EOF) {
		return p.parseBlockIf(pos, cond)
	}
	return p.parseSingleLineIf(pos, cond)
}

func (p *Parser) parseBlockIf(pos token.Position, cond ast.Expr) (ast.Statement, error) {
	stmt := &ast.IfStmt{Cond: cond, Pos: pos}
	body, err := p.parseBlock(token.ELSEIF, token.ELSE, token.ENDIF)
	if err != nil {
		return nil, err
	}
	stmt.Then = body

	for p.at(token.ELSEIF) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		c, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.THEN); err != nil {
			return nil, err
		}
		b, err := p.parseBlock(token.ELSEIF, token.ELSE, token.ENDIF)
		if err != nil {
			return nil, err
		}
		stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIfArm{Cond: c, Then: b})
	}

	if p.at(token.ELSE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		b, err := p.parseBlock(token.ENDIF)
		if err != nil {
			return nil, err
		}
		stmt.Else = b
	}

	if _, err := p.expect(token.ENDIF); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseSingleLineIf(pos token.Position, cond ast.Expr) (ast.Statement, error) {
	thenStmt, err := p.parseColonList(token.ELSE)
	if err != nil {
		return nil, err
	}
	stmt := &ast.SingleLineIfStmt{Cond: cond, Then: thenStmt, Pos: pos}
	if p.at(token.ELSE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseStmt, err := p.parseColonList()
		if err != nil {
			return nil, err
		}
		stmt.Else = elseStmt
	}
	return stmt, nil
}

// parseColonList parses one or more colon-separated statements on the
// current logical line, stopping at terminators, Newline, or EOF, and
// collapses them into a single Statement (a BlockStmt if more than
// one).
func (p *Parser) parseColonList(terminators ...token.Kind) (ast.Statement, error) {
	pos := p.cur.Pos
	term := make(map[token.Kind]bool, len(terminators))
	for _, t := range terminators {
		term[t] = true
	}
	var stmts []ast.Statement
	for {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if p.at(token.Colon) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.at(token.Newline) || p.at(token.EOF) || term[p.cur.Kind] {
				break
			}
			continue
		}
		break
	}
	if len(stmts) == 1 {
		return stmts[0], nil
	}
	return &ast.BlockStmt{Stmts: stmts, Pos: pos}, nil
}

func (p *Parser) parseFor() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	varTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Eq); err != nil {
		return nil, err
	}
	start, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.TO); err != nil {
		return nil, err
	}
	end, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	var step ast.Expr
	if p.at(token.STEP) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		step, err = p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
	}
	body, err := p.parseBlock(token.NEXT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.NEXT); err != nil {
		return nil, err
	}
	// NEXT [var] — if present, must match the loop variable (§4.2).
	if p.at(token.Ident) {
		if !strings.EqualFold(p.cur.Text, varTok.Text) {
			return nil, &Error{Expected: "NEXT " + varTok.Text, Found: p.cur, Pos: p.cur.Pos}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &ast.ForStmt{
		Var:   &ast.ScalarLValue{Name: varTok.Text, Suffix: varTok.Suffix, Pos: varTok.Pos},
		Start: start, End: end, Step: step, Body: body, Pos: pos,
	}, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock(token.WEND)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.WEND); err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body, Pos: pos}, nil
}

func (p *Parser) parseDo() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	stmt := &ast.DoStmt{Pos: pos}
	switch p.cur.Kind {
	case token.WHILE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Kind, stmt.Cond = ast.DoPreWhile, cond
	case token.UNTIL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Kind, stmt.Cond = ast.DoPreUntil, cond
	default:
		stmt.Kind = ast.DoPlain
	}
	body, err := p.parseBlock(token.LOOP)
	if err != nil {
		return nil, err
	}
	stmt.Body = body
	if _, err := p.expect(token.LOOP); err != nil {
		return nil, err
	}
	if stmt.Kind == ast.DoPlain {
		switch p.cur.Kind {
		case token.WHILE:
			if err := p.advance(); err != nil {
				return nil, err
			}
			cond, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			stmt.Kind, stmt.Cond = ast.DoPostWhile, cond
		case token.UNTIL:
			if err := p.advance(); err != nil {
				return nil, err
			}
			cond, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			stmt.Kind, stmt.Cond = ast.DoPostUntil, cond
		}
	}
	return stmt, nil
}

func (p *Parser) parseLabelName() (string, error) {
	switch p.cur.Kind {
	case token.IntLit:
		t := p.cur
		if err := p.advance(); err != nil {
			return "", err
		}
		return strconv.FormatInt(t.Int, 10), nil
	case token.Ident:
		t := p.cur
		if err := p.advance(); err != nil {
			return "", err
		}
		return t.Text, nil
	default:
		return "", &Error{Expected: "label", Found: p.cur, Pos: p.cur.Pos}
	}
}

func (p *Parser) parseGoto() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	lbl, err := p.parseLabelName()
	if err != nil {
		return nil, err
	}
	return &ast.GotoStmt{Label: lbl, Pos: pos}, nil
}

func (p *Parser) parseGosub() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	lbl, err := p.parseLabelName()
	if err != nil {
		return nil, err
	}
	return &ast.GosubStmt{Label: lbl, Pos: pos}, nil
}

func (p *Parser) parseOnGoto() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	sel, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	isGosub := false
	switch p.cur.Kind {
	case token.GOTO:
	case token.GOSUB:
		isGosub = true
	default:
		return nil, &Error{Expected: "GOTO or GOSUB", Found: p.cur, Pos: p.cur.Pos}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	var labels []string
	for {
		lbl, err := p.parseLabelName()
		if err != nil {
			return nil, err
		}
		labels = append(labels, lbl)
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &ast.OnGotoStmt{Selector: sel, Labels: labels, IsGosub: isGosub, Pos: pos}, nil
}

func (p *Parser) parseDim() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	var decls []ast.ArrayDecl
	for {
		nameTok, err := p.expect(token.Ident)
		if err != nil {
			return nil, err
		}
		dims, err := p.parseIndexList()
		if err != nil {
			return nil, err
		}
		decls = append(decls, ast.ArrayDecl{Name: nameTok.Text, Suffix: nameTok.Suffix, Dims: dims, Pos: nameTok.Pos})
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return &ast.DimStmt{Arrays: decls, Pos: pos}, nil
}

// parseData parses DATA literals and merges them into p.prog.Data; the
// DataStmt node itself is elided from the executable sequence (§4.2).
func (p *Parser) parseData() (ast.Statement, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	for {
		lit, err := p.parseDataLiteral()
		if err != nil {
			return nil, err
		}
		p.prog.Data = append(p.prog.Data, lit)
		if p.at(token.Comma) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return nil, nil
}

func (p *Parser) parseDataLiteral() (ast.Literal, error) {
	neg := false
	if p.at(token.Minus) {
		neg = true
		if err := p.advance(); err != nil {
			return ast.Literal{}, err
		}
	}
	switch p.cur.Kind {
	case token.IntLit:
		v, suf := p.cur.Int, p.cur.Suffix
		if err := p.advance(); err != nil {
			return ast.Literal{}, err
		}
		if neg {
			v = -v
		}
		declared := types.Invalid
		if suf != token.NoSuffix {
			declared = types.FromSuffix(suf)
		}
		return ast.Literal{Kind: ast.LitInt, Int: v, Declared: declared}, nil
	case token.FloatLit:
		v, suf := p.cur.Float, p.cur.Suffix
		if err := p.advance(); err != nil {
			return ast.Literal{}, err
		}
		if neg {
			v = -v
		}
		declared := types.Invalid
		if suf != token.NoSuffix {
			declared = types.FromSuffix(suf)
		}
		return ast.Literal{Kind: ast.LitFloat, Float: v, Declared: declared}, nil
	case token.StrLit:
		s := p.cur.Text
		if err := p.advance(); err != nil {
			return ast.Literal{}, err
		}
		return ast.Literal{Kind: ast.LitString, Str: s}, nil
	case token.Ident:
		// A bare word in a DATA list (unquoted string) is legal BASIC;
		// capture its raw spelling as a string literal.
		s := p.cur.Text
		if err := p.advance(); err != nil {
			return ast.Literal{}, err
		}
		return ast.Literal{Kind: ast.LitString, Str: s}, nil
	default:
		return ast.Literal{}, &Error{Expected: "DATA literal", Found: p.cur, Pos: p.cur.Pos}
	}
}

func (p *Parser) parseRead() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	targets, err := p.parseLValueList()
	if err != nil {
		return nil, err
	}
	return &ast.ReadStmt{Targets: targets, Pos: pos}, nil
}

func (p *Parser) parseRestore() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	stmt := &ast.RestoreStmt{Pos: pos}
	if p.at(token.Ident) || p.at(token.IntLit) {
		lbl, err := p.parseLabelName()
		if err != nil {
			return nil, err
		}
		stmt.Label, stmt.HasLbl = lbl, true
	}
	return stmt, nil
}

func (p *Parser) parseSelectCase() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil { // SELECT
		return nil, err
	}
	if _, err := p.expect(token.CASE); err != nil {
		return nil, err
	}
	scrutinee, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	stmt := &ast.SelectCaseStmt{Scrutinee: scrutinee, Pos: pos}
	if err := p.skipSeparators(); err != nil {
		return nil, err
	}
	for p.at(token.CASE) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(token.ELSE) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			body, err := p.parseBlock(token.CASE, token.ENDSELECT)
			if err != nil {
				return nil, err
			}
			stmt.Default = body
			continue
		}
		var matchers []ast.CaseMatcher
		for {
			m, err := p.parseCaseMatcher()
			if err != nil {
				return nil, err
			}
			matchers = append(matchers, m)
			if p.at(token.Comma) {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
		body, err := p.parseBlock(token.CASE, token.ENDSELECT)
		if err != nil {
			return nil, err
		}
		stmt.Arms = append(stmt.Arms, ast.CaseArm{Matchers: matchers, Body: body})
	}
	if _, err := p.expect(token.ENDSELECT); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseCaseMatcher() (ast.CaseMatcher, error) {
	if p.at(token.IS) {
		if err := p.advance(); err != nil {
			return ast.CaseMatcher{}, err
		}
		op := p.cur.Kind
		switch op {
		case token.Eq, token.Ne, token.Lt, token.Gt, token.Le, token.Ge:
		default:
			return ast.CaseMatcher{}, &Error{Expected: "relational operator", Found: p.cur, Pos: p.cur.Pos}
		}
		if err := p.advance(); err != nil {
			return ast.CaseMatcher{}, err
		}
		rhs, err := p.parseExpr(precLowest)
		if err != nil {
			return ast.CaseMatcher{}, err
		}
		return ast.CaseMatcher{Kind: ast.MatchRelop, Op: op, Rhs: rhs}, nil
	}
	lo, err := p.parseExpr(precLowest)
	if err != nil {
		return ast.CaseMatcher{}, err
	}
	if p.at(token.TO) {
		if err := p.advance(); err != nil {
			return ast.CaseMatcher{}, err
		}
		hi, err := p.parseExpr(precLowest)
		if err != nil {
			return ast.CaseMatcher{}, err
		}
		return ast.CaseMatcher{Kind: ast.MatchRange, Lo: lo, Hi: hi}, nil
	}
	return ast.CaseMatcher{Kind: ast.MatchValue, Value: lo}, nil
}

func (p *Parser) parseOpen() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	path, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.FOR); err != nil {
		return nil, err
	}
	var mode ast.FileMode
	switch p.cur.Kind {
	case token.OUTPUT:
		mode = ast.ModeOutput
	case token.INPUT:
		mode = ast.ModeInput
	case token.APPEND:
		mode = ast.ModeAppend
	default:
		return nil, &Error{Expected: "OUTPUT, INPUT, or APPEND", Found: p.cur, Pos: p.cur.Pos}
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.AS); err != nil {
		return nil, err
	}
	fileno, err := p.parseFileNumber()
	if err != nil {
		return nil, err
	}
	return &ast.FileOpenStmt{Path: path, Mode: mode, FileNo: fileno, Pos: pos}, nil
}

func (p *Parser) parseClose() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	stmt := &ast.FileCloseStmt{Pos: pos}
	if p.at(token.Hash) {
		fileno, err := p.parseFileNumber()
		if err != nil {
			return nil, err
		}
		stmt.FileNo, stmt.HasFileNo = fileno, true
	}
	return stmt, nil
}

func (p *Parser) parseSwap() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	a, err := p.parseLValue()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.Comma); err != nil {
		return nil, err
	}
	b, err := p.parseLValue()
	if err != nil {
		return nil, err
	}
	return &ast.SwapStmt{A: a, B: b, Pos: pos}, nil
}

func (p *Parser) parseRandomize() (ast.Statement, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	stmt := &ast.RandomizeStmt{Pos: pos}
	if !p.atStatementEnd() {
		seed, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		stmt.Seed = seed
	}
	return stmt, nil
}
