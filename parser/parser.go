// Package parser implements a recursive-descent parser for statements
// with a Pratt/precedence-climbing sub-parser for expressions,
// producing an ast.Program. The first error aborts parsing (§4.2).
package parser

import (
	"fmt"

	"qbx/ast"
	"qbx/lexer"
	"qbx/token"
	"qbx/types"
)

// Error is a parse error with the token that triggered it.
type Error struct {
	Expected string
	Found    token.Token
	Pos      token.Position
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: expected %s, found %s", e.Pos, e.Expected, e.Found)
}

// Parser consumes a token stream and builds an ast.Program. The zero
// value is not usable; construct with New.
type Parser struct {
	lex *lexer.Lexer
	cur token.Token

	prog *ast.Program
}

// New returns a Parser over src.
func New(src string) *Parser {
	return &Parser{lex: lexer.New(src)}
}

// Parse runs the parser to completion and returns the resulting
// ast.Program, or the first error encountered.
func Parse(src string) (*ast.Program, error) {
	p := New(src)
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	p.prog = &ast.Program{
		Main:           &ast.Procedure{Kind: ast.MainProc, Name: "__main"},
		DataLabelIndex: make(map[string]int),
	}

	for {
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		if p.at(token.EOF) {
			return p.prog, nil
		}
		switch p.cur.Kind {
		case token.SUB:
			proc, err := p.parseProcDef(ast.SubProc)
			if err != nil {
				return nil, err
			}
			p.prog.Procs = append(p.prog.Procs, proc)
		case token.FUNCTION:
			proc, err := p.parseProcDef(ast.FunctionProc)
			if err != nil {
				return nil, err
			}
			p.prog.Procs = append(p.prog.Procs, proc)
		default:
			stmt, err := p.parseStatementSlot()
			if err != nil {
				return nil, err
			}
			if stmt != nil {
				p.prog.Main.Body = append(p.prog.Main.Body, stmt)
			}
		}
	}
}

// advance pulls the next token from the lexer into p.cur.
func (p *Parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *Parser) at(k token.Kind) bool { return p.cur.Kind == k }

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if !p.at(k) {
		return token.Token{}, &Error{Expected: k.String(), Found: p.cur, Pos: p.cur.Pos}
	}
	t := p.cur
	if err := p.advance(); err != nil {
		return token.Token{}, err
	}
	return t, nil
}

// skipSeparators consumes any run of Newline/Colon tokens, which are
// interchangeable as statement boundaries at the top of a statement
// slot (a lone Colon starting a line happens after an empty statement).
func (p *Parser) skipSeparators() error {
	for p.at(token.Newline) || p.at(token.Colon) {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// recordDataLabel stamps the current DATA count under name, so a later
// RESTORE name resolves to "first DATA at or after this point" (§3.4).
func (p *Parser) recordDataLabel(name string) {
	if _, ok := p.prog.DataLabelIndex[name]; !ok {
		p.prog.DataLabelIndex[name] = len(p.prog.Data)
	}
}

// parseProcDef parses `SUB name(params) ... END SUB` or
// `FUNCTION name$(params) ... END FUNCTION`.
func (p *Parser) parseProcDef(kind ast.ProcKind) (*ast.Procedure, error) {
	pos := p.cur.Pos
	if err := p.advance(); err != nil { // consume SUB/FUNCTION
		return nil, err
	}
	nameTok, err := p.expect(token.Ident)
	if err != nil {
		return nil, err
	}
	proc := &ast.Procedure{Kind: kind, Name: nameTok.Text, Pos: pos}
	if kind == ast.FunctionProc {
		// A FUNCTION's return type is implied by its own name's suffix.
		proc.ReturnType = types.FromSuffix(nameTok.Suffix)
	}

	if p.at(token.LParen) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		for !p.at(token.RParen) {
			pt, err := p.expect(token.Ident)
			if err != nil {
				return nil, err
			}
			proc.Params = append(proc.Params, ast.Param{
				Name:   pt.Text,
				Suffix: pt.Suffix,
				Type:   types.FromSuffix(pt.Suffix),
				Pos:    pt.Pos,
			})
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
	}

	end := token.ENDSUB
	if kind == ast.FunctionProc {
		end = token.ENDFUNCTION
	}
	body, err := p.parseBlock(end)
	if err != nil {
		return nil, err
	}
	proc.Body = body
	if _, err := p.expect(end); err != nil {
		return nil, err
	}
	return proc, nil
}

// parseBlock parses statements until (but not consuming) a statement
// slot that starts with one of the terminator keywords, or EOF.
func (p *Parser) parseBlock(terminators ...token.Kind) ([]ast.Statement, error) {
	term := make(map[token.Kind]bool, len(terminators))
	for _, t := range terminators {
		term[t] = true
	}
	var stmts []ast.Statement
	for {
		if err := p.skipSeparators(); err != nil {
			return nil, err
		}
		if p.at(token.EOF) || term[p.cur.Kind] {
			return stmts, nil
		}
		stmt, err := p.parseStatementSlot()
		if err != nil {
			return nil, err
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
}

// parseStatementSlot recognizes an optional label prefix (a LineNum, or
// an Ident immediately followed by Colon) and wraps the statement that
// follows. DATA statements are collected into p.prog.Data and elided
// (return nil, nil) per §4.2.
func (p *Parser) parseStatementSlot() (ast.Statement, error) {
	if p.at(token.LineNum) {
		lbl := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		name := lbl.Text
		p.recordDataLabel(name)
		inner, err := p.parseStatementSlot()
		if err != nil {
			return nil, err
		}
		if inner == nil {
			return nil, nil
		}
		return &ast.LabelStmt{Name: name, LineNum: true, Inner: inner, Pos: lbl.Pos}, nil
	}

	if p.at(token.Ident) && p.cur.Suffix == token.NoSuffix {
		// Peek: is this "Ident :" (a label)? Labels never carry a type
		// suffix, so a suffixed identifier can never start a label and
		// is skipped straight to ordinary statement parsing. We cannot
		// un-read a token from the lexer, so snapshot the lexer state
		// before probing for the colon.
		snapshot := *p.lex
		identTok := p.cur
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.at(token.Colon) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			p.recordDataLabel(identTok.Text)
			// A label may stand alone on its line and mark the next one.
			if err := p.skipSeparators(); err != nil {
				return nil, err
			}
			inner, err := p.parseStatementSlot()
			if err != nil {
				return nil, err
			}
			if inner == nil {
				return nil, nil
			}
			return &ast.LabelStmt{Name: identTok.Text, Inner: inner, Pos: identTok.Pos}, nil
		}
		// Not a label: rewind and parse as an ordinary statement that
		// happens to start with this identifier.
		*p.lex = snapshot
		p.cur = identTok
	}

	return p.parseStatement()
}
