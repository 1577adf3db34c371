// Package parser implements a hand-written recursive-descent parser
// for mini-C. It turns a token stream from internal/lexer into an
// unannotated *ast.Node tree; all type resolution, scoping and offset
// assignment happens later, in internal/semantic.
package parser

import (
	"fmt"

	"github.com/minic-lang/minicc/internal/ast"
	"github.com/minic-lang/minicc/internal/lexer"
)

// Parser consumes a fully buffered token stream and builds an AST.
type Parser struct {
	toks []lexer.Token
	pos  int
}

// Parse lexes src in full and parses it into a PROGRAM node.
func Parse(src string) (*ast.Node, error) {
	lx := lexer.New(src)
	var toks []lexer.Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == lexer.EOF {
			break
		}
	}
	p := &Parser{toks: toks}
	return p.parseProgram()
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) lexer.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k lexer.Kind) bool { return p.cur().Kind == k }

func (p *Parser) expect(k lexer.Kind, what string) (lexer.Token, error) {
	if !p.at(k) {
		return lexer.Token{}, fmt.Errorf("parse error at line %d: expected %s, got %q", p.cur().Line, what, p.cur().Text)
	}
	return p.advance(), nil
}

func isTypeToken(k lexer.Kind) bool {
	return k == lexer.KwInt || k == lexer.KwBool || k == lexer.KwVoid
}

func typeFromKind(k lexer.Kind) ast.Type {
	switch k {
	case lexer.KwInt:
		return ast.INT
	case lexer.KwBool:
		return ast.BOOL
	default:
		return ast.VOID
	}
}

// parseProgram parses a sequence of global declarations followed by the
// single "void main() { ... }" function, producing a PROGRAM node.
func (p *Parser) parseProgram() (*ast.Node, error) {
	globals, err := p.parseDeclList(true)
	if err != nil {
		return nil, err
	}

	fn, err := p.parseMainFunc()
	if err != nil {
		return nil, err
	}

	return ast.New(ast.PROGRAM, 1, globals, fn), nil
}

// parseMainFunc parses "void main ( ) block".
func (p *Parser) parseMainFunc() (*ast.Node, error) {
	line := p.cur().Line
	typTok, err := p.expect(lexer.KwVoid, "'void'")
	if err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	block, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	typ := ast.NewTypeToken(typTok.Line, ast.VOID)
	ident := ast.NewIdent(name.Line, name.Text)
	return ast.New(ast.FUNC, line, typ, ident, block), nil
}

// parseDeclList parses zero or more "type decl, decl, ...;" groups,
// stopping when the next tokens don't start a declaration (a "void
// main(" function header, or a closing brace). It returns nil if no
// declarations are present, a single DECLS node for exactly one group,
// or a right-leaning LIST chain of DECLS nodes for several.
func (p *Parser) parseDeclList(atGlobalScope bool) (*ast.Node, error) {
	var groups []*ast.Node
	for p.startsDecl(atGlobalScope) {
		g, err := p.parseDeclGroup()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return chainList(groups), nil
}

// startsDecl reports whether the upcoming tokens begin a declaration
// group rather than, at global scope, the "void main(" function header.
func (p *Parser) startsDecl(atGlobalScope bool) bool {
	if !isTypeToken(p.cur().Kind) {
		return false
	}
	if atGlobalScope && p.cur().Kind == lexer.KwVoid {
		return false
	}
	return true
}

// parseDeclGroup parses "type declarator (',' declarator)* ';'".
func (p *Parser) parseDeclGroup() (*ast.Node, error) {
	typTokLex := p.advance()
	typ := ast.NewTypeToken(typTokLex.Line, typeFromKind(typTokLex.Kind))

	var decls []*ast.Node
	for {
		d, err := p.parseDeclarator()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
		if !p.at(lexer.Comma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}

	return ast.New(ast.DECLS, typTokLex.Line, typ, chainList(decls)), nil
}

// parseDeclarator parses "IDENT ('=' expr)?".
func (p *Parser) parseDeclarator() (*ast.Node, error) {
	name, err := p.expect(lexer.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	ident := ast.NewIdent(name.Line, name.Text)
	if p.at(lexer.Assign) {
		p.advance()
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.DECL, name.Line, ident, init), nil
	}
	return ast.New(ast.DECL, name.Line, ident), nil
}

// chainList builds a right-leaning LIST chain over nodes, returning nil
// for an empty slice and the bare node for a single-element slice.
func chainList(nodes []*ast.Node) *ast.Node {
	if len(nodes) == 0 {
		return nil
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	line := nodes[0].Lineno
	return ast.New(ast.LIST, line, nodes[0], chainList(nodes[1:]))
}

// parseBlock parses "'{' declList stmtList '}'".
func (p *Parser) parseBlock() (*ast.Node, error) {
	lb, err := p.expect(lexer.LBrace, "'{'")
	if err != nil {
		return nil, err
	}
	decls, err := p.parseDeclList(false)
	if err != nil {
		return nil, err
	}
	stmts, err := p.parseStmtList()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return ast.New(ast.BLOCK, lb.Line, decls, stmts), nil
}

// parseStmtList parses statements until a closing brace.
func (p *Parser) parseStmtList() (*ast.Node, error) {
	var stmts []*ast.Node
	for !p.at(lexer.RBrace) && !p.at(lexer.EOF) {
		s, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return chainList(stmts), nil
}

func (p *Parser) parseStmt() (*ast.Node, error) {
	switch p.cur().Kind {
	case lexer.LBrace:
		return p.parseBlock()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwWhile:
		return p.parseWhile()
	case lexer.KwFor:
		return p.parseFor()
	case lexer.KwDo:
		return p.parseDoWhile()
	case lexer.KwPrint:
		return p.parsePrint()
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseIf() (*ast.Node, error) {
	line := p.advance().Line // 'if'
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	then, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.KwElse) {
		p.advance()
		els, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.IF, line, cond, then, els), nil
	}
	return ast.New(ast.IF, line, cond, then), nil
}

func (p *Parser) parseWhile() (*ast.Node, error) {
	line := p.advance().Line // 'while'
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	return ast.New(ast.WHILE, line, cond, body), nil
}

// parseFor parses "for ( exprOpt ; exprOpt ; exprOpt ) stmt"; init,
// cond and step may each be absent, e.g. the empty for(;;) loop.
func (p *Parser) parseFor() (*ast.Node, error) {
	line := p.advance().Line // 'for'
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}

	var init, cond, step *ast.Node
	var err error
	if !p.at(lexer.Semi) {
		init, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}

	if !p.at(lexer.Semi) {
		cond, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}

	if !p.at(lexer.RParen) {
		step, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}

	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	n := ast.New(ast.FOR, line, init, cond, step, body)
	n.Nops = 4
	return n, nil
}

// parseDoWhile parses "do stmt while ( expr ) ;" with a single
// condition expression, not a list.
func (p *Parser) parseDoWhile() (*ast.Node, error) {
	line := p.advance().Line // 'do'
	body, err := p.parseStmt()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwWhile, "'while'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return ast.New(ast.DOWHILE, line, body, cond), nil
}

// parsePrint parses "print ( arg (',' arg)* ) ;". Each arg is either a
// string literal or a general expression.
func (p *Parser) parsePrint() (*ast.Node, error) {
	line := p.advance().Line // 'print'
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}

	var args []*ast.Node
	for {
		var arg *ast.Node
		if p.at(lexer.STRINGLIT) {
			tok := p.advance()
			arg = ast.NewStringVal(tok.Line, tok.Text)
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			arg = e
		}
		args = append(args, arg)
		if !p.at(lexer.Comma) {
			break
		}
		p.advance()
	}

	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return ast.New(ast.PRINT, line, chainList(args)), nil
}

func (p *Parser) parseExprStmt() (*ast.Node, error) {
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semi, "';'"); err != nil {
		return nil, err
	}
	return e, nil
}

// parseExpr parses an assignment expression: any operand followed by
// '=' binds an AFFECT node, right-associatively; anything else falls
// through to the operator-precedence chain. The left-hand side is not
// restricted to an identifier here; pass 1 rejects other targets.
func (p *Parser) parseExpr() (*ast.Node, error) {
	lhs, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.Assign) {
		line := p.advance().Line
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.AFFECT, line, lhs, rhs), nil
	}
	return lhs, nil
}

func (p *Parser) parseLogicalOr() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseLogicalAnd, map[lexer.Kind]ast.Nature{lexer.OrOr: ast.OR})
}

func (p *Parser) parseLogicalAnd() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseBitOr, map[lexer.Kind]ast.Nature{lexer.AndAnd: ast.AND})
}

func (p *Parser) parseBitOr() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseBitXor, map[lexer.Kind]ast.Nature{lexer.Pipe: ast.BOR})
}

func (p *Parser) parseBitXor() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseBitAnd, map[lexer.Kind]ast.Nature{lexer.Caret: ast.BXOR})
}

func (p *Parser) parseBitAnd() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseEquality, map[lexer.Kind]ast.Nature{lexer.Amp: ast.BAND})
}

func (p *Parser) parseEquality() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseRelational, map[lexer.Kind]ast.Nature{
		lexer.EqEq: ast.EQ, lexer.NotEq: ast.NE,
	})
}

func (p *Parser) parseRelational() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseShift, map[lexer.Kind]ast.Nature{
		lexer.Lt: ast.LT, lexer.Gt: ast.GT, lexer.Le: ast.LE, lexer.Ge: ast.GE,
	})
}

// parseShift handles '<<' and '>>'. Per the language's operator table,
// '>>' always lexes to an arithmetic shift (SRA); there is no surface
// token for a logical right shift.
func (p *Parser) parseShift() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseAdditive, map[lexer.Kind]ast.Nature{
		lexer.Shl: ast.SLL, lexer.Shr: ast.SRA,
	})
}

func (p *Parser) parseAdditive() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseTerm, map[lexer.Kind]ast.Nature{
		lexer.Plus: ast.PLUS, lexer.Minus: ast.MINUS,
	})
}

func (p *Parser) parseTerm() (*ast.Node, error) {
	return p.parseBinaryLeft(p.parseUnary, map[lexer.Kind]ast.Nature{
		lexer.Star: ast.MUL, lexer.Slash: ast.DIV, lexer.Percent: ast.MOD,
	})
}

// parseBinaryLeft implements one left-associative precedence level:
// it parses one operand via next, then repeatedly consumes a matching
// operator and right operand, folding left.
func (p *Parser) parseBinaryLeft(next func() (*ast.Node, error), ops map[lexer.Kind]ast.Nature) (*ast.Node, error) {
	lhs, err := next()
	if err != nil {
		return nil, err
	}
	for {
		nature, ok := ops[p.cur().Kind]
		if !ok {
			return lhs, nil
		}
		line := p.advance().Line
		rhs, err := next()
		if err != nil {
			return nil, err
		}
		lhs = ast.New(nature, line, lhs, rhs)
	}
}

func (p *Parser) parseUnary() (*ast.Node, error) {
	switch p.cur().Kind {
	case lexer.Minus:
		line := p.advance().Line
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.UMINUS, line, operand), nil
	case lexer.Not:
		line := p.advance().Line
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.NOT, line, operand), nil
	case lexer.Tilde:
		line := p.advance().Line
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return ast.New(ast.BNOT, line, operand), nil
	default:
		return p.parsePrimary()
	}
}

func (p *Parser) parsePrimary() (*ast.Node, error) {
	tok := p.cur()
	switch tok.Kind {
	case lexer.INTLIT:
		p.advance()
		return ast.NewIntVal(tok.Line, tok.IntVal), nil
	case lexer.KwTrue:
		p.advance()
		return ast.NewBoolVal(tok.Line, true), nil
	case lexer.KwFalse:
		p.advance()
		return ast.NewBoolVal(tok.Line, false), nil
	case lexer.IDENT:
		p.advance()
		return ast.NewIdent(tok.Line, tok.Text), nil
	case lexer.LParen:
		p.advance()
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("parse error at line %d: unexpected token %q", tok.Line, tok.Text)
	}
}
