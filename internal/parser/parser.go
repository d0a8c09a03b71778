// Copyright (c) 2024 The Ferrite Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package parser turns a lexeme stream into a Program AST. Statements
// are driven by a recursive-descent dispatcher; expressions are parsed
// with an iterative shunting-yard precedence climb, recursing only for
// parenthesized groups and bracketed index expressions (see DESIGN.md
// for why that reads as a flat operator/operand stack pair rather than
// the fully general push-Open/pop-to-Open machinery).
package parser

import (
	"strconv"

	"ferritec/internal/ast"
	"ferritec/internal/bank"
	"ferritec/internal/cerr"
	"ferritec/internal/lexer"
	"ferritec/internal/token"
)

type Parser struct {
	toks []token.Token
	pos  int
	bank *bank.StringBank
}

// Parse consumes a lexed source and returns the Program AST, or the
// first ParseError encountered.
func Parse(toks *lexer.Tokens) (*ast.Program, error) {
	p := &Parser{toks: toks.Lexemes, bank: toks.Bank}
	return p.parseProgram()
}

// -----------------------------------------------------------------------------
// Token cursor

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		loc := token.Location{Row: 1, Col: 0}
		if len(p.toks) > 0 {
			loc = p.toks[len(p.toks)-1].Loc
		}
		return token.At(token.Lexeme{Kind: token.EOF}, loc)
	}
	return p.toks[p.pos]
}

func (p *Parser) kind() token.Kind      { return p.cur().Value.Kind }
func (p *Parser) loc() token.Location   { return p.cur().Loc }
func (p *Parser) text() string         { return p.cur().Value.Text }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	if p.kind() != k {
		if p.kind() == token.EOF {
			return token.Token{}, cerr.ParseUnexpectedEOF(p.loc())
		}
		return token.Token{}, cerr.UnexpectedToken(p.loc(), p.kind().String())
	}
	return p.advance(), nil
}

func mustIdx(tok token.Token) int {
	idx, _ := strconv.Atoi(tok.Value.Text)
	return idx
}

func parseUint(tok token.Token) (uint32, error) {
	v, err := strconv.ParseUint(tok.Value.Text, 0, 32)
	if err != nil {
		return 0, cerr.InvalidOperation(tok.Loc, "expected an unsigned integer literal")
	}
	return uint32(v), nil
}

// -----------------------------------------------------------------------------
// Top level

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{
		Bank:        p.bank,
		Definitions: make(map[int]*ast.Definition),
	}
	haveBody := false

	for p.kind() != token.EOF {
		switch p.kind() {
		case token.KW_SUB:
			fn, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			if err := p.register(prog, fn.Name, &ast.Definition{Kind: ast.DefFunc, Func: fn}); err != nil {
				return nil, err
			}
			prog.Funcs = append(prog.Funcs, fn)
		case token.KW_MEM:
			mv, err := p.parseMemVar()
			if err != nil {
				return nil, err
			}
			if err := p.register(prog, mv.Name, &ast.Definition{Kind: ast.DefMemVar, MemVar: mv}); err != nil {
				return nil, err
			}
			prog.MemVars = append(prog.MemVars, mv)
		case token.KW_STATIC:
			p.advance()
			vd, err := p.parseVarInit()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.SEMICOLON); err != nil {
				return nil, err
			}
			if err := p.register(prog, vd.Name, &ast.Definition{Kind: ast.DefStatic, Static: vd}); err != nil {
				return nil, err
			}
			prog.StaticVars = append(prog.StaticVars, vd)
		case token.KW_PROGRAM:
			loc := p.loc()
			if haveBody {
				return nil, cerr.BodyRedefinition(loc)
			}
			p.advance()
			if _, err := p.expect(token.LBRACE); err != nil {
				return nil, err
			}
			block, err := p.parseFuncBlock()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACE); err != nil {
				return nil, err
			}
			prog.Body = block
			haveBody = true
		case token.KW_RECORD:
			return nil, cerr.ReservedWord(p.loc(), "record")
		default:
			return nil, cerr.UnexpectedToken(p.loc(), p.kind().String())
		}
	}

	if !haveBody {
		return nil, cerr.NoBody(p.loc())
	}
	return prog, nil
}

func (p *Parser) register(prog *ast.Program, name token.Located[int], def *ast.Definition) error {
	if _, exists := prog.Definitions[name.Value]; exists {
		return cerr.InvalidRedefinition(name.Loc, p.bank.Ident(name.Value))
	}
	prog.Definitions[name.Value] = def
	return nil
}

// -----------------------------------------------------------------------------
// Types

func (p *Parser) parsePrimitiveKeyword() (ast.PrimitiveType, error) {
	switch p.kind() {
	case token.TY_I32:
		p.advance()
		return ast.I32, nil
	case token.TY_U32:
		p.advance()
		return ast.U32, nil
	case token.TY_F32:
		p.advance()
		return ast.F32, nil
	case token.TY_U8:
		p.advance()
		return ast.U8, nil
	default:
		return 0, cerr.UnexpectedToken(p.loc(), p.kind().String())
	}
}

func (p *Parser) parseParamType() (ast.ParamType, error) {
	indirection := 0
	for p.kind() == token.AMP {
		p.advance()
		indirection++
	}
	base, err := p.parsePrimitiveKeyword()
	if err != nil {
		return ast.ParamType{}, err
	}
	return ast.ParamType{Base: base, Indirection: indirection}, nil
}

func (p *Parser) parseDeclType() (ast.DeclType, error) {
	pt, err := p.parseParamType()
	if err != nil {
		return ast.DeclType{}, err
	}
	if p.kind() == token.LBRACKET {
		p.advance()
		sizeTok, err := p.expect(token.INTEGER)
		if err != nil {
			return ast.DeclType{}, err
		}
		size, err := parseUint(sizeTok)
		if err != nil {
			return ast.DeclType{}, err
		}
		if size == 0 {
			return ast.DeclType{}, cerr.InvalidOperation(sizeTok.Loc, "array size must be greater than zero")
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return ast.DeclType{}, err
		}
		return ast.Array(pt, size), nil
	}
	return ast.Scalar(pt), nil
}

// -----------------------------------------------------------------------------
// Initializers

func (p *Parser) parseScalarLiteral() (ast.PrimitiveValue, error) {
	neg := false
	if p.kind() == token.MINUS {
		p.advance()
		neg = true
	}
	tok := p.cur()
	switch tok.Value.Kind {
	case token.INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Value.Text, 0, 64)
		if err != nil {
			return ast.PrimitiveValue{}, cerr.InvalidOperation(tok.Loc, "invalid integer literal")
		}
		if neg {
			v = -v
		}
		return ast.PrimitiveValue{Kind: ast.LitInt, Int: int32(v)}, nil
	case token.UNSIGNED:
		if neg {
			return ast.PrimitiveValue{}, cerr.InvalidOperation(tok.Loc, "cannot negate an unsigned literal")
		}
		p.advance()
		v, err := strconv.ParseUint(tok.Value.Text, 0, 64)
		if err != nil {
			return ast.PrimitiveValue{}, cerr.InvalidOperation(tok.Loc, "invalid unsigned literal")
		}
		return ast.PrimitiveValue{Kind: ast.LitUint, Uint: uint32(v)}, nil
	case token.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value.Text, 32)
		if err != nil {
			return ast.PrimitiveValue{}, cerr.InvalidOperation(tok.Loc, "invalid float literal")
		}
		if neg {
			v = -v
		}
		return ast.PrimitiveValue{Kind: ast.LitFloat, Float: float32(v)}, nil
	case token.STRING:
		if neg {
			return ast.PrimitiveValue{}, cerr.InvalidOperation(tok.Loc, "cannot negate a string literal")
		}
		p.advance()
		return ast.PrimitiveValue{Kind: ast.LitString, Str: mustIdx(tok)}, nil
	default:
		return ast.PrimitiveValue{}, cerr.UnexpectedToken(tok.Loc, tok.Value.Kind.String())
	}
}

func (p *Parser) parseInitValue() (*ast.InitValue, error) {
	loc := p.loc()
	if p.kind() == token.LBRACKET {
		p.advance()
		var elems []ast.PrimitiveValue
		for p.kind() != token.RBRACKET {
			v, err := p.parseScalarLiteral()
			if err != nil {
				return nil, err
			}
			elems = append(elems, v)
			if p.kind() == token.COMMA {
				p.advance()
			}
		}
		if _, err := p.expect(token.RBRACKET); err != nil {
			return nil, err
		}
		return &ast.InitValue{Kind: ast.InitArray, Elems: elems, Loc: loc}, nil
	}
	v, err := p.parseScalarLiteral()
	if err != nil {
		return nil, err
	}
	return &ast.InitValue{Kind: ast.InitScalar, Scalar: v, Loc: loc}, nil
}

// parseVarInit parses `NAME : DECLTYPE [ = INITVAL ]`, used for both
// static top-level variables and `let` locals.
func (p *Parser) parseVarInit() (*ast.VarDecl, error) {
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	declType, err := p.parseDeclType()
	if err != nil {
		return nil, err
	}
	var init *ast.InitValue
	if p.kind() == token.ASSIGN {
		p.advance()
		init, err = p.parseInitValue()
		if err != nil {
			return nil, err
		}
	}
	return &ast.VarDecl{
		Name: token.At(mustIdx(nameTok), nameTok.Loc),
		Type: declType,
		Init: init,
	}, nil
}

// -----------------------------------------------------------------------------
// Top-level definitions

func (p *Parser) parseFunction() (*ast.FuncDef, error) {
	if _, err := p.expect(token.KW_SUB); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.TypedIdent
	for p.kind() != token.RPAREN {
		pnameTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		ptype, err := p.parseParamType()
		if err != nil {
			return nil, err
		}
		args = append(args, ast.TypedIdent{Name: token.At(mustIdx(pnameTok), pnameTok.Loc), Type: ptype})
		if p.kind() == token.COMMA {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	block, err := p.parseFuncBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.FuncDef{Name: token.At(mustIdx(nameTok), nameTok.Loc), Args: args, Block: block}, nil
}

func (p *Parser) parseMemVar() (*ast.MemVarDef, error) {
	if _, err := p.expect(token.KW_MEM); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	addrTok, err := p.expect(token.INTEGER)
	if err != nil {
		return nil, err
	}
	addr, err := parseUint(addrTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON); err != nil {
		return nil, err
	}
	ptype, err := p.parseParamType()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.MemVarDef{Name: token.At(mustIdx(nameTok), nameTok.Loc), Type: ptype, Addr: addr}, nil
}

// parseFuncBlock parses the optional `let v1, v2, ...;` prologue
// followed by statements, used by both function bodies and the
// program body.
func (p *Parser) parseFuncBlock() (ast.FuncBlock, error) {
	var vars []ast.VarDecl
	if p.kind() == token.KW_LET {
		p.advance()
		for {
			vd, err := p.parseVarInit()
			if err != nil {
				return ast.FuncBlock{}, err
			}
			vars = append(vars, *vd)
			if p.kind() == token.COMMA {
				p.advance()
				continue
			}
			break
		}
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return ast.FuncBlock{}, err
		}
	}
	var stmts []ast.Stmt
	for p.kind() != token.RBRACE {
		if p.kind() == token.EOF {
			return ast.FuncBlock{}, cerr.ParseUnexpectedEOF(p.loc())
		}
		st, err := p.parseStatement()
		if err != nil {
			return ast.FuncBlock{}, err
		}
		stmts = append(stmts, st)
	}
	return ast.FuncBlock{Vars: vars, Stmts: stmts}, nil
}

func (p *Parser) parseStatementBlock() ([]ast.Stmt, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var stmts []ast.Stmt
	for p.kind() != token.RBRACE {
		if p.kind() == token.EOF {
			return nil, cerr.ParseUnexpectedEOF(p.loc())
		}
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	p.advance()
	return stmts, nil
}

// -----------------------------------------------------------------------------
// Statements

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.kind() {
	case token.KW_CALL:
		return p.parseCallStmt()
	case token.KW_SYSCALL:
		return p.parseSyscallStmt()
	case token.KW_IF:
		return p.parseLogicChain()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.KW_ASM:
		return p.parseAsmStmt()
	case token.KW_PRINT:
		return p.parsePrintStmt()
	case token.KW_BREAK:
		loc := p.loc()
		p.advance()
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.ControlStmt{Kind: token.At(ast.CtlBreak, loc)}, nil
	case token.KW_CONTINUE:
		loc := p.loc()
		p.advance()
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.ControlStmt{Kind: token.At(ast.CtlContinue, loc)}, nil
	case token.KW_RETURN:
		loc := p.loc()
		p.advance()
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
		return &ast.ControlStmt{Kind: token.At(ast.CtlReturn, loc)}, nil
	default:
		return p.parseAssignmentStmt()
	}
}

func (p *Parser) parseAssignmentStmt() (ast.Stmt, error) {
	loc := p.loc()
	lhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if p.kind() != token.ASSIGN {
		return nil, cerr.NakedExpression(p.loc())
	}
	rv, ok := ast.AsRValue(lhs)
	if !ok {
		return nil, cerr.ExpectedRValue(loc)
	}
	p.advance() // '='
	rhs, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.AssignmentStmt{RVal: token.At(rv, loc), LVal: rhs}, nil
}

func (p *Parser) parseCallStmt() (ast.Stmt, error) {
	if _, err := p.expect(token.KW_CALL); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.IDENT)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Expr
	for p.kind() != token.RPAREN {
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
		if p.kind() == token.COMMA {
			p.advance()
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.CallStmt{Function: token.At(mustIdx(nameTok), nameTok.Loc), Args: args}, nil
}

func (p *Parser) parsePrintStmt() (ast.Stmt, error) {
	loc := p.loc()
	p.advance()
	var args []ast.Expr
	e, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	args = append(args, e)
	for p.kind() == token.COMMA {
		p.advance()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, e)
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &ast.PrintStmt{Args: args, Loc: loc}, nil
}

func (p *Parser) parseRegMapEntries() ([]ast.RegMapEntry, error) {
	seen := make(map[string]bool)
	var entries []ast.RegMapEntry
	for p.kind() != token.RPAREN {
		regTok, err := p.expect(token.REGISTER)
		if err != nil {
			return nil, err
		}
		if seen[regTok.Value.Text] {
			return nil, cerr.DuplicateRegister(regTok.Loc, regTok.Value.Text)
		}
		seen[regTok.Value.Text] = true
		if _, err := p.expect(token.COLON); err != nil {
			return nil, err
		}
		identTok, err := p.expect(token.IDENT)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.RegMapEntry{
			Reg:   token.At(regTok.Value.Text, regTok.Loc),
			Ident: token.At(mustIdx(identTok), identTok.Loc),
		})
		if p.kind() == token.COMMA {
			p.advance()
		}
	}
	return entries, nil
}

func (p *Parser) parseRegMapBlock() (in, out []ast.RegMapEntry, err error) {
	if p.kind() == token.KW_IN {
		p.advance()
		if _, err = p.expect(token.COLON); err != nil {
			return
		}
		if _, err = p.expect(token.LPAREN); err != nil {
			return
		}
		if in, err = p.parseRegMapEntries(); err != nil {
			return
		}
		if _, err = p.expect(token.RPAREN); err != nil {
			return
		}
		if _, err = p.expect(token.SEMICOLON); err != nil {
			return
		}
	}
	if p.kind() == token.KW_OUT {
		p.advance()
		if _, err = p.expect(token.COLON); err != nil {
			return
		}
		if _, err = p.expect(token.LPAREN); err != nil {
			return
		}
		if out, err = p.parseRegMapEntries(); err != nil {
			return
		}
		if _, err = p.expect(token.RPAREN); err != nil {
			return
		}
		if _, err = p.expect(token.SEMICOLON); err != nil {
			return
		}
	}
	return
}

func (p *Parser) parseSyscallStmt() (ast.Stmt, error) {
	if _, err := p.expect(token.KW_SYSCALL); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	idTok, err := p.expect(token.INTEGER)
	if err != nil {
		return nil, err
	}
	id, err := parseUint(idTok)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	var in, out []ast.RegMapEntry
	if p.kind() == token.LBRACE {
		p.advance()
		in, out, err = p.parseRegMapBlock()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RBRACE); err != nil {
			return nil, err
		}
	} else {
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return nil, err
		}
	}
	return &ast.SyscallStmt{ID: token.At(id, idTok.Loc), InMap: in, OutMap: out}, nil
}

func (p *Parser) parseAsmStmt() (ast.Stmt, error) {
	loc := p.loc()
	p.advance() // asm
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var lines []token.Located[string]
	for p.kind() == token.STRING {
		tok := p.advance()
		lines = append(lines, token.At(p.bank.String(mustIdx(tok)), tok.Loc))
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	in, out, err := p.parseRegMapBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return &ast.AsmStmt{Lines: lines, InMap: in, OutMap: out, Loc: loc}, nil
}

func (p *Parser) parseWhileStmt() (ast.Stmt, error) {
	loc := p.loc()
	p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatementBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Cond: cond, Body: body, Loc: loc}, nil
}

func (p *Parser) parseLogicChain() (ast.Stmt, error) {
	loc := p.loc()
	p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	ifBody, err := p.parseStatementBlock()
	if err != nil {
		return nil, err
	}

	var elifs []ast.CondBlock
	for p.kind() == token.KW_ELIF {
		p.advance()
		if _, err := p.expect(token.LPAREN); err != nil {
			return nil, err
		}
		c, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		b, err := p.parseStatementBlock()
		if err != nil {
			return nil, err
		}
		elifs = append(elifs, ast.CondBlock{Cond: c, Body: b})
	}

	var elseBody []ast.Stmt
	hasElse := false
	if p.kind() == token.KW_ELSE {
		p.advance()
		hasElse = true
		elseBody, err = p.parseStatementBlock()
		if err != nil {
			return nil, err
		}
	}

	return &ast.LogicChainStmt{
		If:      ast.CondBlock{Cond: cond, Body: ifBody},
		Elifs:   elifs,
		Else:    elseBody,
		HasElse: hasElse,
		Loc:     loc,
	}, nil
}

// -----------------------------------------------------------------------------
// Expressions — shunting yard

type opEntry struct {
	isUnary  bool
	isCast   bool
	unary    ast.UnaryOp
	binary   ast.BinaryOp
	castType ast.ParamType
	loc      token.Location
}

func precedence(e opEntry) int {
	if e.isUnary {
		return 90
	}
	if e.isCast {
		return 80
	}
	switch e.binary {
	case ast.Mult, ast.Div, ast.Mod:
		return 70
	case ast.Add, ast.Sub:
		return 60
	case ast.Lt, ast.Le, ast.Gt, ast.Ge:
		return 50
	case ast.Equal, ast.NotEq:
		return 40
	case ast.And:
		return 30
	case ast.Or:
		return 20
	default:
		return 0
	}
}

func isExprTerminator(k token.Kind) bool {
	switch k {
	case token.RPAREN, token.RBRACKET, token.COMMA, token.SEMICOLON,
		token.RBRACE, token.EOF, token.ASSIGN:
		return true
	default:
		return false
	}
}

func isPrimaryStart(k token.Kind) bool {
	switch k {
	case token.INTEGER, token.UNSIGNED, token.FLOAT, token.STRING, token.IDENT, token.LPAREN:
		return true
	default:
		return false
	}
}

func isUnaryStart(k token.Kind) bool {
	switch k {
	case token.MINUS, token.BANG, token.STAR, token.AMP:
		return true
	default:
		return false
	}
}

func isBinaryStart(k token.Kind) bool {
	switch k {
	case token.PLUS, token.MINUS, token.STAR, token.SLASH, token.PERCENT,
		token.GT, token.LT, token.GE, token.LE, token.EQ, token.NE,
		token.KW_AND, token.KW_OR:
		return true
	default:
		return false
	}
}

func binaryOpFor(k token.Kind) ast.BinaryOp {
	switch k {
	case token.PLUS:
		return ast.Add
	case token.MINUS:
		return ast.Sub
	case token.STAR:
		return ast.Mult
	case token.SLASH:
		return ast.Div
	case token.PERCENT:
		return ast.Mod
	case token.GT:
		return ast.Gt
	case token.LT:
		return ast.Lt
	case token.GE:
		return ast.Ge
	case token.LE:
		return ast.Le
	case token.EQ:
		return ast.Equal
	case token.NE:
		return ast.NotEq
	case token.KW_AND:
		return ast.And
	case token.KW_OR:
		return ast.Or
	default:
		panic("binaryOpFor: not a binary operator token")
	}
}

func unaryOpFor(k token.Kind) ast.UnaryOp {
	switch k {
	case token.MINUS:
		return ast.Negation
	case token.BANG:
		return ast.LogicNot
	case token.STAR:
		return ast.Deref
	case token.AMP:
		return ast.Reference
	default:
		panic("unaryOpFor: not a unary operator token")
	}
}

// parsePrimary parses a literal, identifier, or parenthesized group —
// the leaves the shunting-yard loop hangs operators off of.
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.cur()
	switch tok.Value.Kind {
	case token.INTEGER:
		p.advance()
		v, err := strconv.ParseInt(tok.Value.Text, 0, 64)
		if err != nil {
			return nil, cerr.InvalidOperation(tok.Loc, "invalid integer literal")
		}
		return &ast.PrimitiveExpr{Val: token.At(ast.PrimitiveValue{Kind: ast.LitInt, Int: int32(v)}, tok.Loc)}, nil
	case token.UNSIGNED:
		p.advance()
		v, err := strconv.ParseUint(tok.Value.Text, 0, 64)
		if err != nil {
			return nil, cerr.InvalidOperation(tok.Loc, "invalid unsigned literal")
		}
		return &ast.PrimitiveExpr{Val: token.At(ast.PrimitiveValue{Kind: ast.LitUint, Uint: uint32(v)}, tok.Loc)}, nil
	case token.FLOAT:
		p.advance()
		v, err := strconv.ParseFloat(tok.Value.Text, 32)
		if err != nil {
			return nil, cerr.InvalidOperation(tok.Loc, "invalid float literal")
		}
		return &ast.PrimitiveExpr{Val: token.At(ast.PrimitiveValue{Kind: ast.LitFloat, Float: float32(v)}, tok.Loc)}, nil
	case token.STRING:
		p.advance()
		return &ast.PrimitiveExpr{Val: token.At(ast.PrimitiveValue{Kind: ast.LitString, Str: mustIdx(tok)}, tok.Loc)}, nil
	case token.IDENT:
		p.advance()
		return &ast.IdentifierExpr{Name: token.At(mustIdx(tok), tok.Loc)}, nil
	case token.LPAREN:
		p.advance()
		inner, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, cerr.UnexpectedToken(tok.Loc, tok.Value.Kind.String())
	}
}

// parseExpression implements the shunting-yard algorithm:
// operands and operators are kept on two stacks; pushing a binary or
// cast operator first drains any pending operator whose precedence is
// greater-or-equal (left-associative folding); postfix `[...]` binds
// immediately to the expression just produced, which is what gives
// index access its top precedence without an entry in the table.
func (p *Parser) parseExpression() (ast.Expr, error) {
	var operands []ast.Expr
	var operators []opEntry
	haveExpr := false

	apply := func() error {
		top := operators[len(operators)-1]
		operators = operators[:len(operators)-1]
		if top.isUnary {
			n := len(operands)
			operand := operands[n-1]
			operands = operands[:n-1]
			operands = append(operands, &ast.UnaryExpr{Operand: operand, Op: token.At(top.unary, top.loc)})
		} else if top.isCast {
			n := len(operands)
			operand := operands[n-1]
			operands = operands[:n-1]
			operands = append(operands, &ast.CastExpr{Value: operand, CastType: top.castType, Loc: top.loc})
		} else {
			n := len(operands)
			right, left := operands[n-1], operands[n-2]
			operands = operands[:n-2]
			operands = append(operands, &ast.BinaryExpr{Left: left, Right: right, Op: token.At(top.binary, top.loc)})
		}
		return nil
	}

	for {
		k := p.kind()
		if isExprTerminator(k) {
			break
		}

		switch {
		case !haveExpr && isPrimaryStart(k):
			e, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			operands = append(operands, e)
			haveExpr = true

		case haveExpr && k == token.LBRACKET:
			p.advance()
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(token.RBRACKET); err != nil {
				return nil, err
			}
			n := len(operands)
			arr := operands[n-1]
			loc := arr.Location()
			operands[n-1] = &ast.BinaryExpr{Left: arr, Right: idx, Op: token.At(ast.IndexAccess, loc)}

		case haveExpr && k == token.KW_AS:
			loc := p.loc()
			p.advance()
			pt, err := p.parseParamType()
			if err != nil {
				return nil, err
			}
			// Cast binds looser than unary: drain pending unary
			// operators (and earlier casts) before pushing, so
			// `-x as i32` reads as `(-x) as i32`.
			entry := opEntry{isCast: true, castType: pt, loc: loc}
			for len(operators) > 0 && precedence(operators[len(operators)-1]) >= precedence(entry) {
				if err := apply(); err != nil {
					return nil, err
				}
			}
			operators = append(operators, entry)

		case haveExpr && isBinaryStart(k):
			op := binaryOpFor(k)
			loc := p.loc()
			entry := opEntry{binary: op, loc: loc}
			for len(operators) > 0 && precedence(operators[len(operators)-1]) >= precedence(entry) {
				if err := apply(); err != nil {
					return nil, err
				}
			}
			operators = append(operators, entry)
			p.advance()
			haveExpr = false

		case !haveExpr && isUnaryStart(k):
			loc := p.loc()
			operators = append(operators, opEntry{isUnary: true, unary: unaryOpFor(k), loc: loc})
			p.advance()

		default:
			return nil, cerr.InvalidOperation(p.loc(), "unexpected token in expression")
		}
	}

	if !haveExpr {
		return nil, cerr.UnexpectedToken(p.loc(), p.kind().String())
	}
	for len(operators) > 0 {
		if err := apply(); err != nil {
			return nil, err
		}
	}
	if len(operands) != 1 {
		return nil, cerr.ParseUnexpectedEOF(p.loc())
	}
	return operands[0], nil
}
