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
package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferritec/internal/ast"
	"ferritec/internal/cerr"
	"ferritec/internal/lexer"
)

func parseExprText(t *testing.T, src string) ast.Expr {
	t.Helper()
	toks, err := lexer.Lex([]byte(src))
	require.NoError(t, err)
	p := &Parser{toks: toks.Lexemes, bank: toks.Bank}
	e, err := p.parseExpression()
	require.NoError(t, err)
	return e
}

func parseText(t *testing.T, src string) (*ast.Program, error) {
	t.Helper()
	toks, err := lexer.Lex([]byte(src))
	require.NoError(t, err)
	return Parse(toks)
}

func requireTag(t *testing.T, err error, tag string) *cerr.Diagnostic {
	t.Helper()
	require.Error(t, err)
	diag, ok := cerr.AsDiagnostic(err)
	require.True(t, ok, "error %v carries no diagnostic", err)
	require.Equal(t, tag, diag.Tag)
	return diag
}

func TestPrecedence(t *testing.T) {
	e := parseExprText(t, "1 + 2 * 3")
	add, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Add, add.Op.Value)

	lhs, ok := add.Left.(*ast.PrimitiveExpr)
	require.True(t, ok)
	assert.Equal(t, int32(1), lhs.Val.Value.Int)

	mul, ok := add.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Mult, mul.Op.Value)
}

func TestCast(t *testing.T) {
	e := parseExprText(t, "a as &i32")
	cast, ok := e.(*ast.CastExpr)
	require.True(t, ok)
	assert.Equal(t, ast.ParamType{Base: ast.I32, Indirection: 1}, cast.CastType)
	_, ok = cast.Value.(*ast.IdentifierExpr)
	assert.True(t, ok)
}

// Unary operators bind tighter than casts: `-x as i32` is `(-x) as i32`,
// not `-(x as i32)`.
func TestCastAfterUnary(t *testing.T) {
	e := parseExprText(t, "-x as i32")
	cast, ok := e.(*ast.CastExpr)
	require.True(t, ok)
	assert.Equal(t, ast.ParamType{Base: ast.I32}, cast.CastType)

	neg, ok := cast.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Negation, neg.Op.Value)

	e = parseExprText(t, "*p as u32")
	cast, ok = e.(*ast.CastExpr)
	require.True(t, ok)
	deref, ok := cast.Value.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Deref, deref.Op.Value)
}

// Casts bind tighter than arithmetic, and chain left-associatively.
func TestCastPrecedence(t *testing.T) {
	e := parseExprText(t, "x as f32 * y")
	mul, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Mult, mul.Op.Value)
	_, ok = mul.Left.(*ast.CastExpr)
	assert.True(t, ok)

	e = parseExprText(t, "x as i32 as u32")
	outer, ok := e.(*ast.CastExpr)
	require.True(t, ok)
	assert.Equal(t, ast.ParamType{Base: ast.U32}, outer.CastType)
	inner, ok := outer.Value.(*ast.CastExpr)
	require.True(t, ok)
	assert.Equal(t, ast.ParamType{Base: ast.I32}, inner.CastType)
}

func TestIndexAccess(t *testing.T) {
	e := parseExprText(t, "p[i+1]")
	idx, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.IndexAccess, idx.Op.Value)
	_, ok = idx.Left.(*ast.IdentifierExpr)
	assert.True(t, ok)
	add, ok := idx.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Add, add.Op.Value)
}

func TestUnaryVsBinary(t *testing.T) {
	e := parseExprText(t, "-a * *p")
	mul, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	require.Equal(t, ast.Mult, mul.Op.Value)

	neg, ok := mul.Left.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Negation, neg.Op.Value)

	deref, ok := mul.Right.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.Deref, deref.Op.Value)
}

func TestBodyRedefinition(t *testing.T) {
	_, err := parseText(t, "program {}\nprogram {}")
	diag := requireTag(t, err, "BodyRedefinition")
	assert.Equal(t, 2, diag.Loc.Row)
}

func TestNakedExpression(t *testing.T) {
	_, err := parseText(t, "program { a + b; }")
	requireTag(t, err, "NakedExpression")
}

func TestNoBody(t *testing.T) {
	_, err := parseText(t, "sub f() { }")
	requireTag(t, err, "NoBody")
}

func TestReservedRecord(t *testing.T) {
	_, err := parseText(t, "record point { }")
	requireTag(t, err, "ReservedWord")
}

func TestTopLevelRedefinition(t *testing.T) {
	_, err := parseText(t, "sub f() { }\nstatic f : i32;\nprogram {}")
	requireTag(t, err, "InvalidRedefinition")
}

func TestDuplicateRegisterInMap(t *testing.T) {
	_, err := parseText(t, "program { let a: i32; syscall (5) { out: ($v0: a, $v0: a); } }")
	requireTag(t, err, "DuplicateRegister")
}

func TestExpectedRValue(t *testing.T) {
	_, err := parseText(t, "program { a + b = 3; }")
	requireTag(t, err, "ExpectedRValue")
}

func TestAssignmentShapes(t *testing.T) {
	prog, err := parseText(t, "program { let p: &i32, a: i32[3]; *p = 1; a[0] = 2; }")
	require.NoError(t, err)
	require.Len(t, prog.Body.Stmts, 2)

	first, ok := prog.Body.Stmts[0].(*ast.AssignmentStmt)
	require.True(t, ok)
	_, ok = first.RVal.Value.(*ast.RVDeref)
	assert.True(t, ok)

	second, ok := prog.Body.Stmts[1].(*ast.AssignmentStmt)
	require.True(t, ok)
	_, ok = second.RVal.Value.(*ast.RVIndex)
	assert.True(t, ok)
}

func TestMemVar(t *testing.T) {
	prog, err := parseText(t, "mem (0xFFFF0000) recv : &u8;\nprogram {}")
	require.NoError(t, err)
	require.Len(t, prog.MemVars, 1)
	mv := prog.MemVars[0]
	assert.Equal(t, uint32(0xFFFF0000), mv.Addr)
	assert.Equal(t, ast.ParamType{Base: ast.U8, Indirection: 1}, mv.Type)
}

func TestLogicChainShape(t *testing.T) {
	prog, err := parseText(t, `
program {
	let a: i32 = 1;
	if (a == 1) { print 1; }
	elif (a == 2) { print 2; }
	elif (a == 3) { print 3; }
	else { print 4; }
}`)
	require.NoError(t, err)
	chain, ok := prog.Body.Stmts[0].(*ast.LogicChainStmt)
	require.True(t, ok)
	assert.Len(t, chain.Elifs, 2)
	assert.True(t, chain.HasElse)
}

func TestArrayInit(t *testing.T) {
	prog, err := parseText(t, "static xs : i32[3] = [1, 2, 3,];\nprogram {}")
	require.NoError(t, err)
	require.Len(t, prog.StaticVars, 1)
	init := prog.StaticVars[0].Init
	require.NotNil(t, init)
	require.Equal(t, ast.InitArray, init.Kind)
	require.Len(t, init.Elems, 3)
	assert.Equal(t, int32(2), init.Elems[1].Int)
}

func TestNegativeScalarInit(t *testing.T) {
	prog, err := parseText(t, "program { let a: i32 = -7, f: f32 = -1.5; }")
	require.NoError(t, err)
	vars := prog.Body.Vars
	require.Len(t, vars, 2)
	assert.Equal(t, int32(-7), vars[0].Init.Scalar.Int)
	assert.Equal(t, float32(-1.5), vars[1].Init.Scalar.Float)
}

func TestUnmatchedParen(t *testing.T) {
	toks, err := lexer.Lex([]byte("(1 + 2"))
	require.NoError(t, err)
	p := &Parser{toks: toks.Lexemes, bank: toks.Bank}
	_, err = p.parseExpression()
	require.Error(t, err)
}
