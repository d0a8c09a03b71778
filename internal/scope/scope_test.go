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
package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferritec/internal/ast"
	"ferritec/internal/cerr"
	"ferritec/internal/lexer"
	"ferritec/internal/parser"
	"ferritec/internal/token"
)

func at(idx int) token.Located[int] {
	return token.At(idx, token.Location{Row: 1})
}

func parseText(t *testing.T, src string) *ast.Program {
	t.Helper()
	toks, err := lexer.Lex([]byte(src))
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	return prog
}

func TestFunctionLayout(t *testing.T) {
	prog := parseText(t, `
sub f(a: i32, b: f32) {
	let x: u8, y: i32[3];
}
program {}`)
	require.Len(t, prog.Funcs, 1)

	ls, err := BuildFunction(prog.Funcs[0], prog.Bank)
	require.NoError(t, err)

	// Two word-sized argument slots, the return-address word, then a
	// byte and a 3-word array padded to a 4-byte boundary.
	assert.Equal(t, 8, ls.ArgsSize)
	assert.Equal(t, 16, ls.LocalsSize)
	assert.Equal(t, 28, ls.TotalStackSize)
	assert.Equal(t, 20, ls.FrameAdjust())
	assert.Equal(t, 16, ls.RAOffset())
}

// Every declared name must fit inside the frame, and no two names may
// overlap (the return-address slot included).
func TestOffsetsDisjoint(t *testing.T) {
	prog := parseText(t, `
sub g(a: i32, b: u32, c: f32) {
	let x: u8, y: i32[3], z: f32, w: u8[5];
}
program {}`)
	ls, err := BuildFunction(prog.Funcs[0], prog.Bank)
	require.NoError(t, err)

	type span struct{ lo, hi int }
	spans := []span{{ls.RAOffset(), ls.RAOffset() + 4}}
	for _, name := range ls.Names() {
		off, typ, ok := ls.Offset(name, 0)
		require.True(t, ok)
		size := typ.ByteSize()
		assert.GreaterOrEqual(t, off, 0)
		assert.LessOrEqual(t, off+size, ls.TotalStackSize)
		spans = append(spans, span{off, off + size})
	}
	for i := range spans {
		for j := i + 1; j < len(spans); j++ {
			disjoint := spans[i].hi <= spans[j].lo || spans[j].hi <= spans[i].lo
			assert.True(t, disjoint, "spans %v and %v overlap", spans[i], spans[j])
		}
	}
}

func TestExtraShift(t *testing.T) {
	prog := parseText(t, "sub f(a: i32) {}\nprogram {}")
	ls, err := BuildFunction(prog.Funcs[0], prog.Bank)
	require.NoError(t, err)

	off0, _, ok := ls.Offset(prog.Funcs[0].Args[0].Name.Value, 0)
	require.True(t, ok)
	off8, _, ok := ls.Offset(prog.Funcs[0].Args[0].Name.Value, 8)
	require.True(t, ok)
	assert.Equal(t, off0+8, off8)
}

func TestDuplicateLocal(t *testing.T) {
	prog := parseText(t, "sub f(a: i32) { let a: i32; }\nprogram {}")
	_, err := BuildFunction(prog.Funcs[0], prog.Bank)
	require.Error(t, err)
	diag, ok := cerr.AsDiagnostic(err)
	require.True(t, ok)
	assert.Equal(t, "Redefinition", diag.Tag)
}

func TestMemVarNeedsIndirection(t *testing.T) {
	prog := parseText(t, "mem (0xFFFF0000) leds : u32;\nprogram {}")
	_, err := BuildGlobal(prog)
	require.Error(t, err)
	diag, ok := cerr.AsDiagnostic(err)
	require.True(t, ok)
	assert.Equal(t, "InvalidMemVarType", diag.Tag)
}

func TestResolutionOrder(t *testing.T) {
	prog := parseText(t, `
static n : i32 = 4;
sub f() {}
program { let n: i32; }`)
	global, err := BuildGlobal(prog)
	require.NoError(t, err)
	local, err := BuildProgramBody(prog.Body, prog.Bank)
	require.NoError(t, err)

	nameOf := func(s string) int {
		for i := 0; i < prog.Bank.NumIdents(); i++ {
			if prog.Bank.Ident(i) == s {
				return i
			}
		}
		t.Fatalf("identifier %q not interned", s)
		return -1
	}

	// The body-local n shadows the static of the same name.
	res, err := ResolveIdent(local, global, at(nameOf("n")), 0)
	require.NoError(t, err)
	assert.Equal(t, ResStack, res.Kind)

	// Without a local scope the static wins.
	res, err = ResolveIdent(nil, global, at(nameOf("n")), 0)
	require.NoError(t, err)
	assert.Equal(t, ResStatic, res.Kind)

	// A function name in value position is rejected.
	_, err = ResolveIdent(local, global, at(nameOf("f")), 0)
	require.Error(t, err)
	diag, _ := cerr.AsDiagnostic(err)
	assert.Equal(t, "FuncInExpr", diag.Tag)

	// Calling a non-function is rejected.
	_, err = ResolveCallTarget(nil, global, at(nameOf("n")))
	require.Error(t, err)
	diag, _ = cerr.AsDiagnostic(err)
	assert.Equal(t, "NotAFunc", diag.Tag)
}

func TestConstructCounter(t *testing.T) {
	c := NewConstructCounter()
	assert.Equal(t, 0, c.AllocIf())
	assert.Equal(t, 1, c.AllocIf())
	assert.Equal(t, 0, c.AllocWhile())

	_, ok := c.CurrentLoop()
	assert.False(t, ok)
	c.PushLoop(0)
	id, ok := c.CurrentLoop()
	assert.True(t, ok)
	assert.Equal(t, 0, id)
	c.PopLoop()
	_, ok = c.CurrentLoop()
	assert.False(t, ok)
}
