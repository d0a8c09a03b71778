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
package asmbuilder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperandRendering(t *testing.T) {
	assert.Equal(t, "$t0", Reg("t0").String())
	assert.Equal(t, "LBL", Lbl("LBL").String())
	assert.Equal(t, "-8($sp)", RegOff("sp", -8).String())
	assert.Equal(t, "LBL($t1)", RegLbl("t1", "LBL").String())
	assert.Equal(t, "LBL+4", LblOff("LBL", 4).String())
	assert.Equal(t, "LBL+4($t2)", LblRegOff("LBL", "t2", 4).String())
	assert.Equal(t, "65535", Raw(0xFFFF).String())
	assert.Equal(t, "16($gp)", RawReg(16, "gp").String())
}

func TestRenderOrder(t *testing.T) {
	b := New()
	b.Data("D1", ".word", "1")
	b.OpenBlock("first")
	b.Li("t0", 5)
	b.OpenBlock("second")
	b.Jr("ra")

	out := b.Render()
	require.Contains(t, out, ".data\n")
	require.Contains(t, out, "D1: .word 1\n")
	require.Contains(t, out, ".text\n")

	dataIdx := indexOf(out, "D1:")
	textIdx := indexOf(out, ".text")
	firstIdx := indexOf(out, "first:")
	secondIdx := indexOf(out, "second:")
	assert.Less(t, dataIdx, textIdx)
	assert.Less(t, textIdx, firstIdx)
	assert.Less(t, firstIdx, secondIdx)
	assert.Contains(t, out, "\tli $t0, 5\n")
}

// Instructions emitted before any block is opened are dropped, not an
// error.
func TestEmitBeforeBlockDropped(t *testing.T) {
	b := New()
	b.Li("t0", 1)
	b.OpenBlock("entry")
	b.Li("t1", 2)
	out := b.Render()
	assert.NotContains(t, out, "li $t0, 1")
	assert.Contains(t, out, "li $t1, 2")
}

func TestWordConstDedup(t *testing.T) {
	b := New()
	a := b.WordConst(WordConstBitsOf(1.5))
	c := b.WordConst(WordConstBitsOf(2.5))
	again := b.WordConst(WordConstBitsOf(1.5))
	assert.Equal(t, a, again)
	assert.NotEqual(t, a, c)

	out := b.Render()
	assert.Contains(t, out, "WORD_CONST: .word 0x3fc00000, 0x40200000")
}

func TestSyscallShape(t *testing.T) {
	b := New()
	b.OpenBlock("main")
	b.Syscall(4)
	out := b.Render()
	assert.Contains(t, out, "\tli $v0, 4\n\tsyscall\n")
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
