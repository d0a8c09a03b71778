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
package codegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ferritec/internal/asmbuilder"
)

func TestAllocOrder(t *testing.T) {
	b := NewRegBank(asmbuilder.New())

	first := b.Alloc(ClassInt)
	require.False(t, first.IsVirtual)
	assert.Equal(t, "t0", first.HW)

	second := b.Alloc(ClassInt)
	assert.Equal(t, "t1", second.HW)

	f := b.Alloc(ClassFloat)
	assert.Equal(t, "f4", f.HW)

	b.Free(first)
	third := b.Alloc(ClassInt)
	assert.Equal(t, "t2", third.HW)
}

func TestVirtualOverflow(t *testing.T) {
	b := NewRegBank(asmbuilder.New())
	for i := 0; i < 8; i++ {
		hw := b.Alloc(ClassInt)
		require.False(t, hw.IsVirtual, "allocation %d should be hardware", i)
	}
	v0 := b.Alloc(ClassInt)
	v1 := b.Alloc(ClassInt)
	require.True(t, v0.IsVirtual)
	require.True(t, v1.IsVirtual)
	assert.Equal(t, 0, v0.Virtual)
	assert.Equal(t, 1, v1.Virtual)

	b.Free(v0)
	v2 := b.Alloc(ClassInt)
	assert.True(t, v2.IsVirtual)
	assert.Equal(t, 0, v2.Virtual)
}

func TestFloatPoolSize(t *testing.T) {
	b := NewRegBank(asmbuilder.New())
	for i := 0; i < 10; i++ {
		f := b.Alloc(ClassFloat)
		require.False(t, f.IsVirtual, "allocation %d should be hardware", i)
	}
	spilled := b.Alloc(ClassFloat)
	assert.True(t, spilled.IsVirtual)
}

// A virtual slot read-modify-write must load into a spill helper first
// and store back after, and nested accesses must use distinct helpers.
func TestSpillAccessProtocol(t *testing.T) {
	asm := asmbuilder.New()
	asm.OpenBlock("blk")
	b := NewRegBank(asm)
	for i := 0; i < 8; i++ {
		b.Alloc(ClassInt)
	}
	outer := b.Alloc(ClassInt)
	inner := b.Alloc(ClassInt)
	require.True(t, outer.IsVirtual)
	require.True(t, inner.IsVirtual)

	b.WithInt(outer, AccessReadWrite, func(a string) {
		assert.Equal(t, "t8", a)
		b.WithInt(inner, AccessRead, func(c string) {
			assert.Equal(t, "t9", c)
		})
	})

	out := asm.Render()
	assert.Contains(t, out, "lw $t8, -4($sp)")
	assert.Contains(t, out, "lw $t9, -8($sp)")
	assert.Contains(t, out, "sw $t8, -4($sp)")
	assert.NotContains(t, out, "sw $t9")
}

func TestWriteOnlySkipsLoad(t *testing.T) {
	asm := asmbuilder.New()
	asm.OpenBlock("blk")
	b := NewRegBank(asm)
	for i := 0; i < 8; i++ {
		b.Alloc(ClassInt)
	}
	v := b.Alloc(ClassInt)
	require.True(t, v.IsVirtual)

	b.WithInt(v, AccessWrite, func(r string) {})
	out := asm.Render()
	assert.NotContains(t, out, "lw $t8")
	assert.Contains(t, out, "sw $t8, -4($sp)")
}

func TestResetRestoresPools(t *testing.T) {
	b := NewRegBank(asmbuilder.New())
	for i := 0; i < 12; i++ {
		b.Alloc(ClassInt)
	}
	b.Reset()
	fresh := b.Alloc(ClassInt)
	assert.Equal(t, "t0", fresh.HW)
	assert.False(t, fresh.IsVirtual)
}
