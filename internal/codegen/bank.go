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

import "ferritec/internal/asmbuilder"

// RegClass distinguishes the integer and floating-point temporary
// pools; they never share registers or virtual slots.
type RegClass int

const (
	ClassInt RegClass = iota
	ClassFloat
)

// Temp is a live expression register: either a hardware temporary or
// a virtual stack slot, addressed at -(Virtual+1)*4($sp).
type Temp struct {
	Class    RegClass
	IsVirtual bool
	HW       string
	Virtual  int
}

type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
	AccessReadWrite
)

var intPool = []string{"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7"}
var floatPool = []string{"f4", "f5", "f6", "f7", "f8", "f9", "f10", "f11", "f16", "f17"}

// RegBank is the expression register bank: two hardware free-lists plus a
// virtual slot pool, with $t8/$t9 and $f18/$f19 reserved as spill
// helpers. It has no live-range analysis — lexically scoped within one
// statement, and Reset between statements.
type RegBank struct {
	asm *asmbuilder.Builder

	intFree   []string
	floatFree []string

	virtualNext int
	virtualFree []int

	intSpillDepth   int
	floatSpillDepth int
}

func NewRegBank(asm *asmbuilder.Builder) *RegBank {
	b := &RegBank{asm: asm}
	b.Reset()
	return b
}

// Reset returns every hardware register to its pool and clears the
// virtual slot allocator, matching the statement-scoped lifetime of
// the bank.
func (b *RegBank) Reset() {
	b.intFree = append([]string(nil), intPool...)
	b.floatFree = append([]string(nil), floatPool...)
	b.virtualNext = 0
	b.virtualFree = nil
}

func (b *RegBank) allocVirtual() int {
	if n := len(b.virtualFree); n > 0 {
		idx := b.virtualFree[n-1]
		b.virtualFree = b.virtualFree[:n-1]
		return idx
	}
	idx := b.virtualNext
	b.virtualNext++
	return idx
}

// Alloc hands out the first free hardware register of class, or a
// fresh virtual slot if the pool is exhausted.
func (b *RegBank) Alloc(class RegClass) Temp {
	switch class {
	case ClassInt:
		if len(b.intFree) > 0 {
			reg := b.intFree[0]
			b.intFree = b.intFree[1:]
			return Temp{Class: ClassInt, HW: reg}
		}
	case ClassFloat:
		if len(b.floatFree) > 0 {
			reg := b.floatFree[0]
			b.floatFree = b.floatFree[1:]
			return Temp{Class: ClassFloat, HW: reg}
		}
	}
	return Temp{Class: class, IsVirtual: true, Virtual: b.allocVirtual()}
}

// Free returns t to its pool (hardware) or its slot to the virtual
// free-list.
func (b *RegBank) Free(t Temp) {
	if !t.IsVirtual {
		switch t.Class {
		case ClassInt:
			b.intFree = append(b.intFree, t.HW)
		case ClassFloat:
			b.floatFree = append(b.floatFree, t.HW)
		}
		return
	}
	b.virtualFree = append(b.virtualFree, t.Virtual)
}

func (t Temp) virtualAddr() asmbuilder.Operand {
	return asmbuilder.RegOff("sp", -(t.Virtual+1)*4)
}

// WithInt runs body with t materialized into a hardware integer
// register: directly, if t already is one, or via the $t8/$t9 spill
// helpers (loading first unless mode is write-only, storing back
// unless mode is read-only) if it's a virtual slot.
func (b *RegBank) WithInt(t Temp, mode AccessMode, body func(reg string)) {
	if !t.IsVirtual {
		body(t.HW)
		return
	}
	helper := "t8"
	if b.intSpillDepth > 0 {
		helper = "t9"
	}
	b.intSpillDepth++
	defer func() { b.intSpillDepth-- }()

	addr := t.virtualAddr()
	if mode != AccessWrite {
		b.asm.Lw(helper, addr)
	}
	body(helper)
	if mode != AccessRead {
		b.asm.Sw(helper, addr)
	}
}

// WithFloat is WithInt's float-class counterpart, spilling through
// $f18/$f19 with l.s/s.s.
func (b *RegBank) WithFloat(t Temp, mode AccessMode, body func(reg string)) {
	if !t.IsVirtual {
		body(t.HW)
		return
	}
	helper := "f18"
	if b.floatSpillDepth > 0 {
		helper = "f19"
	}
	b.floatSpillDepth++
	defer func() { b.floatSpillDepth-- }()

	addr := t.virtualAddr()
	if mode != AccessWrite {
		b.asm.LS(helper, addr)
	}
	body(helper)
	if mode != AccessRead {
		b.asm.SS(helper, addr)
	}
}

// With dispatches to WithInt or WithFloat by t.Class.
func (b *RegBank) With(t Temp, mode AccessMode, body func(reg string)) {
	if t.Class == ClassFloat {
		b.WithFloat(t, mode, body)
	} else {
		b.WithInt(t, mode, body)
	}
}
