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
package ast

import "fmt"

// PrimitiveType is the closed set of scalar base types Ferrite supports.
type PrimitiveType int

const (
	I32 PrimitiveType = iota
	U32
	F32
	U8
)

func (p PrimitiveType) String() string {
	switch p {
	case I32:
		return "i32"
	case U32:
		return "u32"
	case F32:
		return "f32"
	case U8:
		return "u8"
	default:
		return "<invalid primitive>"
	}
}

// Size is the storage width in bytes this primitive occupies as a
// scalar (never as the pointee of an array decay).
func (p PrimitiveType) Size() int {
	if p == U8 {
		return 1
	}
	return 4
}

// ParamType is a scalar-or-pointer type: a base primitive plus a
// non-negative indirection level. Two ParamTypes are equal iff both
// fields match.
type ParamType struct {
	Base        PrimitiveType
	Indirection int
}

func (t ParamType) String() string {
	s := ""
	for i := 0; i < t.Indirection; i++ {
		s += "&"
	}
	return s + t.Base.String()
}

func (t ParamType) Equal(o ParamType) bool {
	return t.Base == o.Base && t.Indirection == o.Indirection
}

func (t ParamType) IsPointer() bool { return t.Indirection > 0 }

// RefType returns t with indirection incremented (address-of).
func (t ParamType) RefType() ParamType {
	return ParamType{Base: t.Base, Indirection: t.Indirection + 1}
}

// DerefType returns t with indirection decremented. Undefined (caller
// must not invoke) when Indirection is already zero.
func (t ParamType) DerefType() ParamType {
	return ParamType{Base: t.Base, Indirection: t.Indirection - 1}
}

// Decayed is the ParamType an array of this element type and kind
// decays to when used as a value: one extra level of indirection.
func (t ParamType) Decayed() ParamType { return t.RefType() }

// DeclType is either a bare ParamType, or a fixed-size Array of one.
// Exactly one of the two is meaningful, selected by IsArray.
type DeclType struct {
	Scalar  ParamType
	IsArray bool
	Elem    ParamType
	Size    uint32
}

func Scalar(p ParamType) DeclType { return DeclType{Scalar: p} }

func Array(elem ParamType, size uint32) DeclType {
	return DeclType{IsArray: true, Elem: elem, Size: size}
}

// AsParamType returns the type this declaration behaves as when used
// as a value: itself if scalar, or its pointer-decayed form if array.
func (d DeclType) AsParamType() ParamType {
	if d.IsArray {
		return d.Elem.Decayed()
	}
	return d.Scalar
}

func (d DeclType) String() string {
	if d.IsArray {
		return fmt.Sprintf("%v[%d]", d.Elem, d.Size)
	}
	return d.Scalar.String()
}

// ByteSize is the storage this declaration occupies: elem_size*count
// for arrays (u8 arrays take 1 byte/elem, everything else 4), or the
// scalar's natural size (1 byte for u8, 4 otherwise; pointers are 4).
func (d DeclType) ByteSize() int {
	if d.IsArray {
		elemSize := 4
		if d.Elem.Base == U8 && d.Elem.Indirection == 0 {
			elemSize = 1
		}
		return elemSize * int(d.Size)
	}
	if d.Scalar.Base == U8 && d.Scalar.Indirection == 0 {
		return 1
	}
	return 4
}

// ExprType is the type an evaluated expression carries: a base
// primitive plus indirection. It is an alias of ParamType; the separate
// name marks types that flow through expression lowering rather than
// declarations.
type ExprType = ParamType
