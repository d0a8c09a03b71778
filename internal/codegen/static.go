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
	"fmt"
	"strconv"
	"strings"

	"ferritec/internal/asmbuilder"
	"ferritec/internal/ast"
	"ferritec/internal/cerr"
	"ferritec/internal/token"
)

func formatF32(f float32) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// emitStaticVar lowers one static variable declaration to its labeled
// data directive, per the (type, literal) emission table.
func (g *generator) emitStaticVar(vd *ast.VarDecl, id int) error {
	label := staticLabel(id)
	badInit := func(loc token.Location) error {
		return cerr.InvalidStaticVar(loc,
			fmt.Sprintf("initializer does not match declared type %v", vd.Type))
	}

	if vd.Type.IsArray {
		elem := vd.Type.Elem
		size := int(vd.Type.Size)
		isByte := elem.Base == ast.U8 && elem.Indirection == 0

		if vd.Init == nil {
			if isByte {
				g.asm.Data(label, ".byte", fmt.Sprintf("0 : %d", size))
			} else {
				g.asm.Data(label, ".word", fmt.Sprintf("0 : %d", size))
			}
			return nil
		}

		// u8 array initialized from a string literal of length N-1
		// becomes the NUL-terminated bytes themselves.
		if vd.Init.Kind == ast.InitScalar {
			if isByte && vd.Init.Scalar.Kind == ast.LitString {
				text := g.prog.Bank.String(vd.Init.Scalar.Str)
				if len(text) != size-1 {
					return cerr.InvalidStaticVar(vd.Init.Loc,
						fmt.Sprintf("string literal of length %d cannot initialize u8[%d]", len(text), size))
				}
				g.asm.Data(label, ".asciiz", `"`+text+`"`)
				return nil
			}
			return badInit(vd.Init.Loc)
		}

		if len(vd.Init.Elems) != size {
			return cerr.InvalidStaticVar(vd.Init.Loc,
				fmt.Sprintf("initializer has %d element(s), array has %d", len(vd.Init.Elems), size))
		}
		vals := make([]string, size)
		for i, el := range vd.Init.Elems {
			s, ok := staticElemValue(el, elem)
			if !ok {
				return badInit(vd.Init.Loc)
			}
			vals[i] = s
		}
		if isByte {
			g.asm.Data(label, ".byte", strings.Join(vals, " "))
		} else {
			g.asm.Data(label, ".word", strings.Join(vals, " "))
		}
		return nil
	}

	pt := vd.Type.Scalar
	switch {
	case pt.Indirection >= 1:
		if vd.Init == nil {
			g.asm.Data(label, ".word", "0")
			return nil
		}
		if pt.Base == ast.U8 && pt.Indirection == 1 &&
			vd.Init.Kind == ast.InitScalar && vd.Init.Scalar.Kind == ast.LitString {
			g.asm.Data(label, ".asciiz", `"`+g.prog.Bank.String(vd.Init.Scalar.Str)+`"`)
			return nil
		}
		return badInit(vd.Init.Loc)

	case pt.Base == ast.F32:
		if vd.Init == nil {
			g.asm.Data(label, ".float", "0.0")
			return nil
		}
		if vd.Init.Kind == ast.InitScalar && vd.Init.Scalar.Kind == ast.LitFloat {
			g.asm.Data(label, ".float", formatF32(vd.Init.Scalar.Float))
			return nil
		}
		return badInit(vd.Init.Loc)

	case pt.Base == ast.U8:
		if vd.Init == nil {
			g.asm.Data(label, ".byte", "0")
			return nil
		}
		if vd.Init.Kind == ast.InitScalar && vd.Init.Scalar.Kind == ast.LitInt {
			g.asm.Data(label, ".byte", strconv.Itoa(int(vd.Init.Scalar.Int)))
			return nil
		}
		return badInit(vd.Init.Loc)

	case pt.Base == ast.I32:
		if vd.Init == nil {
			g.asm.Data(label, ".word", "0")
			return nil
		}
		if vd.Init.Kind == ast.InitScalar && vd.Init.Scalar.Kind == ast.LitInt {
			g.asm.Data(label, ".word", strconv.Itoa(int(vd.Init.Scalar.Int)))
			return nil
		}
		return badInit(vd.Init.Loc)

	default: // U32
		if vd.Init == nil {
			g.asm.Data(label, ".word", "0")
			return nil
		}
		if vd.Init.Kind == ast.InitScalar && vd.Init.Scalar.Kind == ast.LitUint {
			g.asm.Data(label, ".word", strconv.FormatUint(uint64(vd.Init.Scalar.Uint), 10))
			return nil
		}
		return badInit(vd.Init.Loc)
	}
}

// staticElemValue renders one array initializer element for the data
// directive, or reports a type mismatch. f32 elements land in .word
// lists as their IEEE-754 bit patterns.
func staticElemValue(v ast.PrimitiveValue, elem ast.ParamType) (string, bool) {
	switch {
	case elem.Indirection == 0 && (elem.Base == ast.I32 || elem.Base == ast.U8) && v.Kind == ast.LitInt:
		return strconv.Itoa(int(v.Int)), true
	case elem.Indirection == 0 && elem.Base == ast.U32 && v.Kind == ast.LitUint:
		return strconv.FormatUint(uint64(v.Uint), 10), true
	case elem.Indirection == 0 && elem.Base == ast.F32 && v.Kind == ast.LitFloat:
		return fmt.Sprintf("0x%08x", asmbuilder.WordConstBitsOf(v.Float)), true
	default:
		return "", false
	}
}

// -----------------------------------------------------------------------------
// Local variable initialization

// emitLocalInits runs in the prologue after the stack-pointer
// adjustment: each initialized scalar is materialized into a temporary
// and stored at its slot; arrays are filled element by element.
func (g *generator) emitLocalInits(vars []ast.VarDecl) error {
	for _, vd := range vars {
		if vd.Init == nil {
			continue
		}
		off, _, ok := g.local.Offset(vd.Name.Value, 0)
		if !ok {
			return cerr.UndefinedIdent(vd.Name.Loc, g.prog.Bank.Ident(vd.Name.Value))
		}
		g.regs.Reset()

		if vd.Type.IsArray {
			if vd.Init.Kind != ast.InitArray {
				return cerr.InvalidLocalInit(vd.Init.Loc, "array variable requires a bracketed initializer list")
			}
			if len(vd.Init.Elems) != int(vd.Type.Size) {
				return cerr.InvalidLocalInit(vd.Init.Loc,
					fmt.Sprintf("initializer has %d element(s), array has %d", len(vd.Init.Elems), vd.Type.Size))
			}
			elem := vd.Type.Elem
			esize := 4
			if elem.Base == ast.U8 && elem.Indirection == 0 {
				esize = 1
			}
			for i, el := range vd.Init.Elems {
				if err := g.storeScalarInit(el, elem, off+i*esize, vd.Init.Loc); err != nil {
					return err
				}
			}
			continue
		}

		if vd.Init.Kind != ast.InitScalar {
			return cerr.InvalidLocalInit(vd.Init.Loc, "scalar variable cannot take an initializer list")
		}
		if err := g.storeScalarInit(vd.Init.Scalar, vd.Type.Scalar, off, vd.Init.Loc); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) storeScalarInit(v ast.PrimitiveValue, pt ast.ParamType, off int, loc token.Location) error {
	addr := g.stackAddr(off)
	switch {
	case v.Kind == ast.LitInt && pt.Base == ast.I32 && pt.Indirection == 0:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) {
			g.asm.Li(r, int64(v.Int))
			g.asm.Sw(r, addr)
		})
		g.regs.Free(t)
	case v.Kind == ast.LitInt && pt.Base == ast.U8 && pt.Indirection == 0:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) {
			g.asm.Li(r, int64(v.Int))
			g.asm.Sb(r, addr)
		})
		g.regs.Free(t)
	case v.Kind == ast.LitUint && pt.Base == ast.U32 && pt.Indirection == 0:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) {
			g.asm.Li(r, int64(v.Uint))
			g.asm.Sw(r, addr)
		})
		g.regs.Free(t)
	case v.Kind == ast.LitFloat && pt.Base == ast.F32 && pt.Indirection == 0:
		idx := g.asm.WordConst(asmbuilder.WordConstBitsOf(v.Float))
		t := g.regs.Alloc(ClassFloat)
		g.regs.WithFloat(t, AccessWrite, func(r string) {
			g.asm.LS(r, asmbuilder.LblOff("WORD_CONST", idx*4))
			g.asm.SS(r, addr)
		})
		g.regs.Free(t)
	case v.Kind == ast.LitString && pt.Base == ast.U8 && pt.Indirection == 1:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) {
			g.asm.La(r, stringLabel(v.Str))
			g.asm.Sw(r, addr)
		})
		g.regs.Free(t)
	default:
		return cerr.InvalidLocalInit(loc,
			fmt.Sprintf("initializer %v does not match declared type %v", v, pt))
	}
	return nil
}
