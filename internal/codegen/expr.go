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

	"ferritec/internal/asmbuilder"
	"ferritec/internal/ast"
	"ferritec/internal/cerr"
	"ferritec/internal/scope"
	"ferritec/internal/token"
)

// ExprTemp is a live expression value: the register (hardware or
// virtual slot) holding it, plus its type.
type ExprTemp struct {
	Reg  Temp
	Type ast.ExprType
}

func isF32Scalar(t ast.ExprType) bool {
	return t.Base == ast.F32 && t.Indirection == 0
}

func isIntScalar(t ast.ExprType) bool {
	return t.Indirection == 0 && t.Base != ast.F32
}

func (g *generator) stackAddr(off int) asmbuilder.Operand {
	return asmbuilder.RegOff("sp", off)
}

func (g *generator) genExpr(e ast.Expr) (ExprTemp, error) {
	switch e := e.(type) {
	case *ast.PrimitiveExpr:
		return g.genPrimitive(e)
	case *ast.IdentifierExpr:
		return g.genIdentLoad(e)
	case *ast.UnaryExpr:
		return g.genUnary(e)
	case *ast.BinaryExpr:
		if e.Op.Value == ast.IndexAccess {
			addr, err := g.genIndexAddr(e.Left, e.Right, e.Op.Loc)
			if err != nil {
				return ExprTemp{}, err
			}
			return g.derefTemp(addr)
		}
		return g.genBinary(e)
	case *ast.CastExpr:
		return g.genCast(e)
	default:
		return ExprTemp{}, cerr.InvalidOperation(e.Location(), "unknown expression form")
	}
}

func (g *generator) genPrimitive(e *ast.PrimitiveExpr) (ExprTemp, error) {
	v := e.Val.Value
	switch v.Kind {
	case ast.LitInt:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.Li(r, int64(v.Int)) })
		return ExprTemp{Reg: t, Type: ast.ParamType{Base: ast.I32}}, nil
	case ast.LitUint:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.Li(r, int64(v.Uint)) })
		return ExprTemp{Reg: t, Type: ast.ParamType{Base: ast.U32}}, nil
	case ast.LitFloat:
		idx := g.asm.WordConst(asmbuilder.WordConstBitsOf(v.Float))
		t := g.regs.Alloc(ClassFloat)
		g.regs.WithFloat(t, AccessWrite, func(r string) {
			g.asm.LS(r, asmbuilder.LblOff("WORD_CONST", idx*4))
		})
		return ExprTemp{Reg: t, Type: ast.ParamType{Base: ast.F32}}, nil
	case ast.LitString:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.La(r, stringLabel(v.Str)) })
		return ExprTemp{Reg: t, Type: ast.ParamType{Base: ast.U8, Indirection: 1}}, nil
	default:
		return ExprTemp{}, cerr.InvalidOperation(e.Val.Loc, "unknown literal kind")
	}
}

func (g *generator) genIdentLoad(e *ast.IdentifierExpr) (ExprTemp, error) {
	res, err := scope.ResolveIdent(g.local, g.global, e.Name, g.extraShift)
	if err != nil {
		return ExprTemp{}, err
	}

	switch res.Kind {
	case scope.ResRawAddr:
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.Li(r, int64(res.RawAddr)) })
		return ExprTemp{Reg: t, Type: res.Type.AsParamType()}, nil

	case scope.ResStack:
		addr := g.stackAddr(res.Offset)
		if res.Type.IsArray {
			t := g.regs.Alloc(ClassInt)
			g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.LaAddr(r, addr) })
			return ExprTemp{Reg: t, Type: res.Type.AsParamType()}, nil
		}
		pt := res.Type.Scalar
		switch {
		case isF32Scalar(pt):
			t := g.regs.Alloc(ClassFloat)
			g.regs.WithFloat(t, AccessWrite, func(r string) { g.asm.LS(r, addr) })
			return ExprTemp{Reg: t, Type: pt}, nil
		case pt.Base == ast.U8 && pt.Indirection == 0:
			t := g.regs.Alloc(ClassInt)
			g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.Lb(r, addr) })
			return ExprTemp{Reg: t, Type: pt}, nil
		default:
			t := g.regs.Alloc(ClassInt)
			g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.Lw(r, addr) })
			return ExprTemp{Reg: t, Type: pt}, nil
		}

	case scope.ResStatic:
		label := staticLabel(g.staticIDs[e.Name.Value])
		if res.Type.IsArray || res.Type.Scalar.IsPointer() {
			t := g.regs.Alloc(ClassInt)
			g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.La(r, label) })
			return ExprTemp{Reg: t, Type: res.Type.AsParamType()}, nil
		}
		pt := res.Type.Scalar
		switch {
		case isF32Scalar(pt):
			t := g.regs.Alloc(ClassFloat)
			g.regs.WithFloat(t, AccessWrite, func(r string) { g.asm.LS(r, asmbuilder.Lbl(label)) })
			return ExprTemp{Reg: t, Type: pt}, nil
		case pt.Base == ast.U8:
			t := g.regs.Alloc(ClassInt)
			g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.Lb(r, asmbuilder.Lbl(label)) })
			return ExprTemp{Reg: t, Type: pt}, nil
		default:
			t := g.regs.Alloc(ClassInt)
			g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.Lw(r, asmbuilder.Lbl(label)) })
			return ExprTemp{Reg: t, Type: pt}, nil
		}
	}
	return ExprTemp{}, cerr.UndefinedIdent(e.Name.Loc, g.prog.Bank.Ident(e.Name.Value))
}

// derefTemp loads through a pointer temp, reusing its register when the
// pointee stays in the integer class.
func (g *generator) derefTemp(ptr ExprTemp) (ExprTemp, error) {
	pointee := ptr.Type.DerefType()
	switch {
	case isF32Scalar(pointee):
		dst := g.regs.Alloc(ClassFloat)
		g.regs.WithInt(ptr.Reg, AccessRead, func(pr string) {
			g.regs.WithFloat(dst, AccessWrite, func(fr string) {
				g.asm.LS(fr, asmbuilder.RegOff(pr, 0))
			})
		})
		g.regs.Free(ptr.Reg)
		return ExprTemp{Reg: dst, Type: pointee}, nil
	case pointee.Base == ast.U8 && pointee.Indirection == 0:
		g.regs.WithInt(ptr.Reg, AccessReadWrite, func(r string) {
			g.asm.Lb(r, asmbuilder.RegOff(r, 0))
		})
		return ExprTemp{Reg: ptr.Reg, Type: pointee}, nil
	default:
		g.regs.WithInt(ptr.Reg, AccessReadWrite, func(r string) {
			g.asm.Lw(r, asmbuilder.RegOff(r, 0))
		})
		return ExprTemp{Reg: ptr.Reg, Type: pointee}, nil
	}
}

// -----------------------------------------------------------------------------
// Unary operators

func (g *generator) genUnary(e *ast.UnaryExpr) (ExprTemp, error) {
	if e.Op.Value == ast.Reference {
		return g.genReference(e)
	}

	val, err := g.genExpr(e.Operand)
	if err != nil {
		return ExprTemp{}, err
	}

	switch e.Op.Value {
	case ast.Negation:
		switch {
		case isF32Scalar(val.Type):
			g.regs.WithFloat(val.Reg, AccessReadWrite, func(r string) { g.asm.NegS(r, r) })
			return val, nil
		case val.Type.Base == ast.I32 && val.Type.Indirection == 0:
			g.regs.WithInt(val.Reg, AccessReadWrite, func(r string) { g.asm.Sub(r, "zero", r) })
			return val, nil
		default:
			return ExprTemp{}, cerr.InvalidUnary(e.Op.Loc, fmt.Sprintf("cannot negate a value of type %v", val.Type))
		}

	case ast.LogicNot:
		if isF32Scalar(val.Type) {
			zidx := g.asm.WordConst(asmbuilder.WordConstBitsOf(0))
			zero := ExprTemp{Reg: g.regs.Alloc(ClassFloat), Type: val.Type}
			g.regs.WithFloat(zero.Reg, AccessWrite, func(r string) {
				g.asm.LS(r, asmbuilder.LblOff("WORD_CONST", zidx*4))
			})
			return g.floatBoolResult(val, zero, func(a, b string) { g.asm.CEqS(a, b) }, getFloatBool, e.Op.Loc)
		}
		g.regs.WithInt(val.Reg, AccessReadWrite, func(r string) { g.asm.Sne(r, r, "zero") })
		val.Type = ast.ParamType{Base: ast.I32}
		return val, nil

	case ast.Deref:
		if !val.Type.IsPointer() {
			return ExprTemp{}, cerr.InvalidUnary(e.Op.Loc, fmt.Sprintf("cannot dereference a value of type %v", val.Type))
		}
		return g.derefTemp(val)
	}
	return ExprTemp{}, cerr.InvalidUnary(e.Op.Loc, "unknown unary operator")
}

// genReference lowers `&x` and `&a[i]`; anything else under `&` is
// rejected.
func (g *generator) genReference(e *ast.UnaryExpr) (ExprTemp, error) {
	switch opnd := e.Operand.(type) {
	case *ast.IdentifierExpr:
		return g.addrOfIdent(opnd.Name)
	case *ast.BinaryExpr:
		if opnd.Op.Value == ast.IndexAccess {
			return g.genIndexAddr(opnd.Left, opnd.Right, opnd.Op.Loc)
		}
	}
	return ExprTemp{}, cerr.InvalidUnary(e.Op.Loc, "'&' requires an identifier or an index expression")
}

// addrOfIdent materializes a pointer to a named variable. Arrays and
// mem-mapped variables cannot be referenced.
func (g *generator) addrOfIdent(name token.Located[int]) (ExprTemp, error) {
	res, err := scope.ResolveIdent(g.local, g.global, name, g.extraShift)
	if err != nil {
		return ExprTemp{}, err
	}
	switch res.Kind {
	case scope.ResStack:
		if res.Type.IsArray {
			return ExprTemp{}, cerr.ArrayReference(name.Loc)
		}
		t := g.regs.Alloc(ClassInt)
		addr := g.stackAddr(res.Offset)
		g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.LaAddr(r, addr) })
		return ExprTemp{Reg: t, Type: res.Type.Scalar.RefType()}, nil
	case scope.ResStatic:
		if res.Type.IsArray {
			return ExprTemp{}, cerr.ArrayReference(name.Loc)
		}
		label := staticLabel(g.staticIDs[name.Value])
		t := g.regs.Alloc(ClassInt)
		g.regs.WithInt(t, AccessWrite, func(r string) { g.asm.La(r, label) })
		return ExprTemp{Reg: t, Type: res.Type.Scalar.RefType()}, nil
	case scope.ResRawAddr:
		return ExprTemp{}, cerr.MemReference(name.Loc)
	}
	return ExprTemp{}, cerr.UndefinedIdent(name.Loc, g.prog.Bank.Ident(name.Value))
}

// genIndexAddr computes `ptr + scaled_index` without dereferencing: the
// shared address path of index loads, index assignment targets, and
// `&a[i]`. Word-sized pointees scale the index by 4; u8 pointees are
// byte-addressed.
func (g *generator) genIndexAddr(arrE, idxE ast.Expr, loc token.Location) (ExprTemp, error) {
	arr, err := g.genExpr(arrE)
	if err != nil {
		return ExprTemp{}, err
	}
	idx, err := g.genExpr(idxE)
	if err != nil {
		return ExprTemp{}, err
	}
	if !arr.Type.IsPointer() {
		return ExprTemp{}, cerr.InvalidBinary(loc, fmt.Sprintf("cannot index a value of type %v", arr.Type))
	}
	if !isIntScalar(idx.Type) {
		return ExprTemp{}, cerr.InvalidBinary(loc, fmt.Sprintf("array index must be an integer scalar, got %v", idx.Type))
	}

	pointee := arr.Type.DerefType()
	byteAddressed := pointee.Base == ast.U8 && pointee.Indirection == 0
	g.regs.WithInt(arr.Reg, AccessReadWrite, func(a string) {
		g.regs.WithInt(idx.Reg, AccessReadWrite, func(i string) {
			if !byteAddressed {
				g.asm.Sll(i, i, 2)
			}
			g.asm.Addu(a, a, i)
		})
	})
	g.regs.Free(idx.Reg)
	return ExprTemp{Reg: arr.Reg, Type: arr.Type}, nil
}

// -----------------------------------------------------------------------------
// Binary operators

// intOp folds r into l with a three-address integer emitter and frees r.
func (g *generator) intOp(l, r ExprTemp, emit func(d, a, b string)) ExprTemp {
	g.regs.WithInt(l.Reg, AccessReadWrite, func(a string) {
		g.regs.WithInt(r.Reg, AccessRead, func(b string) { emit(a, a, b) })
	})
	g.regs.Free(r.Reg)
	return l
}

func (g *generator) floatOp(l, r ExprTemp, emit func(d, a, b string)) ExprTemp {
	g.regs.WithFloat(l.Reg, AccessReadWrite, func(a string) {
		g.regs.WithFloat(r.Reg, AccessRead, func(b string) { emit(a, a, b) })
	})
	g.regs.Free(r.Reg)
	return l
}

func (g *generator) genBinary(e *ast.BinaryExpr) (ExprTemp, error) {
	l, err := g.genExpr(e.Left)
	if err != nil {
		return ExprTemp{}, err
	}
	r, err := g.genExpr(e.Right)
	if err != nil {
		return ExprTemp{}, err
	}

	op := e.Op.Value
	if op.IsCmp() {
		return g.genCompare(e.Op, l, r)
	}

	loc := e.Op.Loc
	mismatch := func() error {
		return cerr.InvalidBinary(loc, fmt.Sprintf("operator %v cannot combine %v and %v", op, l.Type, r.Type))
	}

	switch op {
	case ast.Add, ast.Sub:
		switch {
		case l.Type.IsPointer() && isIntScalar(r.Type):
			return g.pointerArith(l, r, op == ast.Sub), nil
		case op == ast.Add && isIntScalar(l.Type) && r.Type.IsPointer():
			return g.pointerArith(r, l, false), nil
		case l.Type.Equal(r.Type) && l.Type.Base == ast.I32 && l.Type.Indirection == 0:
			if op == ast.Add {
				return g.intOp(l, r, g.asm.Add), nil
			}
			return g.intOp(l, r, g.asm.Sub), nil
		case l.Type.Equal(r.Type) && isIntScalar(l.Type):
			if op == ast.Add {
				return g.intOp(l, r, g.asm.Addu), nil
			}
			return g.intOp(l, r, g.asm.Subu), nil
		case l.Type.Equal(r.Type) && isF32Scalar(l.Type):
			if op == ast.Add {
				return g.floatOp(l, r, g.asm.AddS), nil
			}
			return g.floatOp(l, r, g.asm.SubS), nil
		default:
			return ExprTemp{}, mismatch()
		}

	case ast.Mult:
		switch {
		case l.Type.Equal(r.Type) && isIntScalar(l.Type):
			return g.intOp(l, r, g.asm.Mul), nil
		case l.Type.Equal(r.Type) && isF32Scalar(l.Type):
			return g.floatOp(l, r, g.asm.MulS), nil
		default:
			return ExprTemp{}, mismatch()
		}

	case ast.Div:
		switch {
		case l.Type.Equal(r.Type) && isIntScalar(l.Type):
			return g.intOp(l, r, func(d, a, b string) {
				g.asm.Div(a, b)
				g.asm.Mflo(d)
			}), nil
		case l.Type.Equal(r.Type) && isF32Scalar(l.Type):
			return g.floatOp(l, r, g.asm.DivS), nil
		default:
			return ExprTemp{}, mismatch()
		}

	case ast.Mod:
		if l.Type.Equal(r.Type) && isIntScalar(l.Type) {
			return g.intOp(l, r, func(d, a, b string) {
				g.asm.Div(a, b)
				g.asm.Mfhi(d)
			}), nil
		}
		return ExprTemp{}, mismatch()

	case ast.And:
		if l.Type.Equal(r.Type) && isIntScalar(l.Type) {
			return g.intOp(l, r, g.asm.And), nil
		}
		return ExprTemp{}, mismatch()

	case ast.Or:
		if l.Type.Equal(r.Type) && isIntScalar(l.Type) {
			return g.intOp(l, r, g.asm.Or), nil
		}
		return ExprTemp{}, mismatch()
	}
	return ExprTemp{}, mismatch()
}

// pointerArith emits ptr +/- int with the index scaled by 4 unless the
// pointee is a bare u8. The result keeps the pointer's type.
func (g *generator) pointerArith(ptr, offset ExprTemp, sub bool) ExprTemp {
	pointee := ptr.Type.DerefType()
	byteAddressed := pointee.Base == ast.U8 && pointee.Indirection == 0
	g.regs.WithInt(ptr.Reg, AccessReadWrite, func(a string) {
		g.regs.WithInt(offset.Reg, AccessReadWrite, func(i string) {
			if !byteAddressed {
				g.asm.Sll(i, i, 2)
			}
			if sub {
				g.asm.Subu(a, a, i)
			} else {
				g.asm.Addu(a, a, i)
			}
		})
	})
	g.regs.Free(offset.Reg)
	return ptr
}

func (g *generator) genCompare(op token.Located[ast.BinaryOp], l, r ExprTemp) (ExprTemp, error) {
	if isF32Scalar(l.Type) && isF32Scalar(r.Type) {
		var cmp func(a, b string)
		helper := getFloatBool
		switch op.Value {
		case ast.Equal:
			cmp = g.asm.CEqS
		case ast.NotEq:
			cmp, helper = g.asm.CEqS, getFloatBoolInv
		case ast.Lt:
			cmp = g.asm.CLtS
		case ast.Le:
			cmp = g.asm.CLeS
		case ast.Gt:
			cmp, helper = g.asm.CLeS, getFloatBoolInv
		case ast.Ge:
			cmp, helper = g.asm.CLtS, getFloatBoolInv
		}
		return g.floatBoolResult(l, r, func(a, b string) { cmp(a, b) }, helper, op.Loc)
	}

	if !l.Type.Equal(r.Type) || isF32Scalar(l.Type) {
		return ExprTemp{}, cerr.InvalidBinary(op.Loc, fmt.Sprintf("operator %v cannot compare %v and %v", op.Value, l.Type, r.Type))
	}

	var emit func(d, a, b string)
	switch op.Value {
	case ast.Equal:
		emit = g.asm.Seq
	case ast.NotEq:
		emit = g.asm.Sne
	case ast.Lt:
		emit = g.asm.Slt
	case ast.Le:
		emit = g.asm.Sle
	case ast.Gt:
		emit = g.asm.Sgt
	case ast.Ge:
		emit = g.asm.Sge
	}
	res := g.intOp(l, r, emit)
	res.Type = ast.ParamType{Base: ast.I32}
	return res, nil
}

// floatBoolResult emits a float condition-flag compare followed by a
// call to one of the internal_get_float_bool helpers, and moves the 0/1
// word out of $v0 into a fresh integer temp.
func (g *generator) floatBoolResult(l, r ExprTemp, cmp func(a, b string), helper string, loc token.Location) (ExprTemp, error) {
	g.regs.WithFloat(l.Reg, AccessRead, func(a string) {
		g.regs.WithFloat(r.Reg, AccessRead, func(b string) { cmp(a, b) })
	})
	g.asm.Jal(helper)
	g.regs.Free(l.Reg)
	g.regs.Free(r.Reg)
	dst := g.regs.Alloc(ClassInt)
	g.regs.WithInt(dst, AccessWrite, func(d string) { g.asm.Move(d, "v0") })
	return ExprTemp{Reg: dst, Type: ast.ParamType{Base: ast.I32}}, nil
}

// -----------------------------------------------------------------------------
// Casts

func (g *generator) genCast(e *ast.CastExpr) (ExprTemp, error) {
	val, err := g.genExpr(e.Value)
	if err != nil {
		return ExprTemp{}, err
	}
	from, to := val.Type, e.CastType
	switch {
	case isF32Scalar(from) && !isF32Scalar(to):
		dst := g.regs.Alloc(ClassInt)
		g.regs.WithFloat(val.Reg, AccessReadWrite, func(f string) {
			g.asm.CvtWS(f, f)
			g.regs.WithInt(dst, AccessWrite, func(r string) { g.asm.Mfc1(r, f) })
		})
		g.regs.Free(val.Reg)
		return ExprTemp{Reg: dst, Type: to}, nil
	case !isF32Scalar(from) && isF32Scalar(to):
		dst := g.regs.Alloc(ClassFloat)
		g.regs.WithInt(val.Reg, AccessRead, func(r string) {
			g.regs.WithFloat(dst, AccessWrite, func(f string) {
				g.asm.Mtc1(r, f)
				g.asm.CvtSW(f, f)
			})
		})
		g.regs.Free(val.Reg)
		return ExprTemp{Reg: dst, Type: to}, nil
	default:
		// Same register class: the cast is a bit-wise reinterpretation,
		// no instructions needed.
		val.Type = to
		return val, nil
	}
}

// genCondition lowers a boolean context (if/while head): the value must
// not be a float scalar, and the branch to falseLabel is taken when it
// is zero.
func (g *generator) genCondition(cond ast.Expr, falseLabel string) error {
	t, err := g.genExpr(cond)
	if err != nil {
		return err
	}
	if isF32Scalar(t.Type) {
		return cerr.FloatInCondition(cond.Location())
	}
	if t.Reg.Class == ClassFloat {
		return cerr.InternalIntReg(cond.Location())
	}
	g.regs.WithInt(t.Reg, AccessRead, func(r string) { g.asm.Beq(r, "zero", falseLabel) })
	g.regs.Free(t.Reg)
	return nil
}
