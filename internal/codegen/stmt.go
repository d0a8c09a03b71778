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

func (g *generator) genStmts(stmts []ast.Stmt) error {
	for _, s := range stmts {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// genStmt lowers one statement. The register bank is lexically scoped
// within a statement and reset before each one.
func (g *generator) genStmt(s ast.Stmt) error {
	g.regs.Reset()
	switch s := s.(type) {
	case *ast.AssignmentStmt:
		return g.genAssignment(s)
	case *ast.CallStmt:
		return g.genCall(s)
	case *ast.PrintStmt:
		return g.genPrint(s)
	case *ast.SyscallStmt:
		return g.genSyscall(s)
	case *ast.AsmStmt:
		return g.genAsm(s)
	case *ast.ControlStmt:
		return g.genControl(s)
	case *ast.LogicChainStmt:
		return g.genLogicChain(s)
	case *ast.WhileStmt:
		return g.genWhile(s)
	default:
		return cerr.InvalidOperation(s.Location(), "unknown statement form")
	}
}

// -----------------------------------------------------------------------------
// Assignment

// genRValue lowers an assignment target to the pointer it denotes.
func (g *generator) genRValue(rv token.Located[ast.RValue]) (ExprTemp, error) {
	switch r := rv.Value.(type) {
	case *ast.RVIdentifier:
		return g.addrOfIdent(r.Name)
	case *ast.RVDeref:
		t, err := g.genExpr(r.Inner)
		if err != nil {
			return ExprTemp{}, err
		}
		if !t.Type.IsPointer() {
			return ExprTemp{}, cerr.InvalidRValType(r.Loc)
		}
		return t, nil
	case *ast.RVIndex:
		return g.genIndexAddr(r.Array, r.Value, r.Loc)
	default:
		return ExprTemp{}, cerr.InvalidRValType(rv.Loc)
	}
}

func (g *generator) genAssignment(s *ast.AssignmentStmt) error {
	ptr, err := g.genRValue(s.RVal)
	if err != nil {
		return err
	}
	if !ptr.Type.IsPointer() {
		return cerr.InvalidRValType(s.RVal.Loc)
	}
	val, err := g.genExpr(s.LVal)
	if err != nil {
		return err
	}
	pointee := ptr.Type.DerefType()
	if !val.Type.Equal(pointee) {
		return cerr.InvalidLValType(s.RVal.Loc,
			fmt.Sprintf("cannot assign %v to a location of type %v", val.Type, pointee))
	}

	switch {
	case isF32Scalar(pointee):
		g.regs.WithInt(ptr.Reg, AccessRead, func(pr string) {
			g.regs.WithFloat(val.Reg, AccessRead, func(v string) {
				g.asm.SS(v, asmbuilder.RegOff(pr, 0))
			})
		})
	case pointee.Base == ast.U8 && pointee.Indirection == 0:
		g.regs.WithInt(ptr.Reg, AccessRead, func(pr string) {
			g.regs.WithInt(val.Reg, AccessRead, func(v string) {
				g.asm.Sb(v, asmbuilder.RegOff(pr, 0))
			})
		})
	default:
		g.regs.WithInt(ptr.Reg, AccessRead, func(pr string) {
			g.regs.WithInt(val.Reg, AccessRead, func(v string) {
				g.asm.Sw(v, asmbuilder.RegOff(pr, 0))
			})
		})
	}
	g.regs.Free(ptr.Reg)
	g.regs.Free(val.Reg)
	return nil
}

// -----------------------------------------------------------------------------
// Calls

func (g *generator) genCall(s *ast.CallStmt) error {
	argTypes, err := scope.ResolveCallTarget(g.local, g.global, s.Function)
	if err != nil {
		return err
	}
	if len(argTypes) != len(s.Args) {
		return cerr.InvalidArgCount(s.Function.Loc, g.prog.Bank.Ident(s.Function.Value), len(argTypes), len(s.Args))
	}

	argc := len(s.Args)
	if argc > 0 {
		g.asm.Addiu("sp", "sp", -4*argc)
	}
	g.extraShift += 4 * argc
	for i, argE := range s.Args {
		g.regs.Reset()
		t, err := g.genExpr(argE)
		if err != nil {
			g.extraShift -= 4 * argc
			return err
		}
		if !t.Type.Equal(argTypes[i]) {
			g.extraShift -= 4 * argc
			return cerr.InvalidArgType(argE.Location(),
				fmt.Sprintf("argument %d has type %v, expected %v", i+1, t.Type, argTypes[i]))
		}
		slot := asmbuilder.RegOff("sp", (argc-1-i)*4)
		if isF32Scalar(t.Type) {
			g.regs.WithFloat(t.Reg, AccessRead, func(r string) { g.asm.SS(r, slot) })
		} else {
			g.regs.WithInt(t.Reg, AccessRead, func(r string) { g.asm.Sw(r, slot) })
		}
		g.regs.Free(t.Reg)
	}
	g.extraShift -= 4 * argc

	g.asm.Jal(fnLabel(g.fnIDs[s.Function.Value]))
	return nil
}

// -----------------------------------------------------------------------------
// Syscalls and asm blocks

func isFloatRegName(reg string) bool { return reg == "f0" || reg == "f12" }

// genRegTransfer emits the load (in) or store (out) half of a syscall or
// asm block's register map. Every mapped identifier must be a
// stack-resident scalar whose class matches the register's.
func (g *generator) genRegTransfer(entries []ast.RegMapEntry, load bool) error {
	for _, ent := range entries {
		res, err := scope.ResolveIdent(g.local, g.global, ent.Ident, g.extraShift)
		if err != nil {
			return err
		}
		if res.Kind != scope.ResStack || res.Type.IsArray {
			return cerr.InvalidRegTransfer(ent.Ident.Loc, "register transfer requires a stack-resident scalar")
		}
		pt := res.Type.Scalar
		if isFloatRegName(ent.Reg.Value) != isF32Scalar(pt) {
			return cerr.InvalidRegTransfer(ent.Reg.Loc,
				fmt.Sprintf("register $%s cannot carry a value of type %v", ent.Reg.Value, pt))
		}
		addr := g.stackAddr(res.Offset)
		switch {
		case isF32Scalar(pt):
			if load {
				g.asm.LS(ent.Reg.Value, addr)
			} else {
				g.asm.SS(ent.Reg.Value, addr)
			}
		case pt.Base == ast.U8 && pt.Indirection == 0:
			if load {
				g.asm.Lb(ent.Reg.Value, addr)
			} else {
				g.asm.Sb(ent.Reg.Value, addr)
			}
		default:
			if load {
				g.asm.Lw(ent.Reg.Value, addr)
			} else {
				g.asm.Sw(ent.Reg.Value, addr)
			}
		}
	}
	return nil
}

func (g *generator) genSyscall(s *ast.SyscallStmt) error {
	if err := g.genRegTransfer(s.InMap, true); err != nil {
		return err
	}
	g.asm.Syscall(s.ID.Value)
	return g.genRegTransfer(s.OutMap, false)
}

func (g *generator) genAsm(s *ast.AsmStmt) error {
	if err := g.genRegTransfer(s.InMap, true); err != nil {
		return err
	}
	for _, line := range s.Lines {
		g.asm.Instr(line.Value)
	}
	return g.genRegTransfer(s.OutMap, false)
}

// -----------------------------------------------------------------------------
// Print

func (g *generator) genPrint(s *ast.PrintStmt) error {
	for _, arg := range s.Args {
		g.regs.Reset()
		t, err := g.genExpr(arg)
		if err != nil {
			return err
		}
		switch {
		case isF32Scalar(t.Type):
			g.regs.WithFloat(t.Reg, AccessRead, func(r string) { g.asm.MovS("f12", r) })
			g.asm.Syscall(2)
		case t.Type.Base == ast.U8 && t.Type.Indirection == 0:
			g.regs.WithInt(t.Reg, AccessRead, func(r string) { g.asm.Move("a0", r) })
			g.asm.Syscall(11)
		case t.Type.Base == ast.U8 && t.Type.Indirection == 1:
			g.regs.WithInt(t.Reg, AccessRead, func(r string) { g.asm.Move("a0", r) })
			g.asm.Syscall(4)
		case t.Type.Indirection > 0:
			g.regs.WithInt(t.Reg, AccessRead, func(r string) { g.asm.Move("a0", r) })
			g.asm.Syscall(34)
		case t.Type.Base == ast.U32:
			g.regs.WithInt(t.Reg, AccessRead, func(r string) { g.asm.Move("a0", r) })
			g.asm.Syscall(36)
		default:
			g.regs.WithInt(t.Reg, AccessRead, func(r string) { g.asm.Move("a0", r) })
			g.asm.Syscall(1)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Control flow

func (g *generator) genControl(s *ast.ControlStmt) error {
	switch s.Kind.Value {
	case ast.CtlBreak:
		id, ok := g.counter.CurrentLoop()
		if !ok {
			return cerr.InvalidControlFlow(s.Kind.Loc, "break outside of a loop")
		}
		g.asm.B(whileEndLabel(id))
	case ast.CtlContinue:
		id, ok := g.counter.CurrentLoop()
		if !ok {
			return cerr.InvalidControlFlow(s.Kind.Loc, "continue outside of a loop")
		}
		g.asm.B(whileLabel(id))
	case ast.CtlReturn:
		if !g.counter.InFunction() {
			return cerr.InvalidControlFlow(s.Kind.Loc, "return outside of a function")
		}
		g.asm.B(g.curFnEnd)
	}
	return nil
}

func (g *generator) genLogicChain(s *ast.LogicChainStmt) error {
	cid := g.counter.AllocIf()
	end := ifEndLabel(cid)

	// Label of the arm a failing condition falls through to.
	nextArm := func(elifIdx int) string {
		if elifIdx < len(s.Elifs) {
			return elifLabel(cid, elifIdx)
		}
		if s.HasElse {
			return elseLabel(cid)
		}
		return end
	}

	g.asm.OpenBlock(ifLabel(cid))
	if err := g.genCondition(s.If.Cond, nextArm(0)); err != nil {
		return err
	}
	if err := g.genStmts(s.If.Body); err != nil {
		return err
	}
	g.asm.B(end)

	for i, elif := range s.Elifs {
		g.asm.OpenBlock(elifLabel(cid, i))
		g.regs.Reset()
		if err := g.genCondition(elif.Cond, nextArm(i+1)); err != nil {
			return err
		}
		if err := g.genStmts(elif.Body); err != nil {
			return err
		}
		g.asm.B(end)
	}

	if s.HasElse {
		g.asm.OpenBlock(elseLabel(cid))
		if err := g.genStmts(s.Else); err != nil {
			return err
		}
	}
	g.asm.OpenBlock(end)
	return nil
}

func (g *generator) genWhile(s *ast.WhileStmt) error {
	lid := g.counter.AllocWhile()
	start, end := whileLabel(lid), whileEndLabel(lid)

	g.asm.OpenBlock(start)
	if err := g.genCondition(s.Cond, end); err != nil {
		return err
	}
	g.counter.PushLoop(lid)
	if err := g.genStmts(s.Body); err != nil {
		g.counter.PopLoop()
		return err
	}
	g.counter.PopLoop()
	g.asm.B(start)
	g.asm.OpenBlock(end)
	return nil
}
