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

// Package codegen walks a validated Program and drives the assembly
// builder: static data emission, function prologues/epilogues, and the
// type-directed expression and statement lowering, with temporaries
// managed by the register bank.
package codegen

import (
	"ferritec/internal/asmbuilder"
	"ferritec/internal/ast"
	"ferritec/internal/scope"
)

type generator struct {
	asm     *asmbuilder.Builder
	regs    *RegBank
	prog    *ast.Program
	global  *scope.GlobalScope
	counter *scope.ConstructCounter

	fnIDs     map[int]int // bank ident index -> function id
	staticIDs map[int]int // bank ident index -> static id

	// Per-function state.
	local      *scope.LocalScope
	curFnEnd   string
	extraShift int
}

// Generate lowers the whole Program to MARS/SPIM MIPS text, or returns
// the first ValidationError encountered.
func Generate(prog *ast.Program) (string, error) {
	global, err := scope.BuildGlobal(prog)
	if err != nil {
		return "", err
	}

	asm := asmbuilder.New()
	g := &generator{
		asm:       asm,
		regs:      NewRegBank(asm),
		prog:      prog,
		global:    global,
		counter:   scope.NewConstructCounter(),
		fnIDs:     make(map[int]int),
		staticIDs: make(map[int]int),
	}
	for i, fn := range prog.Funcs {
		g.fnIDs[fn.Name.Value] = i
	}
	for i, sv := range prog.StaticVars {
		g.staticIDs[sv.Name.Value] = i
	}

	if err := g.emitData(); err != nil {
		return "", err
	}
	if err := g.emitMain(); err != nil {
		return "", err
	}
	if err := g.emitFunctions(); err != nil {
		return "", err
	}
	g.emitTeardown()

	return g.asm.Render(), nil
}

func (g *generator) emitData() error {
	g.asm.Data(argcGlobal, ".word", "0")
	g.asm.Data(argvGlobal, ".word", "0")

	for i, sv := range g.prog.StaticVars {
		if err := g.emitStaticVar(sv, i); err != nil {
			return err
		}
	}
	for i := 0; i < g.prog.Bank.NumStrings(); i++ {
		g.asm.Data(stringLabel(i), ".asciiz", `"`+g.prog.Bank.String(i)+`"`)
	}
	return nil
}

// emitMain lowers the program body: save the CLI registers, adjust the
// stack for the local region (the body has no arguments and no
// return-address slot), run the body, and exit via syscall 10.
func (g *generator) emitMain() error {
	ls, err := scope.BuildProgramBody(g.prog.Body, g.prog.Bank)
	if err != nil {
		return err
	}
	g.local = ls
	g.curFnEnd = ""

	g.asm.OpenBlock("main")
	g.asm.Sw("a0", asmbuilder.Lbl(argcGlobal))
	g.asm.Sw("a1", asmbuilder.Lbl(argvGlobal))

	if ls.TotalStackSize > 0 {
		g.asm.Addiu("sp", "sp", -ls.TotalStackSize)
	}
	if err := g.emitLocalInits(g.prog.Body.Vars); err != nil {
		return err
	}
	if err := g.genStmts(g.prog.Body.Stmts); err != nil {
		return err
	}
	g.asm.Syscall(10)
	return nil
}

func (g *generator) emitFunctions() error {
	for i, fn := range g.prog.Funcs {
		ls, err := scope.BuildFunction(fn, g.prog.Bank)
		if err != nil {
			return err
		}
		g.local = ls
		g.curFnEnd = fnEndLabel(i)

		g.asm.OpenBlock(fnLabel(i))
		if adj := ls.FrameAdjust(); adj > 0 {
			g.asm.Addiu("sp", "sp", -adj)
		}
		g.asm.Sw("ra", g.stackAddr(ls.RAOffset()))
		if err := g.emitLocalInits(fn.Block.Vars); err != nil {
			return err
		}

		g.counter.EnterFunc()
		err = g.genStmts(fn.Block.Stmts)
		g.counter.LeaveFunc()
		if err != nil {
			return err
		}

		g.asm.OpenBlock(fnEndLabel(i))
		g.asm.Lw("ra", g.stackAddr(ls.RAOffset()))
		g.asm.Addiu("sp", "sp", ls.TotalStackSize)
		g.asm.Jr("ra")
	}
	return nil
}

// emitTeardown appends the runtime helper routines, emitted exactly
// once per program: they read the FP condition bit into a 0/1 word.
func (g *generator) emitTeardown() {
	g.asm.OpenBlock(getFloatBool)
	g.asm.Bc1f(getFloatBoolFalse)
	g.asm.Li("v0", 1)
	g.asm.Jr("ra")
	g.asm.OpenBlock(getFloatBoolFalse)
	g.asm.Li("v0", 0)
	g.asm.Jr("ra")

	g.asm.OpenBlock(getFloatBoolInv)
	g.asm.Bc1f(getFloatBoolInvFalse)
	g.asm.Li("v0", 0)
	g.asm.Jr("ra")
	g.asm.OpenBlock(getFloatBoolInvFalse)
	g.asm.Li("v0", 1)
	g.asm.Jr("ra")
}
