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

// Package scope builds the GlobalScope and per-function LocalScope from
// a parsed Program: stack layout, argument offsets, and the name
// resolution rules (get_var) that codegen drives identifier loads with.
// It is purely structural — nothing here emits assembly.
package scope

import (
	"github.com/samber/lo"

	"ferritec/internal/ast"
	"ferritec/internal/bank"
	"ferritec/internal/cerr"
	"ferritec/internal/token"
)

func roundUp4(n int) int {
	if n%4 == 0 {
		return n
	}
	return n + (4 - n%4)
}

// -----------------------------------------------------------------------------
// Global scope

type GlobalKind int

const (
	GStatic GlobalKind = iota
	GRawAddr
	GFunction
)

// GlobalEntry is a tagged union over the three ways a top-level name
// can resolve: a static variable, a memory-mapped raw address, or a
// function (its argument types, for arity/type checking at call sites).
type GlobalEntry struct {
	Kind     GlobalKind
	Type     ast.DeclType    // GStatic
	RawAddr  uint32          // GRawAddr
	RawType  ast.ParamType   // GRawAddr
	ArgTypes []ast.ParamType // GFunction
}

type GlobalScope struct {
	entries map[int]GlobalEntry
	bank    *bank.StringBank
}

// BuildGlobal walks every top-level definition and produces the global
// name table, or the first ValidationError encountered.
func BuildGlobal(prog *ast.Program) (*GlobalScope, error) {
	g := &GlobalScope{entries: make(map[int]GlobalEntry), bank: prog.Bank}

	for _, sv := range prog.StaticVars {
		g.entries[sv.Name.Value] = GlobalEntry{Kind: GStatic, Type: sv.Type}
	}
	for _, mv := range prog.MemVars {
		if mv.Type.Indirection < 1 {
			return nil, cerr.InvalidMemVarType(mv.Name.Loc)
		}
		g.entries[mv.Name.Value] = GlobalEntry{Kind: GRawAddr, RawAddr: mv.Addr, RawType: mv.Type}
	}
	for _, fn := range prog.Funcs {
		argTypes := lo.Map(fn.Args, func(a ast.TypedIdent, _ int) ast.ParamType { return a.Type })
		g.entries[fn.Name.Value] = GlobalEntry{Kind: GFunction, ArgTypes: argTypes}
	}
	return g, nil
}

// -----------------------------------------------------------------------------
// Local scope / stack layout

type localVar struct {
	Type        ast.DeclType
	RunningSize int // cumulative bytes laid out, including this variable
}

// LocalScope is the stack layout of one function (or the program
// body, which has no argument region and no return-address slot).
type LocalScope struct {
	vars           map[int]*localVar
	order          []int
	hasRA          bool
	ArgsSize       int // bytes, always a multiple of 4
	LocalsSize     int // bytes, padded to a multiple of 4
	TotalStackSize int // ArgsSize + (4 if hasRA) + LocalsSize, regions individually padded
}

// BuildFunction lays out a function's arguments, return-address slot,
// and locals in source order.
func BuildFunction(fn *ast.FuncDef, b *bank.StringBank) (*LocalScope, error) {
	return build(fn.Args, fn.Block.Vars, true, b)
}

// BuildProgramBody lays out the program entry's locals only: no
// argument region, no return-address slot.
func BuildProgramBody(block ast.FuncBlock, b *bank.StringBank) (*LocalScope, error) {
	return build(nil, block.Vars, false, b)
}

func build(args []ast.TypedIdent, vars []ast.VarDecl, hasRA bool, b *bank.StringBank) (*LocalScope, error) {
	ls := &LocalScope{vars: make(map[int]*localVar), hasRA: hasRA}
	running := 0

	for _, a := range args {
		if _, dup := ls.vars[a.Name.Value]; dup {
			return nil, cerr.Redefinition(a.Name.Loc, b.Ident(a.Name.Value))
		}
		running += 4 // every argument occupies 4 bytes regardless of primitive size
		ls.vars[a.Name.Value] = &localVar{Type: ast.Scalar(a.Type), RunningSize: running}
		ls.order = append(ls.order, a.Name.Value)
	}
	ls.ArgsSize = roundUp4(running)
	running = ls.ArgsSize

	if hasRA {
		running += 4
	}
	localsStart := running

	for _, vd := range vars {
		if _, dup := ls.vars[vd.Name.Value]; dup {
			return nil, cerr.Redefinition(vd.Name.Loc, b.Ident(vd.Name.Value))
		}
		running += vd.Type.ByteSize()
		ls.vars[vd.Name.Value] = &localVar{Type: vd.Type, RunningSize: running}
		ls.order = append(ls.order, vd.Name.Value)
	}
	ls.LocalsSize = roundUp4(running - localsStart)
	ls.TotalStackSize = localsStart + ls.LocalsSize

	return ls, nil
}

// Offset returns the stack-pointer-relative byte offset of name at
// call depth extraShift (the caller-pushed argument area live during
// an in-flight call; zero outside of one).
func (ls *LocalScope) Offset(name int, extraShift int) (int, ast.DeclType, bool) {
	v, ok := ls.vars[name]
	if !ok {
		return 0, ast.DeclType{}, false
	}
	return ls.TotalStackSize + extraShift - v.RunningSize, v.Type, true
}

func (ls *LocalScope) has(name int) bool {
	_, ok := ls.vars[name]
	return ok
}

// FrameAdjust is the stack-pointer decrement the prologue performs: the
// whole frame minus the argument region the caller already pushed.
func (ls *LocalScope) FrameAdjust() int { return ls.TotalStackSize - ls.ArgsSize }

// RAOffset is the stack-pointer-relative offset of the return-address
// slot. Only meaningful for function scopes (the program body has none).
func (ls *LocalScope) RAOffset() int { return ls.TotalStackSize - ls.ArgsSize - 4 }

// Names returns every declared name id in layout order (arguments
// first, then locals).
func (ls *LocalScope) Names() []int {
	return append([]int(nil), ls.order...)
}

// -----------------------------------------------------------------------------
// Name resolution

type ResolvedKind int

const (
	ResStack ResolvedKind = iota
	ResStatic
	ResRawAddr
)

// Resolved is what a plain identifier load resolves to: a stack slot,
// a static variable, or a raw memory address.
type Resolved struct {
	Kind    ResolvedKind
	Offset  int
	Type    ast.DeclType
	RawAddr uint32
}

// ResolveIdent implements get_var for an identifier used as a value:
// local shadows global silently; a function name used this way is
// FuncInExpr; otherwise UndefinedIdent. extraShift is the caller-pushed
// argument area live during an in-flight call (zero outside of one).
func ResolveIdent(local *LocalScope, global *GlobalScope, name token.Located[int], extraShift int) (Resolved, error) {
	if local != nil {
		if off, typ, ok := local.Offset(name.Value, extraShift); ok {
			return Resolved{Kind: ResStack, Offset: off, Type: typ}, nil
		}
	}
	if g, ok := global.entries[name.Value]; ok {
		switch g.Kind {
		case GStatic:
			return Resolved{Kind: ResStatic, Type: g.Type}, nil
		case GRawAddr:
			return Resolved{Kind: ResRawAddr, RawAddr: g.RawAddr, Type: ast.Scalar(g.RawType)}, nil
		case GFunction:
			return Resolved{}, cerr.FuncInExpr(name.Loc, global.bank.Ident(name.Value))
		}
	}
	return Resolved{}, cerr.UndefinedIdent(name.Loc, global.bank.Ident(name.Value))
}

// ResolveCallTarget implements get_var for a `call NAME(...)` site: a
// local of the same name shadowing the function is ShadowedFuncCall; a
// global name that isn't a function is NotAFunc.
func ResolveCallTarget(local *LocalScope, global *GlobalScope, name token.Located[int]) ([]ast.ParamType, error) {
	if local != nil && local.has(name.Value) {
		return nil, cerr.ShadowedFuncCall(name.Loc, global.bank.Ident(name.Value))
	}
	g, ok := global.entries[name.Value]
	if !ok {
		return nil, cerr.UndefinedIdent(name.Loc, global.bank.Ident(name.Value))
	}
	if g.Kind != GFunction {
		return nil, cerr.NotAFunc(name.Loc, global.bank.Ident(name.Value))
	}
	return g.ArgTypes, nil
}

// -----------------------------------------------------------------------------
// Construct counter

// ConstructCounter hands out fresh if-chain/while-loop IDs for label
// generation and tracks the active-loop stack plus the function
// currently being compiled, so break/continue/return can be validated
// against their enclosing construct. Owned by the codegen driver for
// the lifetime of one Program.
type ConstructCounter struct {
	nextIf    int
	nextWhile int
	loopStack []int
	inFunc    bool
}

func NewConstructCounter() *ConstructCounter { return &ConstructCounter{} }

func (c *ConstructCounter) AllocIf() int {
	id := c.nextIf
	c.nextIf++
	return id
}

func (c *ConstructCounter) AllocWhile() int {
	id := c.nextWhile
	c.nextWhile++
	return id
}

func (c *ConstructCounter) PushLoop(id int) { c.loopStack = append(c.loopStack, id) }

func (c *ConstructCounter) PopLoop() { c.loopStack = c.loopStack[:len(c.loopStack)-1] }

// CurrentLoop returns the innermost open loop id, or ok=false outside
// of any loop.
func (c *ConstructCounter) CurrentLoop() (int, bool) {
	if len(c.loopStack) == 0 {
		return 0, false
	}
	return c.loopStack[len(c.loopStack)-1], true
}

func (c *ConstructCounter) EnterFunc() { c.inFunc = true }
func (c *ConstructCounter) LeaveFunc() { c.inFunc = false }
func (c *ConstructCounter) InFunction() bool { return c.inFunc }
