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

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented rendering of the whole Program, resolving
// interned identifier and string indices back through the bank.
func Dump(w io.Writer, p *Program) {
	d := &dumper{w: w, p: p}
	for _, mv := range p.MemVars {
		fmt.Fprintf(w, "mem (0x%x) %s: %v\n", mv.Addr, p.Bank.Ident(mv.Name.Value), mv.Type)
	}
	for _, sv := range p.StaticVars {
		fmt.Fprintf(w, "static %s\n", d.varDecl(sv))
	}
	for _, fn := range p.Funcs {
		args := make([]string, len(fn.Args))
		for i, a := range fn.Args {
			args[i] = fmt.Sprintf("%s: %v", p.Bank.Ident(a.Name.Value), a.Type)
		}
		fmt.Fprintf(w, "sub %s(%s)\n", p.Bank.Ident(fn.Name.Value), strings.Join(args, ", "))
		d.block(fn.Block, 1)
	}
	fmt.Fprintln(w, "program")
	d.block(p.Body, 1)
}

type dumper struct {
	w io.Writer
	p *Program
}

func (d *dumper) indent(depth int) {
	io.WriteString(d.w, strings.Repeat("  ", depth))
}

func (d *dumper) varDecl(vd *VarDecl) string {
	s := fmt.Sprintf("%s: %v", d.p.Bank.Ident(vd.Name.Value), vd.Type)
	if vd.Init == nil {
		return s
	}
	if vd.Init.Kind == InitScalar {
		return fmt.Sprintf("%s = %v", s, vd.Init.Scalar)
	}
	elems := make([]string, len(vd.Init.Elems))
	for i, el := range vd.Init.Elems {
		elems[i] = el.String()
	}
	return fmt.Sprintf("%s = [%s]", s, strings.Join(elems, ", "))
}

func (d *dumper) block(b FuncBlock, depth int) {
	for i := range b.Vars {
		d.indent(depth)
		fmt.Fprintf(d.w, "let %s\n", d.varDecl(&b.Vars[i]))
	}
	d.stmts(b.Stmts, depth)
}

func (d *dumper) stmts(stmts []Stmt, depth int) {
	for _, s := range stmts {
		d.stmt(s, depth)
	}
}

func (d *dumper) stmt(s Stmt, depth int) {
	d.indent(depth)
	switch s := s.(type) {
	case *AssignmentStmt:
		fmt.Fprintf(d.w, "%s = %s\n", d.rvalue(s.RVal.Value), d.expr(s.LVal))
	case *CallStmt:
		args := make([]string, len(s.Args))
		for i, a := range s.Args {
			args[i] = d.expr(a)
		}
		fmt.Fprintf(d.w, "call %s(%s)\n", d.p.Bank.Ident(s.Function.Value), strings.Join(args, ", "))
	case *PrintStmt:
		args := make([]string, len(s.Args))
		for i, a := range s.Args {
			args[i] = d.expr(a)
		}
		fmt.Fprintf(d.w, "print %s\n", strings.Join(args, ", "))
	case *SyscallStmt:
		fmt.Fprintf(d.w, "syscall (%d)%s\n", s.ID.Value, d.regMaps(s.InMap, s.OutMap))
	case *AsmStmt:
		fmt.Fprintf(d.w, "asm [%d line(s)]%s\n", len(s.Lines), d.regMaps(s.InMap, s.OutMap))
	case *ControlStmt:
		fmt.Fprintf(d.w, "%v\n", s.Kind.Value)
	case *LogicChainStmt:
		fmt.Fprintf(d.w, "if %s\n", d.expr(s.If.Cond))
		d.stmts(s.If.Body, depth+1)
		for _, e := range s.Elifs {
			d.indent(depth)
			fmt.Fprintf(d.w, "elif %s\n", d.expr(e.Cond))
			d.stmts(e.Body, depth+1)
		}
		if s.HasElse {
			d.indent(depth)
			fmt.Fprintln(d.w, "else")
			d.stmts(s.Else, depth+1)
		}
	case *WhileStmt:
		fmt.Fprintf(d.w, "while %s\n", d.expr(s.Cond))
		d.stmts(s.Body, depth+1)
	default:
		fmt.Fprintf(d.w, "%s\n", s.String())
	}
}

func (d *dumper) regMaps(in, out []RegMapEntry) string {
	var sb strings.Builder
	part := func(name string, entries []RegMapEntry) {
		if len(entries) == 0 {
			return
		}
		pairs := make([]string, len(entries))
		for i, e := range entries {
			pairs[i] = fmt.Sprintf("$%s: %s", e.Reg.Value, d.p.Bank.Ident(e.Ident.Value))
		}
		fmt.Fprintf(&sb, " %s: (%s)", name, strings.Join(pairs, ", "))
	}
	part("in", in)
	part("out", out)
	return sb.String()
}

func (d *dumper) rvalue(r RValue) string {
	switch r := r.(type) {
	case *RVIdentifier:
		return d.p.Bank.Ident(r.Name.Value)
	case *RVIndex:
		return fmt.Sprintf("%s[%s]", d.expr(r.Array), d.expr(r.Value))
	case *RVDeref:
		return "*" + d.expr(r.Inner)
	default:
		return r.String()
	}
}

func (d *dumper) expr(e Expr) string {
	switch e := e.(type) {
	case *PrimitiveExpr:
		if e.Val.Value.Kind == LitString {
			return fmt.Sprintf("%q", d.p.Bank.String(e.Val.Value.Str))
		}
		return e.Val.Value.String()
	case *IdentifierExpr:
		return d.p.Bank.Ident(e.Name.Value)
	case *UnaryExpr:
		return fmt.Sprintf("(%v%s)", e.Op.Value, d.expr(e.Operand))
	case *BinaryExpr:
		if e.Op.Value == IndexAccess {
			return fmt.Sprintf("%s[%s]", d.expr(e.Left), d.expr(e.Right))
		}
		return fmt.Sprintf("(%s %v %s)", d.expr(e.Left), e.Op.Value, d.expr(e.Right))
	case *CastExpr:
		return fmt.Sprintf("(%s as %v)", d.expr(e.Value), e.CastType)
	default:
		return e.String()
	}
}
