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

// Package asmbuilder accumulates data directives and labeled code
// blocks through a typed instruction-construction API, then renders
// them as MARS/SPIM-flavored MIPS text. It performs no validation of
// its own; codegen is responsible for only ever emitting well-formed
// operand combinations.
package asmbuilder

import (
	"fmt"
	"math"
	"strings"
)

// -----------------------------------------------------------------------------
// Operand — the addressing-form sum type

type operandKind int

const (
	kindReg operandKind = iota
	kindLabel
	kindRegOffset
	kindRegLabel
	kindLabelOffset
	kindLabelRegOffset
	kindRaw
	kindRawReg
)

// Operand renders one MIPS addressing form. Construct with the Reg /
// Lbl / RegOff / ... helpers below rather than the struct literal.
type Operand struct {
	kind   operandKind
	reg    string
	label  string
	offset int
	raw    uint32
}

func Reg(r string) Operand                   { return Operand{kind: kindReg, reg: r} }
func Lbl(label string) Operand                { return Operand{kind: kindLabel, label: label} }
func RegOff(r string, off int) Operand        { return Operand{kind: kindRegOffset, reg: r, offset: off} }
func RegLbl(r, label string) Operand          { return Operand{kind: kindRegLabel, reg: r, label: label} }
func LblOff(label string, off int) Operand    { return Operand{kind: kindLabelOffset, label: label, offset: off} }
func LblRegOff(label, r string, off int) Operand {
	return Operand{kind: kindLabelRegOffset, label: label, reg: r, offset: off}
}
func Raw(v uint32) Operand        { return Operand{kind: kindRaw, raw: v} }
func RawReg(v uint32, r string) Operand { return Operand{kind: kindRawReg, raw: v, reg: r} }

func (o Operand) String() string {
	switch o.kind {
	case kindReg:
		return "$" + o.reg
	case kindLabel:
		return o.label
	case kindRegOffset:
		return fmt.Sprintf("%d($%s)", o.offset, o.reg)
	case kindRegLabel:
		return fmt.Sprintf("%s($%s)", o.label, o.reg)
	case kindLabelOffset:
		return fmt.Sprintf("%s+%d", o.label, o.offset)
	case kindLabelRegOffset:
		return fmt.Sprintf("%s+%d($%s)", o.label, o.offset, o.reg)
	case kindRaw:
		return fmt.Sprintf("%d", o.raw)
	case kindRawReg:
		return fmt.Sprintf("%d($%s)", o.raw, o.reg)
	default:
		return "<invalid operand>"
	}
}

// -----------------------------------------------------------------------------
// Blocks and data

type block struct {
	label  string
	instrs []string
}

// DataDef is one labeled data directive, e.g. `USER_STATIC_0: .word 4`.
type DataDef struct {
	Label     string
	Directive string
	Values    []string
}

// Builder is a bag of code blocks (label + instruction list) and data
// definitions (label + directive), serialized to text on demand.
// Instructions always land in the last opened block ("the last emitted
// block"); instructions emitted before any block is opened are dropped.
type Builder struct {
	data         []DataDef
	blocks       []*block
	wordConsts   []uint32
	wordConstIdx map[uint32]int
}

func New() *Builder {
	return &Builder{wordConstIdx: make(map[uint32]int)}
}

// OpenBlock starts a new labeled code block, which becomes the target
// of all subsequent Emit calls until the next OpenBlock.
func (b *Builder) OpenBlock(label string) {
	b.blocks = append(b.blocks, &block{label: label})
}

// Emit appends a raw instruction line to the last opened block. A
// no-op if no block has been opened yet.
func (b *Builder) Emit(instr string) {
	if len(b.blocks) == 0 {
		return
	}
	last := b.blocks[len(b.blocks)-1]
	last.instrs = append(last.instrs, instr)
}

func (b *Builder) emitf(format string, args ...any) { b.Emit(fmt.Sprintf(format, args...)) }

// Data registers a labeled data directive.
func (b *Builder) Data(label, directive string, values ...string) {
	b.data = append(b.data, DataDef{Label: label, Directive: directive, Values: values})
}

// WordConst interns the IEEE-754 bit pattern of an f32 constant into
// the deduplicated WORD_CONST pool and returns its slot index.
func (b *Builder) WordConst(bits uint32) int {
	if idx, ok := b.wordConstIdx[bits]; ok {
		return idx
	}
	idx := len(b.wordConsts)
	b.wordConsts = append(b.wordConsts, bits)
	b.wordConstIdx[bits] = idx
	return idx
}

func WordConstBitsOf(f float32) uint32 { return math.Float32bits(f) }

// -----------------------------------------------------------------------------
// Typed instruction helpers

func (b *Builder) Move(dst, src string)        { b.emitf("move $%s, $%s", dst, src) }
func (b *Builder) MovS(dst, src string)        { b.emitf("mov.s $%s, $%s", dst, src) }
func (b *Builder) Li(dst string, imm int64)    { b.emitf("li $%s, %d", dst, imm) }
func (b *Builder) La(dst, label string)        { b.emitf("la $%s, %s", dst, label) }
func (b *Builder) LaAddr(dst string, addr Operand) { b.emitf("la $%s, %s", dst, addr) }

func (b *Builder) Lw(dst string, addr Operand) { b.emitf("lw $%s, %s", dst, addr) }
func (b *Builder) Sw(src string, addr Operand) { b.emitf("sw $%s, %s", src, addr) }
func (b *Builder) Lb(dst string, addr Operand) { b.emitf("lb $%s, %s", dst, addr) }
func (b *Builder) Sb(src string, addr Operand) { b.emitf("sb $%s, %s", src, addr) }
func (b *Builder) LS(dst string, addr Operand) { b.emitf("l.s $%s, %s", dst, addr) }
func (b *Builder) SS(src string, addr Operand) { b.emitf("s.s $%s, %s", src, addr) }

func (b *Builder) Add(dst, a, c string)  { b.emitf("add $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Addu(dst, a, c string) { b.emitf("addu $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Sub(dst, a, c string)  { b.emitf("sub $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Subu(dst, a, c string) { b.emitf("subu $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Mul(dst, a, c string)  { b.emitf("mul $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Div(a, c string)      { b.emitf("div $%s, $%s", a, c) }
func (b *Builder) Mflo(dst string)      { b.emitf("mflo $%s", dst) }
func (b *Builder) Mfhi(dst string)      { b.emitf("mfhi $%s", dst) }
func (b *Builder) Sll(dst, a string, shamt int) { b.emitf("sll $%s, $%s, %d", dst, a, shamt) }
func (b *Builder) And(dst, a, c string) { b.emitf("and $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Or(dst, a, c string)  { b.emitf("or $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Addi(dst, a string, imm int)  { b.emitf("addi $%s, $%s, %d", dst, a, imm) }
func (b *Builder) Addiu(dst, a string, imm int) { b.emitf("addiu $%s, $%s, %d", dst, a, imm) }

func (b *Builder) AddS(dst, a, c string) { b.emitf("add.s $%s, $%s, $%s", dst, a, c) }
func (b *Builder) SubS(dst, a, c string) { b.emitf("sub.s $%s, $%s, $%s", dst, a, c) }
func (b *Builder) MulS(dst, a, c string) { b.emitf("mul.s $%s, $%s, $%s", dst, a, c) }
func (b *Builder) DivS(dst, a, c string) { b.emitf("div.s $%s, $%s, $%s", dst, a, c) }
func (b *Builder) NegS(dst, src string)  { b.emitf("neg.s $%s, $%s", dst, src) }
func (b *Builder) CvtWS(dst, src string) { b.emitf("cvt.w.s $%s, $%s", dst, src) }
func (b *Builder) CvtSW(dst, src string) { b.emitf("cvt.s.w $%s, $%s", dst, src) }
func (b *Builder) Mtc1(src, dst string)  { b.emitf("mtc1 $%s, $%s", src, dst) }
func (b *Builder) Mfc1(dst, src string)  { b.emitf("mfc1 $%s, $%s", dst, src) }

func (b *Builder) Seq(dst, a, c string) { b.emitf("seq $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Sne(dst, a, c string) { b.emitf("sne $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Slt(dst, a, c string) { b.emitf("slt $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Sle(dst, a, c string) { b.emitf("sle $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Sgt(dst, a, c string) { b.emitf("sgt $%s, $%s, $%s", dst, a, c) }
func (b *Builder) Sge(dst, a, c string) { b.emitf("sge $%s, $%s, $%s", dst, a, c) }

func (b *Builder) CEqS(a, c string) { b.emitf("c.eq.s $%s, $%s", a, c) }
func (b *Builder) CLtS(a, c string) { b.emitf("c.lt.s $%s, $%s", a, c) }
func (b *Builder) CLeS(a, c string) { b.emitf("c.le.s $%s, $%s", a, c) }

func (b *Builder) Jr(reg string)           { b.emitf("jr $%s", reg) }
func (b *Builder) Jal(label string)        { b.emitf("jal %s", label) }
func (b *Builder) B(label string)          { b.emitf("b %s", label) }
func (b *Builder) Beq(a, c, label string)  { b.emitf("beq $%s, $%s, %s", a, c, label) }
func (b *Builder) Bne(a, c, label string)  { b.emitf("bne $%s, $%s, %s", a, c, label) }
func (b *Builder) Bc1t(label string)       { b.emitf("bc1t %s", label) }
func (b *Builder) Bc1f(label string)       { b.emitf("bc1f %s", label) }

// Syscall emits the code to invoke a specific syscall id: load it into
// $v0, then the syscall instruction.
func (b *Builder) Syscall(id uint32) {
	b.Li("v0", int64(id))
	b.Emit("syscall")
}

// Instr is the escape hatch for raw asm-block literals: emitted
// verbatim, with no `$` prefixing or validation.
func (b *Builder) Instr(text string) { b.Emit(text) }

// -----------------------------------------------------------------------------
// Rendering

// Render serializes the accumulated data and code into MARS/SPIM MIPS
// text: `.data`, the word-constant pool, every data definition, then
// `.text` and every code block in emission order.
func (b *Builder) Render() string {
	var sb strings.Builder

	sb.WriteString(".data\n")
	if len(b.wordConsts) > 0 {
		vals := make([]string, len(b.wordConsts))
		for i, bits := range b.wordConsts {
			vals[i] = fmt.Sprintf("0x%08x", bits)
		}
		fmt.Fprintf(&sb, "WORD_CONST: .word %s\n", strings.Join(vals, ", "))
	}
	for _, d := range b.data {
		fmt.Fprintf(&sb, "%s: %s %s\n", d.Label, d.Directive, strings.Join(d.Values, ", "))
	}

	sb.WriteString(".text\n")
	for _, blk := range b.blocks {
		fmt.Fprintf(&sb, "%s:\n", blk.label)
		for _, instr := range blk.instrs {
			fmt.Fprintf(&sb, "\t%s\n", instr)
		}
	}

	return sb.String()
}
