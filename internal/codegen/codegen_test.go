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

	"ferritec/internal/cerr"
	"ferritec/internal/lexer"
	"ferritec/internal/parser"
)

func compileText(t *testing.T, src string) (string, error) {
	t.Helper()
	toks, err := lexer.Lex([]byte(src))
	require.NoError(t, err)
	prog, err := parser.Parse(toks)
	require.NoError(t, err)
	return Generate(prog)
}

func mustCompile(t *testing.T, src string) string {
	t.Helper()
	out, err := compileText(t, src)
	require.NoError(t, err)
	return out
}

func requireTag(t *testing.T, err error, tag string) {
	t.Helper()
	require.Error(t, err)
	diag, ok := cerr.AsDiagnostic(err)
	require.True(t, ok, "error %v carries no diagnostic", err)
	assert.Equal(t, tag, diag.Tag)
}

// -----------------------------------------------------------------------------
// End-to-end scenarios

func TestHelloWorld(t *testing.T) {
	out := mustCompile(t, `program { print "hi\n"; }`)
	assert.Contains(t, out, `USER_STRING_0: .asciiz "hi\n"`)
	assert.Contains(t, out, "la $t0, USER_STRING_0")
	assert.Contains(t, out, "move $a0, $t0")
	assert.Contains(t, out, "li $v0, 4")
	assert.Contains(t, out, "li $v0, 10")
	assert.Contains(t, out, "syscall")
}

func TestIntArithmetic(t *testing.T) {
	out := mustCompile(t, "program { let a : i32 = 2, b : i32 = 3; print a + b; }")
	assert.Contains(t, out, "add $t0, $t0, $t1")
	assert.Contains(t, out, "li $v0, 1")
}

func TestFloatComparison(t *testing.T) {
	out := mustCompile(t, `
program {
	let x : f32 = 1.0, y : f32 = 2.0;
	if (x < y) { print 1; } else { print 0; }
}`)
	assert.Contains(t, out, "c.lt.s")
	assert.Contains(t, out, "jal internal_get_float_bool")
	assert.Contains(t, out, "beq $t0, $zero, IF_BRANCH_0_ELSE")
	assert.Contains(t, out, "IF_BRANCH_0_ELSE:")
	assert.Contains(t, out, "IF_BRANCH_0_END:")
	assert.Contains(t, out, "WORD_CONST:")
}

func TestWhileBreak(t *testing.T) {
	out := mustCompile(t, `
program {
	let i : i32 = 0;
	while (i < 5) {
		if (i == 3) { break; }
		i = i + 1;
	}
	print i;
}`)
	assert.Contains(t, out, "WHILE_BLOCK_0:")
	assert.Contains(t, out, "b WHILE_BLOCK_0_END")
	assert.Contains(t, out, "b WHILE_BLOCK_0")
	assert.Contains(t, out, "WHILE_BLOCK_0_END:")
	assert.Contains(t, out, "slt")
	assert.Contains(t, out, "seq")
}

func TestSyscallReadInt(t *testing.T) {
	out := mustCompile(t, `
program {
	let n : i32;
	syscall (5) { out: ($v0: n); }
	print n;
}`)
	assert.Contains(t, out, "li $v0, 5")
	assert.Contains(t, out, "sw $v0, 0($sp)")
	assert.Contains(t, out, "lw $t0, 0($sp)")
	assert.Contains(t, out, "li $v0, 1")
}

func TestStaticByteArray(t *testing.T) {
	out := mustCompile(t, "static buf : u8[4] = [1,2,3,4];\nprogram { print buf[2]; }")
	assert.Contains(t, out, "USER_STATIC_0: .byte 1 2 3 4")
	assert.Contains(t, out, "la $t0, USER_STATIC_0")
	assert.Contains(t, out, "lb $t0, 0($t0)")
	assert.Contains(t, out, "li $v0, 11")
}

func TestFunctionCall(t *testing.T) {
	out := mustCompile(t, `
sub show(v: i32) { print v; return; }
program { call show(42); }
`)
	assert.Contains(t, out, "USER_SUB_0:")
	assert.Contains(t, out, "USER_SUB_0_END:")
	assert.Contains(t, out, "addiu $sp, $sp, -4")
	assert.Contains(t, out, "sw $t0, 0($sp)")
	assert.Contains(t, out, "jal USER_SUB_0")
	assert.Contains(t, out, "b USER_SUB_0_END")
	assert.Contains(t, out, "jr $ra")
}

func TestAsmBlock(t *testing.T) {
	out := mustCompile(t, `
program {
	let a : i32 = 1;
	asm {
		"add $a0, $a0, $a0"
		;
		in: ($a0: a);
		out: ($a0: a);
	}
	print a;
}`)
	assert.Contains(t, out, "lw $a0, 0($sp)")
	assert.Contains(t, out, "add $a0, $a0, $a0")
	assert.Contains(t, out, "sw $a0, 0($sp)")
}

func TestPrintSelection(t *testing.T) {
	out := mustCompile(t, `
program {
	let f : f32 = 1.5, u : u32 = 7u, c : u8 = 65, p : &i32;
	print f;
	print u;
	print c;
	print p;
}`)
	assert.Contains(t, out, "mov.s $f12,")
	assert.Contains(t, out, "li $v0, 2")
	assert.Contains(t, out, "li $v0, 36")
	assert.Contains(t, out, "li $v0, 11")
	assert.Contains(t, out, "li $v0, 34")
}

func TestMemVarLoad(t *testing.T) {
	out := mustCompile(t, `
mem (0xFFFF0008) display : &u8;
program { *display = 42 as u8; }
`)
	assert.Contains(t, out, "li $t0, 4294901768")
	assert.Contains(t, out, "sb $t1, 0($t0)")
}

// -----------------------------------------------------------------------------
// Validation errors

func TestBreakOutsideLoop(t *testing.T) {
	_, err := compileText(t, "program { break; }")
	requireTag(t, err, "InvalidControlFlow")
}

func TestContinueOutsideLoop(t *testing.T) {
	_, err := compileText(t, "sub f() { continue; }\nprogram {}")
	requireTag(t, err, "InvalidControlFlow")
}

func TestReturnInProgramBody(t *testing.T) {
	_, err := compileText(t, "program { return; }")
	requireTag(t, err, "InvalidControlFlow")
}

func TestArrayReference(t *testing.T) {
	_, err := compileText(t, "program { let a: i32[10], p: &i32; p = &a; }")
	requireTag(t, err, "ArrayReference")
}

func TestMemReference(t *testing.T) {
	_, err := compileText(t, "mem (0xFFFF0000) leds : &u32;\nprogram { let p: &&u32; p = &leds; }")
	requireTag(t, err, "MemReference")
}

func TestAssignTypeMismatch(t *testing.T) {
	_, err := compileText(t, "program { let p: &i32; *p = 3.0f; }")
	requireTag(t, err, "InvalidLValType")
}

func TestFloatInCondition(t *testing.T) {
	_, err := compileText(t, "program { let x: f32 = 1.0; if (x) { print 1; } }")
	requireTag(t, err, "FloatInCondition")
}

func TestInvalidArgCount(t *testing.T) {
	_, err := compileText(t, "sub f(a: i32) {}\nprogram { call f(); }")
	requireTag(t, err, "InvalidArgCount")
}

func TestInvalidArgType(t *testing.T) {
	_, err := compileText(t, "sub f(a: i32) {}\nprogram { call f(2.0); }")
	requireTag(t, err, "InvalidArgType")
}

func TestShadowedFuncCall(t *testing.T) {
	_, err := compileText(t, "sub f() {}\nprogram { let f: i32; call f(); }")
	requireTag(t, err, "ShadowedFuncCall")
}

func TestUndefinedIdent(t *testing.T) {
	_, err := compileText(t, "program { print nope; }")
	requireTag(t, err, "UndefinedIdent")
}

func TestInvalidBinaryMix(t *testing.T) {
	_, err := compileText(t, "program { let a: i32 = 1, f: f32 = 2.0; print a + f; }")
	requireTag(t, err, "InvalidBinary")
}

func TestFloatModRejected(t *testing.T) {
	_, err := compileText(t, "program { let a: f32 = 1.0, b: f32 = 2.0; print a % b; }")
	requireTag(t, err, "InvalidBinary")
}

func TestInvalidStaticInit(t *testing.T) {
	_, err := compileText(t, `static n : i32 = 1.5;` + "\nprogram {}")
	requireTag(t, err, "InvalidStaticVar")
}

func TestStaticStringArrayLength(t *testing.T) {
	out := mustCompile(t, `static msg : u8[3] = "hi";`+"\nprogram {}")
	assert.Contains(t, out, `USER_STATIC_0: .asciiz "hi"`)

	_, err := compileText(t, `static msg : u8[3] = "hello";`+"\nprogram {}")
	requireTag(t, err, "InvalidStaticVar")
}

func TestInvalidRegTransfer(t *testing.T) {
	_, err := compileText(t, `
static n : i32 = 1;
program { syscall (1) { in: ($a0: n); } }`)
	requireTag(t, err, "InvalidRegTransfer")

	_, err = compileText(t, `
program { let f: f32; syscall (1) { in: ($a0: f); } }`)
	requireTag(t, err, "InvalidRegTransfer")
}

func TestLocalInitMismatch(t *testing.T) {
	_, err := compileText(t, "program { let a: i32 = 2u; }")
	requireTag(t, err, "InvalidLocalInit")
}

// -----------------------------------------------------------------------------
// Register bank spilling

func TestVirtualSpill(t *testing.T) {
	// Nine live operands force the ninth into a virtual slot; the
	// deepest reduction must route through the $t8 spill helper.
	out := mustCompile(t, `
program {
	let a : i32 = 1;
	print a + (a + (a + (a + (a + (a + (a + (a + a)))))));
}`)
	assert.Contains(t, out, "$t7")
	assert.Contains(t, out, "$t8")
	assert.Contains(t, out, "-4($sp)")
}

func TestCast(t *testing.T) {
	out := mustCompile(t, `
program {
	let f : f32 = 2.5, n : i32;
	n = f as i32;
	f = n as f32;
}`)
	assert.Contains(t, out, "cvt.w.s")
	assert.Contains(t, out, "mfc1")
	assert.Contains(t, out, "mtc1")
	assert.Contains(t, out, "cvt.s.w")
}

func TestPointerIndexScaling(t *testing.T) {
	out := mustCompile(t, `
program {
	let xs : i32[4] = [1,2,3,4], cs : u8[2] = [7,8], i : i32 = 1;
	print xs[i];
	print cs[i];
}`)
	// Word-sized elements scale the index by four; bytes do not.
	assert.Contains(t, out, "sll")
	assert.Contains(t, out, "addu")
	assert.Contains(t, out, "lb")
	assert.Contains(t, out, "lw")
}

func TestHelpersEmittedOnce(t *testing.T) {
	out := mustCompile(t, `
program {
	let x : f32 = 1.0, y : f32 = 2.0, a : i32, b : i32;
	a = x < y;
	b = x > y;
	print a, b;
}`)
	assert.Equal(t, 1, countOccurrences(out, "internal_get_float_bool:"))
	assert.Equal(t, 1, countOccurrences(out, "internal_get_float_bool_inv:"))
	assert.Contains(t, out, "jal internal_get_float_bool")
	assert.Contains(t, out, "jal internal_get_float_bool_inv")
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}
