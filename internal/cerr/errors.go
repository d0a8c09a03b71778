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

// Package cerr holds the three tagged error families the pipeline can
// fail with (lexing, parsing, and scope/type/codegen validation). Every
// value carries a Location and renders as "<Kind>: <description>
// <row>:<col>", the single diagnostic line the pipeline ever prints.
package cerr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"

	"ferritec/internal/token"
)

// Kind names one of the three error families without leaking Go's
// reflective type name into diagnostics.
type Kind string

const (
	KindLex      Kind = "LexError"
	KindParse    Kind = "ParseError"
	KindValidate Kind = "ValidationError"
)

// Diagnostic is the shape every compiler error implements.
type Diagnostic struct {
	Kind Kind
	Tag  string
	Msg  string
	Loc  token.Location
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s %s", d.Kind, d.Msg, d.Loc)
}

// AsDiagnostic unwraps the Diagnostic an error carries, seeing through
// the stack-trace wrapper.
func AsDiagnostic(err error) (*Diagnostic, bool) {
	var d *Diagnostic
	if stderrors.As(err, &d) {
		return d, true
	}
	return nil, false
}

func newLex(tag, msg string, loc token.Location) error {
	return errors.WithStack(&Diagnostic{Kind: KindLex, Tag: tag, Msg: msg, Loc: loc})
}

func newParse(tag, msg string, loc token.Location) error {
	return errors.WithStack(&Diagnostic{Kind: KindParse, Tag: tag, Msg: msg, Loc: loc})
}

func newValidate(tag, msg string, loc token.Location) error {
	return errors.WithStack(&Diagnostic{Kind: KindValidate, Tag: tag, Msg: msg, Loc: loc})
}

// --- LexError ---------------------------------------------------------

func UnexpectedEOF(loc token.Location) error {
	return newLex("UnexpectedEOF", "unexpected end of file", loc)
}

func InvalidNumber(loc token.Location, lexeme string) error {
	return newLex("InvalidNumber", fmt.Sprintf("invalid numeric literal %q", lexeme), loc)
}

func InvalidRegister(loc token.Location, name string) error {
	return newLex("InvalidRegister", fmt.Sprintf("invalid register name $%s", name), loc)
}

func UnexpectedChar(loc token.Location, c byte) error {
	return newLex("UnexpectedChar", fmt.Sprintf("unexpected character %q", c), loc)
}

// --- ParseError ---------------------------------------------------------

func ParseUnexpectedEOF(loc token.Location) error {
	return newParse("UnexpectedEOF", "unexpected end of file", loc)
}

func UnexpectedToken(loc token.Location, got string) error {
	return newParse("UnexpectedToken", fmt.Sprintf("unexpected token %s", got), loc)
}

func NoBody(loc token.Location) error {
	return newParse("NoBody", "program has no body", loc)
}

func BodyRedefinition(loc token.Location) error {
	return newParse("BodyRedefinition", "program body defined more than once", loc)
}

func InvalidRedefinition(loc token.Location, name string) error {
	return newParse("InvalidRedefinition", fmt.Sprintf("%q redefined", name), loc)
}

func NakedExpression(loc token.Location) error {
	return newParse("NakedExpression", "expression statement is missing '='", loc)
}

func InvalidOperation(loc token.Location, detail string) error {
	return newParse("InvalidOperation", detail, loc)
}

func DuplicateRegister(loc token.Location, reg string) error {
	return newParse("DuplicateRegister", fmt.Sprintf("register $%s repeated in map", reg), loc)
}

func ReservedWord(loc token.Location, kw string) error {
	return newParse("ReservedWord", fmt.Sprintf("%q is reserved and not implemented", kw), loc)
}

func ExpectedRValue(loc token.Location) error {
	return newParse("ExpectedRValue", "expression is not a valid assignment target", loc)
}

// --- ValidationError ---------------------------------------------------------

func MismatchedType(loc token.Location, detail string) error {
	return newValidate("MismatchedType", detail, loc)
}

func Redefinition(loc token.Location, name string) error {
	return newValidate("Redefinition", fmt.Sprintf("%q redefined in this scope", name), loc)
}

func UndefinedIdent(loc token.Location, name string) error {
	return newValidate("UndefinedIdent", fmt.Sprintf("undefined identifier %q", name), loc)
}

func NotAFunc(loc token.Location, name string) error {
	return newValidate("NotAFunc", fmt.Sprintf("%q is not a function", name), loc)
}

func ShadowedFuncCall(loc token.Location, name string) error {
	return newValidate("ShadowedFuncCall", fmt.Sprintf("local variable %q shadows function of the same name", name), loc)
}

func FuncInExpr(loc token.Location, name string) error {
	return newValidate("FuncInExpr", fmt.Sprintf("function %q used as a value", name), loc)
}

func InvalidMemVarType(loc token.Location) error {
	return newValidate("InvalidMemVarType", "mem-mapped variable must have indirection >= 1", loc)
}

func InvalidStaticVar(loc token.Location, detail string) error {
	return newValidate("InvalidStaticVar", detail, loc)
}

func InvalidLocalInit(loc token.Location, detail string) error {
	return newValidate("InvalidLocalInit", detail, loc)
}

func InvalidUnary(loc token.Location, detail string) error {
	return newValidate("InvalidUnary", detail, loc)
}

func InvalidBinary(loc token.Location, detail string) error {
	return newValidate("InvalidBinary", detail, loc)
}

func ArrayReference(loc token.Location) error {
	return newValidate("ArrayReference", "cannot take the address of an array", loc)
}

func MemReference(loc token.Location) error {
	return newValidate("MemReference", "cannot take the address of a mem-mapped variable", loc)
}

func InvalidRValType(loc token.Location) error {
	return newValidate("InvalidRValType", "assignment target does not evaluate to a pointer", loc)
}

func InvalidLValType(loc token.Location, detail string) error {
	return newValidate("InvalidLValType", detail, loc)
}

func InvalidRegTransfer(loc token.Location, detail string) error {
	return newValidate("InvalidRegTransfer", detail, loc)
}

func InvalidArgCount(loc token.Location, name string, want, got int) error {
	return newValidate("InvalidArgCount", fmt.Sprintf("%q expects %d argument(s), got %d", name, want, got), loc)
}

func InvalidArgType(loc token.Location, detail string) error {
	return newValidate("InvalidArgType", detail, loc)
}

func FloatInCondition(loc token.Location) error {
	return newValidate("FloatInCondition", "floating-point value used directly as a branch condition", loc)
}

func InvalidControlFlow(loc token.Location, detail string) error {
	return newValidate("InvalidControlFlow", detail, loc)
}

func InternalFloatReg(loc token.Location) error {
	return newValidate("InternalFloatReg", "internal invariant violated: expected a float register", loc)
}

func InternalIntReg(loc token.Location) error {
	return newValidate("InternalIntReg", "internal invariant violated: expected an integer register", loc)
}
