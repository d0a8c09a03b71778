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

// Package bank implements the two-phase string interning pool shared by
// the lexer and everything downstream of it: identifiers and string
// literals are deduplicated into dense integer indices during lexing,
// then read only thereafter.
package bank

import "github.com/samber/lo"

// StringBank holds two independent append-only ordered sequences. A
// text that is already present returns its existing index rather than
// being appended again.
type StringBank struct {
	identifiers []string
	identIndex  map[string]int

	strings    []string
	stringsIdx map[string]int
}

func New() *StringBank {
	return &StringBank{
		identIndex: make(map[string]int),
		stringsIdx: make(map[string]int),
	}
}

// InternIdent returns the dense index for ident, interning it if this
// is the first occurrence.
func (b *StringBank) InternIdent(ident string) int {
	if idx, ok := b.identIndex[ident]; ok {
		return idx
	}
	idx := len(b.identifiers)
	b.identifiers = append(b.identifiers, ident)
	b.identIndex[ident] = idx
	return idx
}

// InternString returns the dense index for s, interning it if this is
// the first occurrence.
func (b *StringBank) InternString(s string) int {
	if idx, ok := b.stringsIdx[s]; ok {
		return idx
	}
	idx := len(b.strings)
	b.strings = append(b.strings, s)
	b.stringsIdx[s] = idx
	return idx
}

func (b *StringBank) Ident(idx int) string  { return b.identifiers[idx] }
func (b *StringBank) String(idx int) string { return b.strings[idx] }

// Identifiers returns a defensive copy of the dense identifier table in
// insertion order (index i is identifier i).
func (b *StringBank) Identifiers() []string {
	return lo.Map(b.identifiers, func(s string, _ int) string { return s })
}

func (b *StringBank) NumIdents() int  { return len(b.identifiers) }
func (b *StringBank) NumStrings() int { return len(b.strings) }
