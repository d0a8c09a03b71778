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
package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternDedup(t *testing.T) {
	b := New()
	a := b.InternIdent("foo")
	c := b.InternIdent("bar")
	again := b.InternIdent("foo")

	assert.Equal(t, a, again)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "foo", b.Ident(a))
	assert.Equal(t, "bar", b.Ident(c))
	assert.Equal(t, 2, b.NumIdents())
}

// Identifier and string pools are independent: the same text may hold
// different indices in each.
func TestPoolsIndependent(t *testing.T) {
	b := New()
	b.InternIdent("x")
	si := b.InternString("hello")
	ii := b.InternIdent("hello")

	assert.Equal(t, 0, si)
	assert.Equal(t, 1, ii)
	assert.Equal(t, "hello", b.String(si))
	assert.Equal(t, 1, b.NumStrings())
}

func TestIdentifiersSnapshot(t *testing.T) {
	b := New()
	b.InternIdent("a")
	b.InternIdent("b")
	ids := b.Identifiers()
	assert.Equal(t, []string{"a", "b"}, ids)

	ids[0] = "mutated"
	assert.Equal(t, "a", b.Ident(0))
}
