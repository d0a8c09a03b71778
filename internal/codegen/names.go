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

import "fmt"

// Reserved runtime label names. User code cannot collide with these:
// user-visible labels all carry a USER_ prefix plus a numeric id.
const (
	argcGlobal = "ARGC_GLOBAL"
	argvGlobal = "ARGV_GLOBAL"

	getFloatBool         = "internal_get_float_bool"
	getFloatBoolFalse    = "internal_get_float_bool_false"
	getFloatBoolInv      = "internal_get_float_bool_inv"
	getFloatBoolInvFalse = "internal_get_float_bool_inv_false"
)

func fnLabel(id int) string    { return fmt.Sprintf("USER_SUB_%d", id) }
func fnEndLabel(id int) string { return fmt.Sprintf("USER_SUB_%d_END", id) }

func staticLabel(id int) string { return fmt.Sprintf("USER_STATIC_%d", id) }
func stringLabel(id int) string { return fmt.Sprintf("USER_STRING_%d", id) }

func ifLabel(cid int) string           { return fmt.Sprintf("IF_BRANCH_%d", cid) }
func elifLabel(cid, i int) string      { return fmt.Sprintf("IF_BRANCH_%d_ELIF_%d", cid, i) }
func elseLabel(cid int) string         { return fmt.Sprintf("IF_BRANCH_%d_ELSE", cid) }
func ifEndLabel(cid int) string        { return fmt.Sprintf("IF_BRANCH_%d_END", cid) }

func whileLabel(lid int) string    { return fmt.Sprintf("WHILE_BLOCK_%d", lid) }
func whileEndLabel(lid int) string { return fmt.Sprintf("WHILE_BLOCK_%d_END", lid) }
