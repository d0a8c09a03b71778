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

// Package cmd wires the compiler pipeline behind the command-line
// front-end: read the source, append the standard library blob, run
// lex/parse/codegen, and write the assembly (or dump an intermediate
// stage and stop).
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"ferritec/internal/ast"
	"ferritec/internal/codegen"
	"ferritec/internal/lexer"
	"ferritec/internal/parser"
	"ferritec/internal/stdlib"
)

var (
	outPath    string
	debugStage string
)

var rootCmd = &cobra.Command{
	Use:           "ferritec SOURCEFILE",
	Short:         "Compile Ferrite source to MARS/SPIM MIPS assembly",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          compile,
}

func init() {
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "out.asm", "output assembly file")
	rootCmd.Flags().StringVar(&debugStage, "debug-stage", "", "stop after a pipeline stage and dump it (lex|parse)")
}

// Execute runs the root command. Pipeline errors (the InternalIntReg /
// InternalFloatReg diagnostics included) print their single diagnostic
// line to stderr and exit 1; a panic anywhere in the pipeline is
// recovered and reported as an internal compiler error with exit 2.
func Execute() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "internal compiler error: %v\n", r)
			os.Exit(2)
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func compile(cmd *cobra.Command, args []string) error {
	src, err := os.ReadFile(args[0])
	if err != nil {
		return errors.Wrapf(err, "cannot read source file %s", args[0])
	}

	// The standard library is just another source segment.
	full := append(append(src, '\n'), stdlib.Source...)

	toks, err := lexer.Lex(full)
	if err != nil {
		return err
	}
	if debugStage == "lex" {
		color.New(color.FgCyan, color.Bold).Fprintln(cmd.OutOrStdout(), "== lexemes ==")
		for _, t := range toks.Lexemes {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\t%q\n", t.Loc, t.Value.Kind, t.Value.Text)
		}
		return nil
	}

	prog, err := parser.Parse(toks)
	if err != nil {
		return err
	}
	if debugStage == "parse" {
		color.New(color.FgCyan, color.Bold).Fprintln(cmd.OutOrStdout(), "== ast ==")
		ast.Dump(cmd.OutOrStdout(), prog)
		return nil
	}

	out, err := codegen.Generate(prog)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
		return errors.Wrapf(err, "cannot write %s", outPath)
	}
	return nil
}
