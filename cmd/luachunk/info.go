package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/luachunk"
	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/spf13/cobra"
)

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Show the header and function tree of a chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			chunk, err := luachunk.DecodeBytes(data, a.options()...)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			return printInfo(cmd.OutOrStdout(), args[0], len(data), chunk)
		},
	}
}

func printInfo(w io.Writer, name string, size int, c *bytecode.Chunk) error {
	h := c.Header
	fmt.Fprintf(w, "%s %s (%d bytes)\n", bold("file:"), name, size)
	fmt.Fprintf(w, "%s Lua %s, %s endian\n", bold("format:"), h.Revision, h.Endianness)
	fmt.Fprintf(w, "%s int %d, size_t %d, instruction %d, integer %d, number %d\n",
		bold("widths:"), h.IntWidth, h.SizeWidth, h.InstructionWidth, h.IntegerWidth, h.NumberWidth)
	if h.IntegralNumbers {
		fmt.Fprintf(w, "%s integral\n", bold("numbers:"))
	}
	s := c.Stats()
	fmt.Fprintf(w, "%s %d functions, depth %d, %d instructions, %d constants, %d string bytes\n",
		bold("totals:"), s.FunctionCount, s.MaxDepth, s.InstructionCount, s.ConstantCount, s.StringBytes)
	if s.Stripped {
		fmt.Fprintf(w, "%s %s\n", bold("debug:"), yellow("stripped"))
	}
	fmt.Fprintln(w, bold("functions:"))
	return c.Main.Walk(func(path string, depth int, p *bytecode.Prototype) error {
		source := "-"
		if !p.Source.IsAbsent() {
			source = p.Source.String()
		}
		line := fmt.Sprintf("%s%s %s lines %d-%d params %d stack %d code %d constants %d upvalues %d protos %d",
			strings.Repeat("  ", depth+1), path, source,
			p.LineDefined, p.LastLineDefined, p.NumParams, p.MaxStackSize,
			len(p.Code), len(p.Constants), p.UpvalueCount(), len(p.Protos))
		if p.Debug.IsEmpty() {
			line += " " + yellow("stripped")
		}
		_, err := fmt.Fprintln(w, line)
		return err
	})
}
