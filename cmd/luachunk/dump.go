package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/deepnoodle-ai/luachunk"
	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/fxamacker/cbor/v2"
	"github.com/spf13/cobra"
)

var outputFormats = []string{"text", "json", "cbor"}

func (a *app) dumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the full decoded contents of a chunk",
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
			return dump(cmd.OutOrStdout(), chunk, a.v.GetString("output"))
		},
	}
	cmd.Flags().StringP("output", "o", "text", "output format: text, json or cbor")
	_ = cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func dump(w io.Writer, c *bytecode.Chunk, format string) error {
	switch strings.ToLower(format) {
	case "", "text":
		return dumpText(w, c)
	case "json":
		out, err := getOutputJSON(newChunkView(c), w)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(out))
		return err
	case "cbor":
		if isTerminal(w) {
			return errors.New("refusing to write cbor to a terminal")
		}
		out, err := cbor.Marshal(newChunkView(c))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func dumpText(w io.Writer, c *bytecode.Chunk) error {
	h := c.Header
	fmt.Fprintf(w, "Lua %s chunk, %s endian, int %d, size_t %d, instruction %d, integer %d, number %d\n",
		h.Revision, h.Endianness, h.IntWidth, h.SizeWidth, h.InstructionWidth, h.IntegerWidth, h.NumberWidth)
	digits := int(h.InstructionWidth) * 2
	return c.Main.Walk(func(path string, depth int, p *bytecode.Prototype) error {
		fmt.Fprintf(w, "\n%s %s lines %d-%d\n", bold("function "+path), quoted(p.Source), p.LineDefined, p.LastLineDefined)
		fmt.Fprintf(w, "  params %d, vararg %d, stack %d, upvalues %d\n",
			p.NumParams, p.IsVararg, p.MaxStackSize, p.UpvalueCount())

		fmt.Fprintf(w, "  code (%d)\n", len(p.Code))
		for i, ins := range p.Code {
			line := ""
			if i < len(p.Debug.LineInfo) {
				line = fmt.Sprintf("  ; line %d", p.Debug.LineInfo[i])
			}
			fmt.Fprintf(w, "    [%d] 0x%0*x%s\n", i, digits, uint64(ins), line)
		}

		fmt.Fprintf(w, "  constants (%d)\n", len(p.Constants))
		for i, k := range p.Constants {
			fmt.Fprintf(w, "    [%d] %s %s\n", i, k.Kind(), k)
		}

		if n := p.UpvalueCount(); n > 0 {
			fmt.Fprintf(w, "  upvalues (%d)\n", n)
			for i := 0; i < n; i++ {
				name, _ := p.UpvalueName(i)
				desc := ""
				if i < len(p.Upvalues) {
					uv := p.Upvalues[i]
					where := "upvalue"
					if uv.InStack {
						where = "register"
					}
					desc = fmt.Sprintf(" from %s %d", where, uv.Index)
				}
				fmt.Fprintf(w, "    [%d] %s%s\n", i, quoted(name), desc)
			}
		}

		if len(p.Debug.LocVars) > 0 {
			fmt.Fprintf(w, "  locals (%d)\n", len(p.Debug.LocVars))
			for i, lv := range p.Debug.LocVars {
				fmt.Fprintf(w, "    [%d] %s pc %d-%d\n", i, quoted(lv.Name), lv.StartPC, lv.EndPC)
			}
		}
		return nil
	})
}

func quoted(s bytecode.String) string {
	if s.IsAbsent() {
		return "-"
	}
	return fmt.Sprintf("%q", s.String())
}
