package main

import (
	"fmt"
	"strings"

	"github.com/deepnoodle-ai/luachunk"
	"github.com/deepnoodle-ai/luachunk/bytecode"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func (a *app) convertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert IN OUT",
		Short: "Re-encode a chunk for a different machine layout",
		Long: `Re-encode a chunk with a different byte order or type widths.

Flags left unset keep the value from the input header. Values that do not
fit the new widths are reported all at once and nothing is written.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			chunk, err := luachunk.DecodeBytes(data, a.options()...)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if err := applyLayout(a.v, &chunk.Header); err != nil {
				return err
			}
			if a.v.GetBool("strip") {
				chunk.Main = chunk.Main.Strip()
			}
			out, err := luachunk.EncodeBytes(chunk, a.options()...)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			a.log.Info().
				Str("in", args[0]).
				Str("out", args[1]).
				Int("in_bytes", len(data)).
				Int("out_bytes", len(out)).
				Msg("converted chunk")
			return writeOutput(cmd, args[1], out)
		},
	}
	f := cmd.Flags()
	f.String("endianness", "", "byte order: big or little")
	f.Int("int-width", 0, "width of C int in bytes")
	f.Int("size-width", 0, "width of size_t in bytes")
	f.Int("instruction-width", 0, "width of Instruction in bytes")
	f.Int("integer-width", 0, "width of lua_Integer in bytes (Lua 5.3)")
	f.Int("number-width", 0, "width of lua_Number in bytes")
	f.Bool("strip", false, "drop debug information")
	return cmd
}

// applyLayout overrides header fields with the values set in v. Zero
// values leave the header unchanged; width validity is checked when the
// chunk is encoded.
func applyLayout(v *viper.Viper, h *bytecode.Header) error {
	switch e := strings.ToLower(v.GetString("endianness")); e {
	case "":
	case "big":
		h.Endianness = bytecode.BigEndian
	case "little":
		h.Endianness = bytecode.LittleEndian
	default:
		return fmt.Errorf("unknown endianness: %s", e)
	}
	widths := []struct {
		key string
		dst *bytecode.Width
	}{
		{"int-width", &h.IntWidth},
		{"size-width", &h.SizeWidth},
		{"instruction-width", &h.InstructionWidth},
		{"integer-width", &h.IntegerWidth},
		{"number-width", &h.NumberWidth},
	}
	for _, w := range widths {
		n := v.GetInt(w.key)
		if n == 0 {
			continue
		}
		if n < 0 || n > 0xFF {
			return fmt.Errorf("invalid %s: %d", w.key, n)
		}
		*w.dst = bytecode.Width(n)
	}
	return nil
}
