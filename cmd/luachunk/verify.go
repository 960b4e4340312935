package main

import (
	"fmt"

	"github.com/deepnoodle-ai/luachunk"
	"github.com/spf13/cobra"
)

func (a *app) verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE...",
		Short: "Check that chunks decode and re-encode to the same bytes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, name := range args {
				if err := a.verify(cmd, name); err != nil {
					failed++
					fmt.Fprintf(out, "%s %s: %v\n", red("FAIL"), name, err)
					continue
				}
				fmt.Fprintf(out, "%s   %s\n", green("ok"), name)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d chunks failed verification", failed, len(args))
			}
			return nil
		},
	}
}

func (a *app) verify(cmd *cobra.Command, name string) error {
	data, err := readInput(cmd, name)
	if err != nil {
		return err
	}
	chunk, err := luachunk.DecodeBytes(data, a.options()...)
	if err != nil {
		return err
	}
	out, err := luachunk.EncodeBytes(chunk, a.options()...)
	if err != nil {
		return err
	}
	if off := firstDifference(data, out); off >= 0 {
		return fmt.Errorf("re-encoded bytes differ at offset %d (%d bytes in, %d bytes out)", off, len(data), len(out))
	}
	a.log.Debug().Str("file", name).Int("bytes", len(data)).Msg("verified chunk")
	return nil
}

// firstDifference returns the first offset where a and b differ, or -1.
func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}
