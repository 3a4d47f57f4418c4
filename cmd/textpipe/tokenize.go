package main

import (
	"fmt"
	"strings"

	"github.com/gomlx/textpipe/tokenizers"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newTokenizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokenize <text>...",
		Short: "Print the tokens of each text, with their character offsets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			tok, err := tokenizers.FromPretrained(cfg.Tokenizer.Name, tokenizerOptions(cfg)...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, text := range args {
				encoding, err := tok.EncodeWithOffsets(text)
				if err != nil {
					return errors.WithMessagef(err, "tokenizing %q", text)
				}
				runes := []rune(text)
				_, _ = fmt.Fprintf(out, "%q: %d tokens\n", text, encoding.Len())
				for ii, id := range encoding.IDs {
					offset := encoding.Offsets[ii]
					var covered string
					if offset.Start >= 0 && offset.End <= len(runes) && offset.Start <= offset.End {
						covered = string(runes[offset.Start:offset.End])
					}
					_, _ = fmt.Fprintf(out, "  %6d  [%d, %d)  %s\n", id, offset.Start, offset.End,
						strings.ReplaceAll(covered, "\n", `\n`))
				}
			}
			return nil
		},
	}
}
