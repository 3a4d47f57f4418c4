package main

import (
	"fmt"

	"github.com/gomlx/textpipe/hub"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// tokenizerFiles are downloaded by default, when present in the repo.
var tokenizerFiles = []string{"tokenizer_config.json", "tokenizer.json", "tokenizer.model", "special_tokens_map.json"}

func newDownloadCmd() *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "download <repo-id> [file]...",
		Short: "Download files (by default the tokenizer files) of a HuggingFace Hub repo to the cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}
			repo := hub.New(args[0]).
				WithCacheDir(cfg.Tokenizer.CacheDir).
				WithRevision(cfg.Tokenizer.Revision).
				WithAuth(cfg.Tokenizer.AuthToken).
				WithProgressLog(true)
			repo.MaxParallelDownload = parallel
			if err := repo.DownloadInfo(false); err != nil {
				return err
			}

			files := args[1:]
			if len(files) == 0 {
				for _, name := range tokenizerFiles {
					if repo.HasFile(name) {
						files = append(files, name)
					}
				}
				if len(files) == 0 {
					return errors.Errorf("repo %q has no tokenizer files", repo)
				}
			}
			paths, err := repo.DownloadFiles(files...)
			if err != nil {
				return err
			}
			for _, path := range paths {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 4, "Maximum number of files downloaded at the same time")
	return cmd
}
