package main

import (
	"os"
	"strings"

	"github.com/gomlx/textpipe/internal/config"
	"github.com/gomlx/textpipe/tokenizers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	activeCfg config.Config
	cfgLoaded bool
)

// NewRootCmd returns the textpipe command with all its subcommands.
// Configuration is loaded before any subcommand runs.
func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:           "textpipe",
		Short:         "Tokenize and batch text datasets",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			activeCfg = loaded
			cfgLoaded = true
			setupLogger(loaded.Log.Level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newBatchesCmd())
	cmd.AddCommand(newTokenizeCmd())
	cmd.AddCommand(newDownloadCmd())

	return cmd
}

// setupLogger configures the global zerolog logger, writing human-readable logs to stderr.
func setupLogger(levelStr string) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(levelStr)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

func requireConfig() (config.Config, error) {
	if !cfgLoaded {
		return config.Config{}, errors.New("configuration not loaded")
	}
	return activeCfg, nil
}

// tokenizerOptions returns the options to load the configured tokenizer.
func tokenizerOptions(cfg config.Config) []tokenizers.Option {
	return []tokenizers.Option{
		tokenizers.WithCacheDir(cfg.Tokenizer.CacheDir),
		tokenizers.WithRevision(cfg.Tokenizer.Revision),
		tokenizers.WithAuthToken(cfg.Tokenizer.AuthToken),
	}
}
