// Package config loads the textpipe CLI configuration from flags, environment variables (prefixed TEXTPIPE_)
// and an optional config file, in that order of precedence.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Input formats.
const (
	FormatLines = "lines"
	FormatSQuAD = "squad"
)

// Config is the complete CLI configuration.
type Config struct {
	Tokenizer TokenizerConfig `mapstructure:"tokenizer"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Input     InputConfig     `mapstructure:"input"`
	Log       LogConfig       `mapstructure:"log"`
}

// TokenizerConfig selects the tokenizer and how to fetch it from the HuggingFace Hub.
type TokenizerConfig struct {
	// Name is a local tokenizer file or directory, or a HuggingFace Hub repo id.
	Name      string `mapstructure:"name"`
	CacheDir  string `mapstructure:"cache_dir"`
	Revision  string `mapstructure:"revision"`
	AuthToken string `mapstructure:"auth_token"`
}

// BatchConfig holds the shape of the batches.
type BatchConfig struct {
	Size      int `mapstructure:"size"`
	SeqLength int `mapstructure:"seq_length"`
}

// InputConfig holds the dataset to read and its format (FormatLines or FormatSQuAD).
type InputConfig struct {
	Format string `mapstructure:"format"`
	Path   string `mapstructure:"path"`
}

// LogConfig configures logging. Level is a zerolog level name.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// LoadOptions configures Load.
//
// Cmd is usually the *cobra.Command being run: its flags registered with RegisterFlags take precedence.
// If ConfigFile is empty, an optional "textpipe.{yaml,toml,json}" in the current directory is read.
type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

// DefaultConfig returns the configuration used when nothing else is set.
func DefaultConfig() Config {
	return Config{
		Tokenizer: TokenizerConfig{
			Name:     "bert-base-uncased",
			Revision: "main",
		},
		Batch: BatchConfig{
			Size:      32,
			SeqLength: 128,
		},
		Input: InputConfig{
			Format: FormatLines,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"tokenizer-name":       "tokenizer.name",
	"tokenizer-cache-dir":  "tokenizer.cache_dir",
	"tokenizer-revision":   "tokenizer.revision",
	"tokenizer-auth-token": "tokenizer.auth_token",
	"batch-size":           "batch.size",
	"batch-seq-length":     "batch.seq_length",
	"input-format":         "input.format",
	"input-path":           "input.path",
	"log-level":            "log.level",
}

// RegisterFlags adds one flag per configuration key to fs, with the given defaults.
func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("tokenizer-name", defaults.Tokenizer.Name, "Tokenizer file, directory or HuggingFace repo id")
	fs.String("tokenizer-cache-dir", defaults.Tokenizer.CacheDir, "HuggingFace Hub cache directory (default ~/.cache/huggingface/hub)")
	fs.String("tokenizer-revision", defaults.Tokenizer.Revision, "HuggingFace Hub revision of the tokenizer repo")
	fs.String("tokenizer-auth-token", defaults.Tokenizer.AuthToken, "HuggingFace Hub token (also read from HF_TOKEN)")
	fs.Int("batch-size", defaults.Batch.Size, "Number of samples per batch")
	fs.Int("batch-seq-length", defaults.Batch.SeqLength, "Number of token ids per batch row")
	fs.String("input-format", defaults.Input.Format, "Input format: lines|squad")
	fs.String("input-path", defaults.Input.Path, "Input dataset file")
	fs.String("log-level", defaults.Log.Level, "Log level: debug|info|warn|error")
}

// Load merges defaults, config file, environment variables and flags, in increasing order of precedence,
// and validates the result.
//
// The auth token is also read from HF_TOKEN.
func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		fs := opts.Cmd.Flags()
		for flagName, key := range flagKeys {
			flag := fs.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return Config{}, errors.Wrapf(err, "bind flag %q", flagName)
			}
		}
	}

	v.SetEnvPrefix("TEXTPIPE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	if err := v.BindEnv("tokenizer.auth_token", "TEXTPIPE_TOKENIZER_AUTH_TOKEN", "HF_TOKEN"); err != nil {
		return Config{}, errors.Wrap(err, "bind auth token env vars")
	}
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "read config file")
		}
	} else {
		v.SetConfigName("textpipe")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, errors.Wrap(err, "read config file")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("tokenizer.name", c.Tokenizer.Name)
	v.SetDefault("tokenizer.cache_dir", c.Tokenizer.CacheDir)
	v.SetDefault("tokenizer.revision", c.Tokenizer.Revision)
	v.SetDefault("tokenizer.auth_token", c.Tokenizer.AuthToken)
	v.SetDefault("batch.size", c.Batch.Size)
	v.SetDefault("batch.seq_length", c.Batch.SeqLength)
	v.SetDefault("input.format", c.Input.Format)
	v.SetDefault("input.path", c.Input.Path)
	v.SetDefault("log.level", c.Log.Level)
}

// NormalizeFormat returns the canonical name of an input format.
func NormalizeFormat(raw string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(raw))
	switch format {
	case "", FormatLines, "txt", "text":
		return FormatLines, nil
	case FormatSQuAD, "json":
		return FormatSQuAD, nil
	}
	return "", errors.Errorf("invalid input format %q (expected %s|%s)", raw, FormatLines, FormatSQuAD)
}

// Validate checks the values of the configuration, and normalizes the input format.
func (c *Config) Validate() error {
	format, err := NormalizeFormat(c.Input.Format)
	if err != nil {
		return err
	}
	c.Input.Format = format
	if c.Batch.Size <= 0 {
		return errors.Errorf("batch.size must be > 0, got %d", c.Batch.Size)
	}
	if c.Batch.SeqLength <= 0 {
		return errors.Errorf("batch.seq_length must be > 0, got %d", c.Batch.SeqLength)
	}
	return nil
}
