// Package tokenizers creates tokenizers from HuggingFace models, either from a local file or directory,
// or from a HuggingFace Hub repository.
//
// Given a HuggingFace repository (see hub.New to create one), tokenizers will use its "tokenizer_config.json"
// to pick the tokenizer class, and "tokenizer.json" or "tokenizer.model" to instantiate it.
package tokenizers

import (
	"path/filepath"
	"strings"

	"github.com/gomlx/textpipe/hub"
	"github.com/gomlx/textpipe/internal/files"
	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/gomlx/textpipe/tokenizers/hftokenizer"
	"github.com/gomlx/textpipe/tokenizers/sentencepiece"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Tokenizer interface allows one convert text to "tokens" (integer ids) and back, keeping track of
// the characters each token covers.
type Tokenizer = api.TokenizerWithOffsets

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken = api.SpecialToken

const (
	TokBeginningOfSentence = api.TokBeginningOfSentence
	TokEndOfSentence       = api.TokEndOfSentence
	TokUnknown             = api.TokUnknown
	TokPad                 = api.TokPad
	TokMask                = api.TokMask
	TokClassification      = api.TokClassification
	TokSpecialTokensCount  = api.TokSpecialTokensCount
)

// ConfigFile is the name of the tokenizer configuration file in a HuggingFace repo.
const ConfigFile = "tokenizer_config.json"

// New creates a new tokenizer from the given HuggingFace repo (see hub.New).
//
// The class named in the repo's "tokenizer_config.json" selects the implementation (see RegisterTokenizerClass).
// Unknown classes, or repos without a config, fall back to whichever of "tokenizer.json" or "tokenizer.model"
// the repo has.
//
// If it fails to load those files, or create a tokenizer, it returns an error.
func New(repo *hub.Repo) (Tokenizer, error) {
	err := repo.DownloadInfo(false)
	if err != nil {
		return nil, err
	}

	var config *api.Config
	if repo.HasFile(ConfigFile) {
		config, err = GetConfig(repo)
		if err != nil {
			return nil, err
		}
	}

	if config != nil {
		if constructor, found := registerOfClasses[config.TokenizerClass]; found {
			return constructor(config, repo)
		}
		log.Debug().Str("repo", repo.ID).Str("class", config.TokenizerClass).Msg("tokenizer class not registered, using available files")
	}
	switch {
	case repo.HasFile(hftokenizer.TokenizerFile):
		return hftokenizer.New(config, repo)
	case repo.HasFile(sentencepiece.ModelFile):
		return sentencepiece.New(config, repo)
	}
	if config != nil {
		return nil, errors.Errorf("unknown tokenizer class %q, and repo %q has no %q or %q file",
			config.TokenizerClass, repo, hftokenizer.TokenizerFile, sentencepiece.ModelFile)
	}
	return nil, errors.Errorf("repo %q has no tokenizer files", repo)
}

// GetConfig returns the parsed "tokenizer_config.json" Config object for the repo.
func GetConfig(repo *hub.Repo) (*api.Config, error) {
	err := repo.DownloadInfo(false)
	if err != nil {
		return nil, err
	}
	localConfigFile, err := repo.DownloadFile(ConfigFile)
	if err != nil {
		return nil, err
	}
	config, err := api.ParseConfigFile(localConfigFile)
	if err != nil {
		return nil, err
	}
	return config, nil
}

// Config struct to hold HuggingFace's tokenizer_config.json contents.
//
// The extra field ConfigFile holds the path to the file with the full config.
type Config = api.Config

// TokenizerConstructor is used by Tokenizer implementations to provide implementations for different
// tokenizer classes.
type TokenizerConstructor func(config *api.Config, repo *hub.Repo) (api.TokenizerWithOffsets, error)

// RegisterTokenizerClass used by Tokenizer implementations.
func RegisterTokenizerClass(name string, constructor TokenizerConstructor) {
	registerOfClasses[name] = constructor
}

var (
	registerOfClasses = make(map[string]TokenizerConstructor)
)

func init() {
	for _, className := range []string{
		"GemmaTokenizer", "LlamaTokenizer", "T5Tokenizer", "AlbertTokenizer", "XLNetTokenizer"} {
		RegisterTokenizerClass(className, sentencepiece.New)
	}
	for _, className := range []string{
		"PreTrainedTokenizerFast",
		"BertTokenizer", "BertTokenizerFast",
		"DistilBertTokenizer", "DistilBertTokenizerFast",
		"RobertaTokenizer", "RobertaTokenizerFast",
		"DebertaV2TokenizerFast", "ElectraTokenizerFast",
		"GemmaTokenizerFast", "LlamaTokenizerFast", "T5TokenizerFast"} {
		RegisterTokenizerClass(className, hftokenizer.New)
	}
}

// Option configures FromPretrained.
type Option func(*pretrainedOptions)

type pretrainedOptions struct {
	cacheDir, revision, authToken, endpoint string
}

// WithCacheDir sets the HuggingFace Hub cache directory. See hub.Repo.WithCacheDir.
func WithCacheDir(cacheDir string) Option {
	return func(o *pretrainedOptions) { o.cacheDir = cacheDir }
}

// WithRevision sets the revision (branch, tag or commit-hash) of the HuggingFace Hub repo to use.
func WithRevision(revision string) Option {
	return func(o *pretrainedOptions) { o.revision = revision }
}

// WithAuthToken sets the HuggingFace authentication token, for private or gated repos.
func WithAuthToken(authToken string) Option {
	return func(o *pretrainedOptions) { o.authToken = authToken }
}

// WithEndpoint sets the HuggingFace Hub endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *pretrainedOptions) { o.endpoint = endpoint }
}

// FromPretrained loads the tokenizer identified by identifier, which can be:
//
//   - the path to a "*.json" file: a HuggingFace tokenizer.json file;
//   - the path to a "*.model" file: a SentencePiece model proto;
//   - the path to a directory holding one of those (named "tokenizer.json" or "tokenizer.model"), and optionally a
//     "tokenizer_config.json" naming special tokens;
//   - otherwise, the id of a HuggingFace Hub repository (e.g.: "bert-base-uncased"), whose files are downloaded
//     to the cache.
func FromPretrained(identifier string, options ...Option) (Tokenizer, error) {
	var opts pretrainedOptions
	for _, option := range options {
		option(&opts)
	}
	if identifier == "" {
		return nil, errors.New("empty tokenizer identifier")
	}

	localPath, err := files.ReplaceTildeInDir(identifier)
	if err != nil {
		return nil, err
	}
	if files.IsDir(localPath) {
		return fromDir(localPath)
	}
	if files.Exists(localPath) {
		return fromFile(localPath, nil)
	}

	repo := hub.New(identifier).
		WithCacheDir(opts.cacheDir).
		WithRevision(opts.revision).
		WithAuth(opts.authToken)
	if opts.endpoint != "" {
		repo = repo.WithEndpoint(opts.endpoint)
	}
	tok, err := New(repo)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading tokenizer %q", identifier)
	}
	return tok, nil
}

func fromFile(filePath string, config *api.Config) (Tokenizer, error) {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".json":
		tok, err := hftokenizer.NewFromFile(filePath, config)
		if err != nil {
			return nil, err
		}
		return tok, nil
	case ".model":
		tok, err := sentencepiece.NewFromPath(filePath, config)
		if err != nil {
			return nil, err
		}
		return tok, nil
	}
	return nil, errors.Errorf("unknown tokenizer file type %q: expected a .json (tokenizer.json) or .model (SentencePiece) file",
		filePath)
}

func fromDir(dir string) (Tokenizer, error) {
	var config *api.Config
	configPath := filepath.Join(dir, ConfigFile)
	if files.Exists(configPath) {
		var err error
		config, err = api.ParseConfigFile(configPath)
		if err != nil {
			return nil, err
		}
	}
	for _, name := range []string{hftokenizer.TokenizerFile, sentencepiece.ModelFile} {
		filePath := filepath.Join(dir, name)
		if files.Exists(filePath) {
			return fromFile(filePath, config)
		}
	}
	return nil, errors.Errorf("directory %q has no %q or %q file", dir, hftokenizer.TokenizerFile, sentencepiece.ModelFile)
}
