// Package hftokenizer implements a api.TokenizerWithOffsets based on HuggingFace "tokenizer.json" files,
// using github.com/sugarme/tokenizer.
package hftokenizer

import (
	"unicode/utf8"

	"github.com/gomlx/textpipe/hub"
	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	tk "github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// TokenizerFile is the name of the file holding the tokenizer definition in a HuggingFace repo.
const TokenizerFile = "tokenizer.json"

// Tokenizer implements api.TokenizerWithOffsets with a github.com/sugarme/tokenizer Tokenizer.
//
// Special tokens are never added by Encode or EncodeWithOffsets.
type Tokenizer struct {
	tok    *tk.Tokenizer
	config *api.Config
}

// Compile time assert that hftokenizer.Tokenizer implements api.TokenizerWithOffsets interface.
var _ api.TokenizerWithOffsets = &Tokenizer{}

// New creates a Tokenizer from the "tokenizer.json" file of the repo.
//
// It implements a tokenizers.TokenizerConstructor function signature.
func New(config *api.Config, repo *hub.Repo) (api.TokenizerWithOffsets, error) {
	if !repo.HasFile(TokenizerFile) {
		return nil, errors.Errorf("%q file not found in repo %q", TokenizerFile, repo)
	}
	tokenizerFile, err := repo.DownloadFile(TokenizerFile)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't download %s file", TokenizerFile)
	}
	return NewFromFile(tokenizerFile, config)
}

// NewFromFile creates a Tokenizer from a "tokenizer.json" file.
// The config is optional (it can be nil): it's used to find special tokens not in the file.
func NewFromFile(tokenizerFile string, config *api.Config) (*Tokenizer, error) {
	tok, err := pretrained.FromFile(tokenizerFile)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create tokenizer from %q", tokenizerFile)
	}
	log.Debug().Str("file", tokenizerFile).Int("vocab_size", tok.GetVocabSize(true)).Msg("loaded tokenizer.json")
	return NewFromTokenizer(tok, config), nil
}

// NewFromTokenizer wraps an already built sugarme tokenizer.
// The config is optional (it can be nil): it's used to find special tokens.
func NewFromTokenizer(tok *tk.Tokenizer, config *api.Config) *Tokenizer {
	return &Tokenizer{tok: tok, config: config}
}

// Encode returns the text encoded into a sequence of ids.
// It returns nil if the text can't be encoded, use EncodeWithOffsets to get the error.
func (t *Tokenizer) Encode(text string) []int {
	result, err := t.EncodeWithOffsets(text)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode text")
		return nil
	}
	return result.IDs
}

// EncodeWithOffsets implements api.TokenizerWithOffsets.
// The offsets reported by the tokenizer (in bytes) are converted to characters.
//
// Truncation and padding configured in the tokenizer.json are not applied: batching does both.
func (t *Tokenizer) EncodeWithOffsets(text string) (api.EncodingResult, error) {
	encoding, err := t.tok.EncodeSingleSequence(tk.NewInputSequence(text), 0, tk.Byte)
	if err != nil {
		return api.EncodingResult{}, errors.Wrapf(err, "failed to encode text")
	}
	ids := encoding.GetIds()
	byteOffsets := encoding.GetOffsets()
	charAt := byteToCharIndex(text)
	result := api.EncodingResult{
		IDs:         make([]int, len(ids)),
		Offsets:     make([]api.TokenOffset, len(ids)),
		SequenceIDs: make([]int, len(ids)),
	}
	copy(result.IDs, ids)
	for ii := range ids {
		if ii >= len(byteOffsets) || len(byteOffsets[ii]) < 2 {
			continue
		}
		result.Offsets[ii] = api.TokenOffset{
			Start: charAt(byteOffsets[ii][0]),
			End:   charAt(byteOffsets[ii][1]),
		}
	}
	return result, nil
}

// byteToCharIndex returns a function that converts a byte position in text to its character (rune) position.
// Positions beyond the text are clamped to its length in characters.
func byteToCharIndex(text string) func(int) int {
	index := make([]int, len(text)+1)
	char := 0
	for pos := 0; pos < len(text); {
		_, size := utf8.DecodeRuneInString(text[pos:])
		for ii := 0; ii < size; ii++ {
			index[pos+ii] = char
		}
		pos += size
		char++
	}
	index[len(text)] = char
	return func(pos int) int {
		if pos < 0 {
			return 0
		}
		if pos > len(text) {
			return char
		}
		return index[pos]
	}
}

// Decode returns the text from a sequence of ids, skipping special tokens.
func (t *Tokenizer) Decode(ids []int) string {
	return t.tok.Decode(ids, true)
}

// PaddingID implements api.TokenizerWithOffsets: it is the pad id of the padding configured in the
// tokenizer.json, if any.
func (t *Tokenizer) PaddingID() (int, bool) {
	padding := t.tok.GetPadding()
	if padding == nil {
		return 0, false
	}
	return padding.PadId, true
}

// SpecialTokenID returns the token for the given symbol, or an error if not known.
//
// Special tokens named in the tokenizer_config.json are looked up in the vocabulary. For TokPad, the padding
// configured in the tokenizer.json is used if the config doesn't name one.
func (t *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	if name := t.config.TokenFor(token); name != "" {
		if id, found := t.tok.TokenToId(name); found {
			return id, nil
		}
		return 0, errors.Errorf("special token %s (%q) not in vocabulary", token, name)
	}
	if token == api.TokPad {
		if padding := t.tok.GetPadding(); padding != nil {
			return padding.PadId, nil
		}
	}
	return 0, errors.Errorf("unknown special token: %s (%d)", token, token)
}
