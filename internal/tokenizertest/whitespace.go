// Package tokenizertest provides a deterministic whitespace tokenizer to test pipelines without
// downloading models.
package tokenizertest

import (
	"strings"
	"unicode"

	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/pkg/errors"
)

// ErrUnencodable is returned by EncodeWithOffsets for texts containing Whitespace.FailOn.
var ErrUnencodable = errors.New("text cannot be encoded")

// FirstWordID is the id given to the first word seen. Lower ids are reserved for special tokens.
const FirstWordID = 5

// Whitespace tokenizer: each run of non-space characters is a token. Word ids are given in order of
// first appearance, starting at FirstWordID.
type Whitespace struct {
	// PadID is the padding id and the id of api.TokPad, if HasPad is set.
	PadID  int
	HasPad bool

	// FailOn makes EncodeWithOffsets fail on texts containing it, if not empty.
	FailOn string

	vocab map[string]int
	words []string
}

// Compile time assert that Whitespace implements api.TokenizerWithOffsets.
var _ api.TokenizerWithOffsets = &Whitespace{}

// New returns a Whitespace tokenizer without a pad token.
func New() *Whitespace {
	return &Whitespace{vocab: make(map[string]int)}
}

// WithPad sets the pad token id.
func (w *Whitespace) WithPad(id int) *Whitespace {
	w.PadID = id
	w.HasPad = true
	return w
}

// ID returns the id of word, assigning a new one if it wasn't seen yet.
func (w *Whitespace) ID(word string) int {
	if w.vocab == nil {
		w.vocab = make(map[string]int)
	}
	if id, found := w.vocab[word]; found {
		return id
	}
	id := FirstWordID + len(w.words)
	w.vocab[word] = id
	w.words = append(w.words, word)
	return id
}

// EncodeWithOffsets implements api.TokenizerWithOffsets.
func (w *Whitespace) EncodeWithOffsets(text string) (api.EncodingResult, error) {
	if w.FailOn != "" && strings.Contains(text, w.FailOn) {
		return api.EncodingResult{}, errors.WithMessagef(ErrUnencodable, "text contains %q", w.FailOn)
	}
	var result api.EncodingResult
	runes := []rune(text)
	for start := 0; start < len(runes); {
		if unicode.IsSpace(runes[start]) {
			start++
			continue
		}
		end := start
		for end < len(runes) && !unicode.IsSpace(runes[end]) {
			end++
		}
		result.IDs = append(result.IDs, w.ID(string(runes[start:end])))
		result.Offsets = append(result.Offsets, api.TokenOffset{Start: start, End: end})
		result.SequenceIDs = append(result.SequenceIDs, 0)
		start = end
	}
	return result, nil
}

// Encode implements api.Tokenizer.
func (w *Whitespace) Encode(text string) []int {
	result, err := w.EncodeWithOffsets(text)
	if err != nil {
		return nil
	}
	return result.IDs
}

// Decode implements api.Tokenizer.
func (w *Whitespace) Decode(ids []int) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		if id >= FirstWordID && id-FirstWordID < len(w.words) {
			words = append(words, w.words[id-FirstWordID])
		}
	}
	return strings.Join(words, " ")
}

// PaddingID implements api.TokenizerWithOffsets.
func (w *Whitespace) PaddingID() (int, bool) {
	return w.PadID, w.HasPad
}

// SpecialTokenID implements api.Tokenizer.
func (w *Whitespace) SpecialTokenID(token api.SpecialToken) (int, error) {
	if token == api.TokPad && w.HasPad {
		return w.PadID, nil
	}
	return 0, errors.Errorf("unknown special token: %s (%d)", token, token)
}
