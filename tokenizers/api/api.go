// Package api defines the Tokenizer API.
// It's just a hack to break the cyclic dependency, and allow the users to import `tokenizers` and get the
// default implementations.
package api

// Tokenizer interface allows one convert text to "tokens" (integer ids) and back.
//
// It also allows mapping of special tokens: tokens with a common semantic (like padding) but that
// may map to different ids (int) for different tokenizers.
type Tokenizer interface {
	Encode(text string) []int
	Decode([]int) string

	// SpecialTokenID returns ID for given special token if registered, or an error if not.
	SpecialTokenID(token SpecialToken) (int, error)
}

// TokenizerWithOffsets extends Tokenizer with offset tracking capability.
//
// Offsets are needed to align character based labels (e.g.: answer spans) to token indices.
type TokenizerWithOffsets interface {
	Tokenizer

	// EncodeWithOffsets returns the tokens of text along with their character offsets in text.
	// No special tokens are added. The result holds a single sequence (index 0).
	//
	// It returns an error if the text cannot be encoded.
	EncodeWithOffsets(text string) (EncodingResult, error)

	// PaddingID returns the id the tokenizer is configured to pad with, or false if it has no padding configured.
	// It can differ from SpecialTokenID(TokPad), which is the vocabulary entry of the pad token.
	PaddingID() (int, bool)
}

// SpecialToken is an enum of commonly used special tokens.
type SpecialToken int

const (
	TokBeginningOfSentence SpecialToken = iota
	TokEndOfSentence
	TokUnknown
	TokPad
	TokMask
	TokClassification
	TokSpecialTokensCount
)

var specialTokenNames = [...]string{
	TokBeginningOfSentence: "beginning_of_sentence",
	TokEndOfSentence:       "end_of_sentence",
	TokUnknown:             "unknown",
	TokPad:                 "pad",
	TokMask:                "mask",
	TokClassification:      "classification",
	TokSpecialTokensCount:  "special_tokens_count",
}

// String implements fmt.Stringer.
func (t SpecialToken) String() string {
	if t < 0 || int(t) >= len(specialTokenNames) {
		return "invalid"
	}
	return specialTokenNames[t]
}
