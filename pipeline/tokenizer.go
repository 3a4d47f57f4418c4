package pipeline

import (
	"math"

	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/pkg/errors"
)

// Tokenizer is the stage that tokenizes the samples of its input stage, and converts their labels to
// token indices.
//
// Nothing is cached: each Get or Next tokenizes the sample again.
type Tokenizer struct {
	slot Slot[tokenizerState]
}

type tokenizerState struct {
	inner     Node[Sample]
	tokenizer api.TokenizerWithOffsets
}

// Compile time assert that Tokenizer implements Node.
var _ Node[TokenizedSample] = &Tokenizer{}

// NewTokenizer creates a Tokenizer stage that takes ownership of inner.
//
// It returns ErrStageConsumed if inner was already taken by another stage.
func NewTokenizer(inner Node[Sample], tokenizer api.TokenizerWithOffsets) (*Tokenizer, error) {
	if tokenizer == nil {
		return nil, errors.WithMessagef(ErrInvalidArgument, "nil tokenizer")
	}
	owned, err := inner.Take()
	if err != nil {
		return nil, errors.WithMessagef(err, "creating tokenizer stage")
	}
	return &Tokenizer{slot: NewSlot(&tokenizerState{inner: owned, tokenizer: tokenizer})}, nil
}

// Next implements Node.
func (t *Tokenizer) Next() (TokenizedSample, bool, error) {
	state, err := t.slot.State()
	if err != nil {
		return TokenizedSample{}, false, err
	}
	sample, ok, err := state.inner.Next()
	if err != nil || !ok {
		return TokenizedSample{}, false, err
	}
	tokenized, err := TokenizeSample(sample, state.tokenizer)
	if err != nil {
		return TokenizedSample{}, false, err
	}
	return tokenized, true, nil
}

// Get implements Node.
func (t *Tokenizer) Get(index int) (TokenizedSample, bool, error) {
	state, err := t.slot.State()
	if err != nil {
		return TokenizedSample{}, false, err
	}
	sample, ok, err := state.inner.Get(index)
	if err != nil || !ok {
		return TokenizedSample{}, false, err
	}
	tokenized, err := TokenizeSample(sample, state.tokenizer)
	if err != nil {
		return TokenizedSample{}, false, errors.WithMessagef(err, "sample #%d", index)
	}
	return tokenized, true, nil
}

// Len implements Node. It is the length of the input stage.
func (t *Tokenizer) Len() (int, bool, error) {
	state, err := t.slot.State()
	if err != nil {
		return 0, false, err
	}
	return state.inner.Len()
}

// LabelKind implements Node. Tokenization keeps the label chain of the input stage.
func (t *Tokenizer) LabelKind() (LabelKind, error) {
	state, err := t.slot.State()
	if err != nil {
		return 0, err
	}
	return state.inner.LabelKind()
}

// Take implements Node.
func (t *Tokenizer) Take() (Node[TokenizedSample], error) {
	slot, err := t.slot.Take()
	if err != nil {
		return nil, err
	}
	return &Tokenizer{slot: slot}, nil
}

// TokenizeSample encodes all text segments of sample into one multi-sequence encoding, and converts its label.
//
// The pad token is the id the tokenizer is configured to pad with, or 0 if it has no padding configured.
// Errors from the tokenizer are returned as a *TokenizationError, which matches ErrTokenization.
func TokenizeSample(sample Sample, tokenizer api.TokenizerWithOffsets) (TokenizedSample, error) {
	if len(sample.Text) == 0 {
		return TokenizedSample{}, errors.WithMessagef(ErrInvalidArgument, "sample without text")
	}
	var encoding api.EncodingResult
	for ii, text := range sample.Text {
		segment, err := tokenizer.EncodeWithOffsets(text)
		if err != nil {
			return TokenizedSample{}, &TokenizationError{Segment: ii, Err: err}
		}
		encoding.Append(segment)
	}

	ids := make([]uint32, len(encoding.IDs))
	for ii, id := range encoding.IDs {
		if id < 0 || int64(id) > math.MaxUint32 {
			return TokenizedSample{}, errors.WithMessagef(ErrTokenization, "token id %d out of range", id)
		}
		ids[ii] = uint32(id)
	}

	// Span offsets are relative to the last segment's own text, and so are the encoding offsets
	// of each sequence: the last sequence starts at character 0 in the span's coordinates.
	label, err := TokenizeLabel(sample.Label, &encoding, 0)
	if err != nil {
		return TokenizedSample{}, err
	}
	return TokenizedSample{
		Encoding: Encoding{IDs: ids, PadToken: padToken(tokenizer)},
		Label:    label,
	}, nil
}

func padToken(tokenizer api.TokenizerWithOffsets) uint32 {
	id, found := tokenizer.PaddingID()
	if !found || id < 0 || int64(id) > math.MaxUint32 {
		return 0
	}
	return uint32(id)
}
