package pipeline

import (
	"fmt"

	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/pkg/errors"
)

// LabelKind enumerates the label chains supported. Each kind has exactly one variant per stage:
//
//	KindNone: NoLabel -> NoTokenizedLabel -> NoBatchLabel
//	KindSpan: Span    -> TokenizedSpan    -> BatchSpan
//
// Adding a kind requires a variant for each of the three stages, and a case in TokenizeLabel and BatchLabels.
type LabelKind int

const (
	KindNone LabelKind = iota
	KindSpan
)

// String implements fmt.Stringer.
func (k LabelKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSpan:
		return "span"
	}
	return fmt.Sprintf("LabelKind(%d)", int(k))
}

// CharSpan is an inclusive range of character offsets. End >= Start.
type CharSpan struct {
	Start, End int
}

// TokenSpan is an inclusive range of token indices. End >= Start.
type TokenSpan struct {
	Start, End int
}

// Label is the raw form of a sample label. Its variants are NoLabel and Span.
type Label interface {
	Kind() LabelKind
	isLabel()
}

// NoLabel carries nothing.
type NoLabel struct{}

// Kind implements Label.
func (NoLabel) Kind() LabelKind { return KindNone }
func (NoLabel) isLabel()        {}

// Span is an answer location in the last text segment of a sample. A nil Chars means there is no
// gold answer (e.g.: an unanswerable question).
type Span struct {
	Chars *CharSpan
}

// NewSpan returns a Span covering the characters start to end, inclusive.
func NewSpan(start, end int) Span {
	return Span{Chars: &CharSpan{Start: start, End: end}}
}

// Kind implements Label.
func (Span) Kind() LabelKind { return KindSpan }
func (Span) isLabel()        {}

// TokenizedLabel is the form of a label after tokenization. Its variants are NoTokenizedLabel and TokenizedSpan.
type TokenizedLabel interface {
	Kind() LabelKind
	isTokenizedLabel()
}

// NoTokenizedLabel carries nothing.
type NoTokenizedLabel struct{}

// Kind implements TokenizedLabel.
func (NoTokenizedLabel) Kind() LabelKind   { return KindNone }
func (NoTokenizedLabel) isTokenizedLabel() {}

// TokenizedSpan is the answer location as token indices. A nil Tokens means the span could not be aligned
// to tokens (or there was no answer in the first place).
type TokenizedSpan struct {
	Tokens *TokenSpan
}

// Kind implements TokenizedLabel.
func (TokenizedSpan) Kind() LabelKind   { return KindSpan }
func (TokenizedSpan) isTokenizedLabel() {}

// BatchLabel is the columnar form of the labels of a batch. Its variants are NoBatchLabel and BatchSpan.
type BatchLabel interface {
	Kind() LabelKind
	isBatchLabel()
}

// NoBatchLabel carries nothing.
type NoBatchLabel struct{}

// Kind implements BatchLabel.
func (NoBatchLabel) Kind() LabelKind { return KindNone }
func (NoBatchLabel) isBatchLabel()   {}

// BatchSpan holds one start and one end token index per sample in the batch, in sample order.
// Samples without an aligned span contribute (0, 0).
type BatchSpan struct {
	Start, End []int
}

// Kind implements BatchLabel.
func (BatchSpan) Kind() LabelKind { return KindSpan }
func (BatchSpan) isBatchLabel()   {}

// TokenizeLabel converts a raw label to its tokenized form, using the encoding of the sample.
//
// For a Span, shift is the character offset, in the span's coordinates, where the last sequence of the
// encoding starts. Spans starting before it are dropped. The shifted offsets are mapped to tokens of the
// last sequence only, and if either end falls outside any token (whitespace, special tokens, beyond the
// text) the result is an empty TokenizedSpan. Alignment misses are not errors.
func TokenizeLabel(label Label, encoding *api.EncodingResult, shift int) (TokenizedLabel, error) {
	switch l := label.(type) {
	case NoLabel:
		return NoTokenizedLabel{}, nil
	case Span:
		return TokenizedSpan{Tokens: alignSpan(l.Chars, encoding, shift)}, nil
	case nil:
		return nil, errors.WithMessagef(ErrLabelMismatch, "nil label")
	}
	return nil, errors.WithMessagef(ErrLabelMismatch, "unknown label type %T", label)
}

func alignSpan(chars *CharSpan, encoding *api.EncodingResult, shift int) *TokenSpan {
	if chars == nil || chars.Start < shift || chars.End < chars.Start {
		return nil
	}
	sequence := encoding.NumSequences() - 1
	if sequence < 0 {
		return nil
	}
	start, found := encoding.CharToToken(chars.Start-shift, sequence)
	if !found {
		return nil
	}
	end, found := encoding.CharToToken(chars.End-shift, sequence)
	if !found {
		return nil
	}
	return &TokenSpan{Start: start, End: end}
}

// BatchLabels stacks the tokenized labels of a batch, in order, into the batched form for kind.
// Every label must be of the given kind.
func BatchLabels(kind LabelKind, labels []TokenizedLabel) (BatchLabel, error) {
	for ii, label := range labels {
		if label == nil || label.Kind() != kind {
			return nil, errors.WithMessagef(ErrLabelMismatch, "sample #%d has label %T, batch expects %s", ii, label, kind)
		}
	}
	switch kind {
	case KindNone:
		return NoBatchLabel{}, nil
	case KindSpan:
		batch := BatchSpan{
			Start: make([]int, len(labels)),
			End:   make([]int, len(labels)),
		}
		for ii, label := range labels {
			span, ok := label.(TokenizedSpan)
			if !ok {
				return nil, errors.WithMessagef(ErrLabelMismatch, "sample #%d has label %T", ii, label)
			}
			if span.Tokens != nil {
				batch.Start[ii] = span.Tokens.Start
				batch.End[ii] = span.Tokens.End
			}
		}
		return batch, nil
	}
	return nil, errors.WithMessagef(ErrLabelMismatch, "unknown label kind %s", kind)
}
