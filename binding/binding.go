// Package binding exposes pipelines to host environments (e.g.: an embedding language or a CLI) that can't
// work with the generic pipeline.Node types directly.
//
// Every stage is held by a Handle, of one of a closed set of kinds (see Kind). Constructors consume the
// handle they are given: afterwards every operation on it returns pipeline.ErrStageConsumed.
package binding

import (
	"fmt"

	"github.com/gomlx/textpipe/datasets"
	"github.com/gomlx/textpipe/pipeline"
	"github.com/gomlx/textpipe/tokenizers"
	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ErrIncompatibleStage is returned when a stage is built on a handle of the wrong kind.
var ErrIncompatibleStage = errors.New("incompatible input stage")

// Kind of items yielded by a Handle.
type Kind int

const (
	// KindSamples handles yield raw samples: loaders.
	KindSamples Kind = iota

	// KindTokenized handles yield tokenized samples: tokenizer stages.
	KindTokenized

	// KindBatches handles yield batches: batcher stages.
	KindBatches
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindSamples:
		return "samples"
	case KindTokenized:
		return "tokenized"
	case KindBatches:
		return "batches"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Handle holds exactly one pipeline stage, whose item type is given by its Kind.
type Handle struct {
	kind      Kind
	samples   pipeline.Node[pipeline.Sample]
	tokenized pipeline.Node[pipeline.TokenizedSample]
	batches   pipeline.Node[pipeline.Batch]
}

// Kind returns the kind of items yielded by the handle.
func (h *Handle) Kind() Kind {
	return h.kind
}

// String implements fmt.Stringer.
func (h *Handle) String() string {
	return fmt.Sprintf("Handle(%s)", h.kind)
}

// NewLineLoader returns a handle to a datasets.LineLoader reading filename.
func NewLineLoader(filename string) (*Handle, error) {
	loader, err := datasets.NewLineLoader(filename)
	if err != nil {
		return nil, err
	}
	return &Handle{kind: KindSamples, samples: loader}, nil
}

// NewSQuADLoader returns a handle to a datasets.SQuADLoader with the dataset in filename.
func NewSQuADLoader(filename string) (*Handle, error) {
	loader, err := datasets.NewSQuADLoader(filename)
	if err != nil {
		return nil, err
	}
	return &Handle{kind: KindSamples, samples: loader}, nil
}

// NewTokenizer returns a handle to a tokenizer stage consuming input, which must be of KindSamples.
// The tokenizer is loaded with tokenizers.FromPretrained(identifier, options...), after input is checked.
func NewTokenizer(input *Handle, identifier string, options ...tokenizers.Option) (*Handle, error) {
	if err := input.expect(KindSamples); err != nil {
		return nil, err
	}
	tok, err := tokenizers.FromPretrained(identifier, options...)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("tokenizer", identifier).Msg("tokenizer loaded")
	return NewTokenizerWith(input, tok)
}

// NewTokenizerWith returns a handle to a tokenizer stage using tok, consuming input, which must be of KindSamples.
func NewTokenizerWith(input *Handle, tok api.TokenizerWithOffsets) (*Handle, error) {
	if err := input.expect(KindSamples); err != nil {
		return nil, err
	}
	stage, err := pipeline.NewTokenizer(input.samples, tok)
	if err != nil {
		return nil, err
	}
	return &Handle{kind: KindTokenized, tokenized: stage}, nil
}

// NewStaticBatcher returns a handle to a batcher stage consuming input, which must be of KindTokenized.
func NewStaticBatcher(input *Handle, batchSize, seqLength int) (*Handle, error) {
	if err := input.expect(KindTokenized); err != nil {
		return nil, err
	}
	stage, err := pipeline.NewStaticBatcher(input.tokenized, batchSize, seqLength)
	if err != nil {
		return nil, err
	}
	return &Handle{kind: KindBatches, batches: stage}, nil
}

// expect checks that h is of the given kind and was not consumed yet.
func (h *Handle) expect(kind Kind) error {
	if h == nil {
		return errors.WithMessagef(ErrIncompatibleStage, "nil input, expected %s", kind)
	}
	if h.kind != kind {
		return errors.WithMessagef(ErrIncompatibleStage, "input yields %s, expected %s", h.kind, kind)
	}
	_, err := h.LabelKind()
	return err
}

// LabelKind returns the label chain of the items of the stage.
func (h *Handle) LabelKind() (pipeline.LabelKind, error) {
	switch h.kind {
	case KindSamples:
		return h.samples.LabelKind()
	case KindTokenized:
		return h.tokenized.LabelKind()
	case KindBatches:
		return h.batches.LabelKind()
	}
	return 0, h.invalid()
}

// Next returns the next item of the stage, or false when it is exhausted.
func (h *Handle) Next() (Item, bool, error) {
	switch h.kind {
	case KindSamples:
		return view(sampleItem)(h.samples.Next())
	case KindTokenized:
		return view(tokenizedItem)(h.tokenized.Next())
	case KindBatches:
		return view(batchItem)(h.batches.Next())
	}
	return Item{}, false, h.invalid()
}

// Get returns the item at index, or false if it is out of range.
// It returns pipeline.ErrRandomAccessUnsupported if the stage can only be read sequentially.
func (h *Handle) Get(index int) (Item, bool, error) {
	switch h.kind {
	case KindSamples:
		return view(sampleItem)(h.samples.Get(index))
	case KindTokenized:
		return view(tokenizedItem)(h.tokenized.Get(index))
	case KindBatches:
		return view(batchItem)(h.batches.Get(index))
	}
	return Item{}, false, h.invalid()
}

// Len returns the number of items of the stage, if known.
func (h *Handle) Len() (int, bool, error) {
	switch h.kind {
	case KindSamples:
		return h.samples.Len()
	case KindTokenized:
		return h.tokenized.Len()
	case KindBatches:
		return h.batches.Len()
	}
	return 0, false, h.invalid()
}

func (h *Handle) invalid() error {
	return errors.Errorf("invalid handle kind %s", h.kind)
}
