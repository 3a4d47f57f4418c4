package pipeline

import (
	"github.com/pkg/errors"
)

// StaticBatcher is the stage that groups a fixed number of tokenized samples into a Batch, with token ids
// padded or truncated to a fixed sequence length.
type StaticBatcher struct {
	slot Slot[batcherState]
}

type batcherState struct {
	inner                Node[TokenizedSample]
	batchSize, seqLength int
}

// Compile time assert that StaticBatcher implements Node.
var _ Node[Batch] = &StaticBatcher{}

// NewStaticBatcher creates a StaticBatcher stage that takes ownership of inner.
// Both batchSize and seqLength must be > 0.
func NewStaticBatcher(inner Node[TokenizedSample], batchSize, seqLength int) (*StaticBatcher, error) {
	if batchSize <= 0 || seqLength <= 0 {
		return nil, errors.WithMessagef(ErrInvalidArgument, "batchSize (%d) and seqLength (%d) must be > 0",
			batchSize, seqLength)
	}
	owned, err := inner.Take()
	if err != nil {
		return nil, errors.WithMessagef(err, "creating batcher stage")
	}
	return &StaticBatcher{slot: NewSlot(&batcherState{
		inner:     owned,
		batchSize: batchSize,
		seqLength: seqLength,
	})}, nil
}

// BatchSize returns the number of samples per batch (the last batch yielded by Next may be smaller).
func (b *StaticBatcher) BatchSize() (int, error) {
	state, err := b.slot.State()
	if err != nil {
		return 0, err
	}
	return state.batchSize, nil
}

// SeqLength returns the number of token ids of every row in the batches.
func (b *StaticBatcher) SeqLength() (int, error) {
	state, err := b.slot.State()
	if err != nil {
		return 0, err
	}
	return state.seqLength, nil
}

// Next implements Node. It pulls up to batchSize samples from the input: the last batch may be partial,
// and no empty batch is ever returned.
func (b *StaticBatcher) Next() (Batch, bool, error) {
	state, err := b.slot.State()
	if err != nil {
		return Batch{}, false, err
	}
	samples := make([]TokenizedSample, 0, state.batchSize)
	for len(samples) < state.batchSize {
		sample, ok, err := state.inner.Next()
		if err != nil {
			return Batch{}, false, err
		}
		if !ok {
			break
		}
		samples = append(samples, sample)
	}
	return state.build(samples)
}

// Get implements Node. Batch index holds the input samples [index*batchSize, (index+1)*batchSize), up to the
// first one missing.
func (b *StaticBatcher) Get(index int) (Batch, bool, error) {
	state, err := b.slot.State()
	if err != nil {
		return Batch{}, false, err
	}
	if index < 0 {
		return Batch{}, false, nil
	}
	first := index * state.batchSize
	samples := make([]TokenizedSample, 0, state.batchSize)
	for ii := first; ii < first+state.batchSize; ii++ {
		sample, ok, err := state.inner.Get(ii)
		if err != nil {
			return Batch{}, false, err
		}
		if !ok {
			break
		}
		samples = append(samples, sample)
	}
	return state.build(samples)
}

// Len implements Node. It is the number of full batches: a final partial batch, yielded by Next,
// is not counted.
func (b *StaticBatcher) Len() (int, bool, error) {
	state, err := b.slot.State()
	if err != nil {
		return 0, false, err
	}
	n, known, err := state.inner.Len()
	if err != nil || !known {
		return 0, false, err
	}
	return n / state.batchSize, true, nil
}

// LabelKind implements Node.
func (b *StaticBatcher) LabelKind() (LabelKind, error) {
	state, err := b.slot.State()
	if err != nil {
		return 0, err
	}
	return state.inner.LabelKind()
}

// Take implements Node.
func (b *StaticBatcher) Take() (Node[Batch], error) {
	slot, err := b.slot.Take()
	if err != nil {
		return nil, err
	}
	return &StaticBatcher{slot: slot}, nil
}

func (s *batcherState) build(samples []TokenizedSample) (Batch, bool, error) {
	if len(samples) == 0 {
		return Batch{}, false, nil
	}
	kind, err := s.inner.LabelKind()
	if err != nil {
		return Batch{}, false, err
	}
	batch, err := NewBatch(samples, kind, s.seqLength)
	if err != nil {
		return Batch{}, false, err
	}
	return batch, true, nil
}

// NewBatch builds a Batch from samples, in order: row i of the ids matrix holds the first
// min(len, seqLength) token ids of sample i, and the remaining cells are set to the pad token.
// Extra tokens are dropped.
//
// All samples must share the same pad token (ErrMixedPadTokens otherwise), and have labels of the given kind.
func NewBatch(samples []TokenizedSample, kind LabelKind, seqLength int) (Batch, error) {
	if len(samples) == 0 || seqLength <= 0 {
		return Batch{}, errors.WithMessagef(ErrInvalidArgument, "cannot batch %d samples with sequence length %d",
			len(samples), seqLength)
	}
	padToken := samples[0].Encoding.PadToken
	ids := NewMatrix(len(samples), seqLength, padToken)
	lengths := make([]int, len(samples))
	labels := make([]TokenizedLabel, len(samples))
	for ii, sample := range samples {
		if sample.Encoding.PadToken != padToken {
			return Batch{}, errors.WithMessagef(ErrMixedPadTokens, "sample #%d has pad token %d, sample #0 has %d",
				ii, sample.Encoding.PadToken, padToken)
		}
		lengths[ii] = len(sample.Encoding.IDs)
		copy(ids.Row(ii), sample.Encoding.IDs)
		labels[ii] = sample.Label
	}
	batchLabels, err := BatchLabels(kind, labels)
	if err != nil {
		return Batch{}, err
	}
	return Batch{
		Encoding: BatchEncoding{IDs: ids, PadToken: padToken, Lengths: lengths},
		Labels:   batchLabels,
	}, nil
}
