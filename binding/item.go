package binding

import (
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/gomlx/textpipe/pipeline"
)

// Item is a flat view of an item of any kind of stage.
type Item struct {
	Kind      Kind
	LabelKind pipeline.LabelKind

	// Text segments of a raw sample: one for plain text, (question, context) for pairs.
	Text []string

	// IDs of a tokenized sample.
	IDs []uint32

	// Matrix of token ids of a batch, one row per sample.
	Matrix pipeline.Matrix

	// Lengths of the samples of a batch, in tokens, before padding or truncation.
	Lengths []int

	// Stats of padding and truncation of a batch.
	Stats pipeline.BatchStats

	// PadToken of a tokenized sample or batch.
	PadToken uint32

	// SpanStart and SpanEnd hold the span label: character offsets for raw samples and token indices
	// for tokenized samples, with one entry if the sample has a span and none otherwise. For batches
	// they hold one entry per row, with (0, 0) for rows without an aligned span.
	// They are nil if the labels are not spans.
	SpanStart, SpanEnd []int

	batch *pipeline.Batch
}

// Tensors returns the batch as tensors, see pipeline.Batch.Tensors. Items that are not batches have none.
func (it *Item) Tensors() (inputs, labels []*tensors.Tensor) {
	if it.batch == nil {
		return nil, nil
	}
	return it.batch.Tensors()
}

// HasSpan returns whether the item carries at least one span entry.
func (it *Item) HasSpan() bool {
	return len(it.SpanStart) > 0
}

// view adapts the results of a Node operation to an Item, using convert.
func view[T any](convert func(T) Item) func(T, bool, error) (Item, bool, error) {
	return func(value T, ok bool, err error) (Item, bool, error) {
		if err != nil || !ok {
			return Item{}, false, err
		}
		return convert(value), true, nil
	}
}

func sampleItem(sample pipeline.Sample) Item {
	item := Item{Kind: KindSamples, Text: sample.Text}
	switch label := sample.Label.(type) {
	case pipeline.NoLabel:
		item.LabelKind = pipeline.KindNone
	case pipeline.Span:
		item.LabelKind = pipeline.KindSpan
		item.SpanStart, item.SpanEnd = []int{}, []int{}
		if label.Chars != nil {
			item.SpanStart = []int{label.Chars.Start}
			item.SpanEnd = []int{label.Chars.End}
		}
	}
	return item
}

func tokenizedItem(sample pipeline.TokenizedSample) Item {
	item := Item{Kind: KindTokenized, IDs: sample.Encoding.IDs, PadToken: sample.Encoding.PadToken}
	switch label := sample.Label.(type) {
	case pipeline.NoTokenizedLabel:
		item.LabelKind = pipeline.KindNone
	case pipeline.TokenizedSpan:
		item.LabelKind = pipeline.KindSpan
		item.SpanStart, item.SpanEnd = []int{}, []int{}
		if label.Tokens != nil {
			item.SpanStart = []int{label.Tokens.Start}
			item.SpanEnd = []int{label.Tokens.End}
		}
	}
	return item
}

func batchItem(batch pipeline.Batch) Item {
	item := Item{
		Kind:     KindBatches,
		Matrix:   batch.Encoding.IDs,
		Lengths:  batch.Encoding.Lengths,
		Stats:    batch.Stats(),
		PadToken: batch.Encoding.PadToken,
		batch:    &batch,
	}
	switch label := batch.Labels.(type) {
	case pipeline.NoBatchLabel:
		item.LabelKind = pipeline.KindNone
	case pipeline.BatchSpan:
		item.LabelKind = pipeline.KindSpan
		item.SpanStart, item.SpanEnd = label.Start, label.End
	}
	return item
}
