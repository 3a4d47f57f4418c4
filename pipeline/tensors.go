package pipeline

import (
	"github.com/gomlx/gomlx/types/tensors"
)

// Tensors converts the batch to tensors, in the form yielded by a GoMLX train.Dataset:
//
//   - inputs: the token ids, shaped [batchSize, seqLength] of dtype Uint32.
//   - labels: for a BatchSpan, the start and end token indices shaped [batchSize] of dtype Int64;
//     nil for NoBatchLabel.
func (b *Batch) Tensors() (inputs []*tensors.Tensor, labels []*tensors.Tensor) {
	ids := b.Encoding.IDs
	data := make([]uint32, len(ids.Data))
	copy(data, ids.Data)
	inputs = []*tensors.Tensor{tensors.FromFlatDataAndDimensions(data, ids.Rows, ids.Cols)}

	if span, ok := b.Labels.(BatchSpan); ok {
		labels = []*tensors.Tensor{
			tensors.FromFlatDataAndDimensions(toInt64(span.Start), len(span.Start)),
			tensors.FromFlatDataAndDimensions(toInt64(span.End), len(span.End)),
		}
	}
	return
}

func toInt64(values []int) []int64 {
	out := make([]int64, len(values))
	for ii, v := range values {
		out[ii] = int64(v)
	}
	return out
}
