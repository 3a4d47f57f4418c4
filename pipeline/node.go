// Package pipeline implements a composable, pull-based pipeline to prepare text samples for training.
//
// A pipeline is a chain of stages implementing Node: a loader (see package datasets) producing Sample,
// a Tokenizer producing TokenizedSample, and a StaticBatcher producing Batch. Each stage is built by
// taking ownership of the previous one (Node.Take): the previous value is left tombstoned and any further
// use of it returns ErrStageConsumed.
//
// Labels travel along the chain in three forms: Label (raw, character offsets), TokenizedLabel (token indices)
// and BatchLabel (columnar arrays). The transitions are TokenizeLabel and BatchLabels.
//
// Everything is synchronous: each call runs to completion on the caller's goroutine, and stages are not
// safe for concurrent use.
package pipeline

import "iter"

// Node is the contract implemented by every pipeline stage.
type Node[T any] interface {
	// Next advances the stage cursor and returns the next item, or false when the stage is exhausted.
	Next() (item T, ok bool, err error)

	// Get returns the item at the absolute position index, without moving the Next cursor.
	// It returns false if index is out of range, and ErrRandomAccessUnsupported if the stage
	// can only be read sequentially.
	Get(index int) (item T, ok bool, err error)

	// Len returns the number of items, if known ahead of time.
	Len() (n int, known bool, err error)

	// LabelKind returns the label chain carried by the items of this stage.
	LabelKind() (LabelKind, error)

	// Take transfers ownership of the stage state to the returned Node, and leaves the receiver
	// tombstoned: all its methods will return ErrStageConsumed afterwards.
	Take() (Node[T], error)
}

// Slot holds the state of a stage for its single current owner. Stages keep their state in a Slot so
// that ownership can be transferred with Slot.Take.
type Slot[S any] struct {
	state *S
}

// NewSlot returns a Slot owning state.
func NewSlot[S any](state *S) Slot[S] {
	return Slot[S]{state: state}
}

// State returns the owned state, or ErrStageConsumed if it was taken (or never set).
func (s *Slot[S]) State() (*S, error) {
	if s.state == nil {
		return nil, ErrStageConsumed
	}
	return s.state, nil
}

// Take moves the state to a new Slot and tombstones s.
func (s *Slot[S]) Take() (Slot[S], error) {
	state, err := s.State()
	if err != nil {
		return Slot[S]{}, err
	}
	s.state = nil
	return Slot[S]{state: state}, nil
}

// Consumed returns whether the state was taken away from s.
func (s *Slot[S]) Consumed() bool {
	return s.state == nil
}

// Iter returns an iterator over the remaining items of node, using Node.Next.
// Iteration stops after the first error, which is yielded with a zero item.
func Iter[T any](node Node[T]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, ok, err := node.Next()
			if err != nil {
				var zero T
				yield(zero, err)
				return
			}
			if !ok {
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}
