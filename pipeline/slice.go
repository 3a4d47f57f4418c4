package pipeline

// SliceNode is a fully materialized Node over a slice of items: it supports random access and knows its length.
// Its Next cursor is independent of Get.
type SliceNode[T any] struct {
	slot Slot[sliceState[T]]
}

type sliceState[T any] struct {
	items []T
	next  int
	kind  LabelKind
}

// Compile time assert that SliceNode implements Node.
var _ Node[Sample] = &SliceNode[Sample]{}

// FromSlice returns a Node yielding items, whose labels are of the given kind.
// The slice is owned by the node afterwards.
func FromSlice[T any](kind LabelKind, items []T) *SliceNode[T] {
	return &SliceNode[T]{slot: NewSlot(&sliceState[T]{items: items, kind: kind})}
}

// Next implements Node.
func (n *SliceNode[T]) Next() (item T, ok bool, err error) {
	state, err := n.slot.State()
	if err != nil {
		return
	}
	if state.next >= len(state.items) {
		return
	}
	item = state.items[state.next]
	state.next++
	return item, true, nil
}

// Get implements Node.
func (n *SliceNode[T]) Get(index int) (item T, ok bool, err error) {
	state, err := n.slot.State()
	if err != nil {
		return
	}
	if index < 0 || index >= len(state.items) {
		return
	}
	return state.items[index], true, nil
}

// Len implements Node.
func (n *SliceNode[T]) Len() (int, bool, error) {
	state, err := n.slot.State()
	if err != nil {
		return 0, false, err
	}
	return len(state.items), true, nil
}

// LabelKind implements Node.
func (n *SliceNode[T]) LabelKind() (LabelKind, error) {
	state, err := n.slot.State()
	if err != nil {
		return 0, err
	}
	return state.kind, nil
}

// Take implements Node.
func (n *SliceNode[T]) Take() (Node[T], error) {
	taken, err := n.TakeSlice()
	if err != nil {
		return nil, err
	}
	return taken, nil
}

// TakeSlice is like Take, but returns the concrete *SliceNode, for stages embedding it.
func (n *SliceNode[T]) TakeSlice() (*SliceNode[T], error) {
	slot, err := n.slot.Take()
	if err != nil {
		return nil, err
	}
	return &SliceNode[T]{slot: slot}, nil
}
