package pipeline

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrStageConsumed is returned by every operation on a stage whose ownership was transferred (see Node.Take).
	ErrStageConsumed = errors.New("stage already consumed by another stage")

	// ErrRandomAccessUnsupported is returned by Node.Get on stages that can only be read sequentially.
	// It is distinct from an out-of-range index, which is reported by Get returning false.
	ErrRandomAccessUnsupported = errors.New("random access not supported by stage")

	// ErrTokenization wraps failures of the external tokenizer. It aborts the run.
	ErrTokenization = errors.New("tokenization failed")

	// ErrLabelMismatch is returned when a label doesn't belong to the label chain in use by a stage.
	ErrLabelMismatch = errors.New("label does not match the stage label kind")

	// ErrMixedPadTokens is returned when samples with different pad tokens are batched together.
	ErrMixedPadTokens = errors.New("samples in batch have different pad tokens")

	// ErrInvalidArgument is returned for invalid stage parameters.
	ErrInvalidArgument = errors.New("invalid argument")
)

// TokenizationError is returned when the external tokenizer fails on a text segment of a sample.
// It matches ErrTokenization with errors.Is, and the tokenizer's error is its cause.
type TokenizationError struct {
	Segment int
	Err     error
}

// Error implements error.
func (e *TokenizationError) Error() string {
	return fmt.Sprintf("%s: segment #%d: %v", ErrTokenization, e.Segment, e.Err)
}

// Unwrap returns the tokenizer's error.
func (e *TokenizationError) Unwrap() error { return e.Err }

// Cause implements the github.com/pkg/errors causer interface.
func (e *TokenizationError) Cause() error { return e.Err }

// Is reports whether target is ErrTokenization.
func (e *TokenizationError) Is(target error) bool { return target == ErrTokenization }
