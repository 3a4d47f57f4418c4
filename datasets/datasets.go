// Package datasets implements the loaders that start a pipeline: they read raw samples from files
// and yield pipeline.Sample items.
//
//   - LineLoader: one plain text sample per line, read lazily.
//   - SQuADLoader: (question, context) samples with answer spans, from a SQuAD formatted JSON file.
package datasets

import "github.com/pkg/errors"

var (
	// ErrSourceIO is returned when the source file cannot be opened or read.
	ErrSourceIO = errors.New("failed to read dataset source")

	// ErrFormat is returned when the source doesn't follow the expected format.
	ErrFormat = errors.New("malformed dataset")

	// ErrInvalidEncoding is returned for lines that are not valid UTF-8.
	ErrInvalidEncoding = errors.New("invalid UTF-8 text")
)
