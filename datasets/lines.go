package datasets

import (
	"bufio"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gomlx/textpipe/pipeline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// LineLoader yields one unlabeled sample per line of a text source, read lazily.
//
// Line terminators ("\n" or "\r\n") are stripped. It doesn't support random access and its length is unknown.
// The source is closed when the end is reached, or by Close.
type LineLoader struct {
	slot pipeline.Slot[lineState]
}

type lineState struct {
	name   string
	reader *bufio.Reader
	closer io.Closer
	line   int
	done   bool
}

// Compile time assert that LineLoader implements pipeline.Node.
var _ pipeline.Node[pipeline.Sample] = &LineLoader{}

// NewLineLoader opens the file at path for reading.
//
// It returns ErrSourceIO if the file cannot be opened.
func NewLineLoader(path string) (*LineLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessagef(ErrSourceIO, "opening %q: %v", path, err)
	}
	log.Debug().Str("path", path).Msg("line loader opened")
	return newLineLoader(path, f, f), nil
}

// NewLineLoaderFromReader reads lines from r. If r implements io.Closer it is closed at the end of the input.
func NewLineLoaderFromReader(r io.Reader) *LineLoader {
	closer, _ := r.(io.Closer)
	return newLineLoader("<reader>", r, closer)
}

func newLineLoader(name string, r io.Reader, closer io.Closer) *LineLoader {
	return &LineLoader{slot: pipeline.NewSlot(&lineState{
		name:   name,
		reader: bufio.NewReader(r),
		closer: closer,
	})}
}

// Next implements pipeline.Node.
//
// A line that is not valid UTF-8 returns ErrInvalidEncoding, and reading can continue with the following line.
func (l *LineLoader) Next() (pipeline.Sample, bool, error) {
	state, err := l.slot.State()
	if err != nil {
		return pipeline.Sample{}, false, err
	}
	if state.done {
		return pipeline.Sample{}, false, nil
	}
	text, err := state.reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return pipeline.Sample{}, false, errors.WithMessagef(ErrSourceIO, "reading %s line %d: %v", state.name, state.line+1, err)
	}
	if text != "" {
		state.line++
	}
	if err == io.EOF {
		// Last line without a terminator is still a line, an empty remainder is not.
		if closeErr := state.close(); closeErr != nil {
			if text == "" {
				return pipeline.Sample{}, false, closeErr
			}
			log.Warn().Err(closeErr).Send()
		}
		if text == "" {
			return pipeline.Sample{}, false, nil
		}
	}
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	if !utf8.ValidString(text) {
		return pipeline.Sample{}, false, errors.WithMessagef(ErrInvalidEncoding, "%s line %d", state.name, state.line)
	}
	return pipeline.NewText(text, pipeline.NoLabel{}), true, nil
}

// Get implements pipeline.Node. LineLoader is sequential only, it always returns pipeline.ErrRandomAccessUnsupported.
func (l *LineLoader) Get(int) (pipeline.Sample, bool, error) {
	if _, err := l.slot.State(); err != nil {
		return pipeline.Sample{}, false, err
	}
	return pipeline.Sample{}, false, pipeline.ErrRandomAccessUnsupported
}

// Len implements pipeline.Node. The number of lines is not known ahead of time.
func (l *LineLoader) Len() (int, bool, error) {
	_, err := l.slot.State()
	return 0, false, err
}

// LabelKind implements pipeline.Node.
func (l *LineLoader) LabelKind() (pipeline.LabelKind, error) {
	_, err := l.slot.State()
	return pipeline.KindNone, err
}

// Take implements pipeline.Node. The returned node is a *LineLoader.
func (l *LineLoader) Take() (pipeline.Node[pipeline.Sample], error) {
	slot, err := l.slot.Take()
	if err != nil {
		return nil, err
	}
	return &LineLoader{slot: slot}, nil
}

// Close releases the source. Further calls to Next report the end of the input.
func (l *LineLoader) Close() error {
	state, err := l.slot.State()
	if err != nil {
		return err
	}
	return state.close()
}

func (s *lineState) close() error {
	if s.done {
		return nil
	}
	s.done = true
	log.Debug().Str("source", s.name).Int("lines", s.line).Msg("line loader finished")
	if s.closer == nil {
		return nil
	}
	if err := s.closer.Close(); err != nil {
		return errors.WithMessagef(ErrSourceIO, "closing %s: %v", s.name, err)
	}
	return nil
}
