package pipeline

import (
	"testing"

	"github.com/gomlx/textpipe/internal/tokenizertest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizerNoLabel(t *testing.T) {
	tok := tokenizertest.New().WithPad(1)
	loader := FromSlice(KindNone, []Sample{
		NewText("hello world", NoLabel{}),
		NewText("hello again world", NoLabel{}),
	})
	stage, err := NewTokenizer(loader, tok)
	require.NoError(t, err)

	n, known, err := stage.Len()
	require.NoError(t, err)
	assert.True(t, known)
	assert.Equal(t, 2, n)

	hello, world, again := uint32(tok.ID("hello")), uint32(tok.ID("world")), uint32(tok.ID("again"))
	sample, ok, err := stage.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Encoding{IDs: []uint32{hello, world}, PadToken: 1}, sample.Encoding)
	assert.Equal(t, NoTokenizedLabel{}, sample.Label)

	sample, ok, err = stage.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{hello, again, world}, sample.Encoding.IDs)

	_, ok, err = stage.Next()
	assert.NoError(t, err)
	assert.False(t, ok)

	// Random access re-tokenizes from the input.
	sample, ok, err = stage.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{hello, world}, sample.Encoding.IDs)
}

func TestTokenizerPairSpan(t *testing.T) {
	tok := tokenizertest.New()
	// Context "the cat sat": "cat" is chars 4 to 6, the question adds 3 tokens before it.
	loader := FromSlice(KindSpan, []Sample{
		NewPair("where is it", "the cat sat", NewSpan(4, 6)),
		NewPair("where is it", "the cat sat", Span{}),
		NewPair("where is it", "the cat sat", NewSpan(3, 6)),
	})
	stage, err := NewTokenizer(loader, tok)
	require.NoError(t, err)
	kind, err := stage.LabelKind()
	require.NoError(t, err)
	assert.Equal(t, KindSpan, kind)

	sample, ok, err := stage.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, sample.Encoding.IDs, 6)
	assert.Equal(t, uint32(0), sample.Encoding.PadToken)
	assert.Equal(t, TokenizedSpan{Tokens: &TokenSpan{Start: 4, End: 4}}, sample.Label)

	sample, _, err = stage.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenizedSpan{}, sample.Label)

	// Starts on whitespace: alignment miss, not an error.
	sample, _, err = stage.Next()
	require.NoError(t, err)
	assert.Equal(t, TokenizedSpan{}, sample.Label)
}

func TestTokenizerFailure(t *testing.T) {
	tok := tokenizertest.New()
	tok.FailOn = "\x00"
	loader := FromSlice(KindNone, []Sample{NewText("bad\x00text", NoLabel{})})
	stage, err := NewTokenizer(loader, tok)
	require.NoError(t, err)
	_, _, err = stage.Next()
	assert.True(t, errors.Is(err, ErrTokenization))
	assert.True(t, errors.Is(err, tokenizertest.ErrUnencodable))
	var tokErr *TokenizationError
	require.True(t, errors.As(err, &tokErr))
	assert.Equal(t, 0, tokErr.Segment)
	assert.Equal(t, tokenizertest.ErrUnencodable, errors.Cause(err))

	_, _, err = stage.Get(0)
	assert.True(t, errors.Is(err, ErrTokenization))
	assert.True(t, errors.Is(err, tokenizertest.ErrUnencodable))

	_, err = TokenizeSample(Sample{Label: NoLabel{}}, tok)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestTokenizerConsumesInput(t *testing.T) {
	loader := FromSlice(KindNone, []Sample{NewText("a", NoLabel{})})
	_, err := NewTokenizer(loader, tokenizertest.New())
	require.NoError(t, err)

	_, _, err = loader.Next()
	assert.True(t, errors.Is(err, ErrStageConsumed))
	_, _, err = loader.Get(0)
	assert.True(t, errors.Is(err, ErrStageConsumed))
	_, _, err = loader.Len()
	assert.True(t, errors.Is(err, ErrStageConsumed))

	// A consumed input can't be used to build another stage.
	_, err = NewTokenizer(loader, tokenizertest.New())
	assert.True(t, errors.Is(err, ErrStageConsumed))

	_, err = NewTokenizer(FromSlice(KindNone, []Sample{}), nil)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}
