package pipeline

import (
	"testing"

	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sevenWords encodes "a bb c dd e ff g" with one token per word.
func sevenWords() *api.EncodingResult {
	var enc api.EncodingResult
	enc.Append(api.EncodingResult{
		IDs: []int{1, 2, 3, 4, 5, 6, 7},
		Offsets: []api.TokenOffset{
			{Start: 0, End: 1}, {Start: 2, End: 4}, {Start: 5, End: 6}, {Start: 7, End: 9}, {Start: 10, End: 11}, {Start: 12, End: 14}, {Start: 15, End: 16},
		},
	})
	return &enc
}

func TestTokenizeNoLabel(t *testing.T) {
	label, err := TokenizeLabel(NoLabel{}, sevenWords(), 0)
	require.NoError(t, err)
	assert.Equal(t, NoTokenizedLabel{}, label)
	assert.Equal(t, KindNone, label.Kind())
}

func TestTokenizeSpanAlignment(t *testing.T) {
	enc := sevenWords()

	// "dd" starts at char 7 (token 3), "ff" ends at char 13 (token 5).
	label, err := TokenizeLabel(NewSpan(7, 13), enc, 0)
	require.NoError(t, err)
	assert.Equal(t, TokenizedSpan{Tokens: &TokenSpan{Start: 3, End: 5}}, label)

	// Same span, with the aligned segment starting at char 100 of the span's coordinates.
	label, err = TokenizeLabel(NewSpan(107, 113), enc, 100)
	require.NoError(t, err)
	assert.Equal(t, TokenizedSpan{Tokens: &TokenSpan{Start: 3, End: 5}}, label)

	// Start before the aligned segment: dropped.
	label, err = TokenizeLabel(NewSpan(7, 113), enc, 100)
	require.NoError(t, err)
	assert.Equal(t, TokenizedSpan{}, label)
}

func TestTokenizeSpanMisses(t *testing.T) {
	enc := sevenWords()
	for name, span := range map[string]Span{
		"no answer":        {},
		"start whitespace": NewSpan(1, 3),
		"end whitespace":   NewSpan(2, 6),
		"past the end":     NewSpan(15, 30),
		"reversed":         NewSpan(5, 2),
	} {
		label, err := TokenizeLabel(span, enc, 0)
		require.NoError(t, err, name)
		assert.Equal(t, TokenizedSpan{}, label, name)
	}

	// Empty encoding has no sequence to align to.
	label, err := TokenizeLabel(NewSpan(0, 0), &api.EncodingResult{}, 0)
	require.NoError(t, err)
	assert.Equal(t, TokenizedSpan{}, label)
}

func TestTokenizeSpanUsesLastSequence(t *testing.T) {
	var enc api.EncodingResult
	enc.Append(api.EncodingResult{IDs: []int{1, 2}, Offsets: []api.TokenOffset{{Start: 0, End: 3}, {Start: 4, End: 7}}})
	enc.Append(api.EncodingResult{IDs: []int{3, 4, 5}, Offsets: []api.TokenOffset{{Start: 0, End: 3}, {Start: 4, End: 7}, {Start: 8, End: 11}}})
	label, err := TokenizeLabel(NewSpan(4, 10), &enc, 0)
	require.NoError(t, err)
	assert.Equal(t, TokenizedSpan{Tokens: &TokenSpan{Start: 3, End: 4}}, label)
}

func TestTokenizeNilLabel(t *testing.T) {
	_, err := TokenizeLabel(nil, sevenWords(), 0)
	assert.True(t, errors.Is(err, ErrLabelMismatch))
}

func TestBatchLabels(t *testing.T) {
	batch, err := BatchLabels(KindNone, []TokenizedLabel{NoTokenizedLabel{}, NoTokenizedLabel{}})
	require.NoError(t, err)
	assert.Equal(t, NoBatchLabel{}, batch)

	batch, err = BatchLabels(KindSpan, []TokenizedLabel{
		TokenizedSpan{Tokens: &TokenSpan{Start: 3, End: 5}},
		TokenizedSpan{},
		TokenizedSpan{Tokens: &TokenSpan{Start: 1, End: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, BatchSpan{Start: []int{3, 0, 1}, End: []int{5, 0, 1}}, batch)
}

func TestBatchLabelsMismatch(t *testing.T) {
	_, err := BatchLabels(KindNone, []TokenizedLabel{NoTokenizedLabel{}, TokenizedSpan{}})
	assert.True(t, errors.Is(err, ErrLabelMismatch))
	_, err = BatchLabels(KindSpan, []TokenizedLabel{NoTokenizedLabel{}})
	assert.True(t, errors.Is(err, ErrLabelMismatch))
	_, err = BatchLabels(KindSpan, []TokenizedLabel{nil})
	assert.True(t, errors.Is(err, ErrLabelMismatch))
	_, err = BatchLabels(LabelKind(42), nil)
	assert.True(t, errors.Is(err, ErrLabelMismatch))
}

func TestLabelKindString(t *testing.T) {
	assert.Equal(t, "none", KindNone.String())
	assert.Equal(t, "span", KindSpan.String())
	assert.Equal(t, "LabelKind(7)", LabelKind(7).String())
}
