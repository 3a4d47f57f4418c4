package binding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/textpipe/datasets"
	"github.com/gomlx/textpipe/internal/tokenizertest"
	"github.com/gomlx/textpipe/pipeline"
	"github.com/gomlx/textpipe/tokenizers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLinePipeline(t *testing.T) {
	loader, err := NewLineLoader(writeFile(t, "lines.txt", "a b\nc\nd e f\n"))
	require.NoError(t, err)
	assert.Equal(t, KindSamples, loader.Kind())

	_, _, err = loader.Get(0)
	assert.True(t, errors.Is(err, pipeline.ErrRandomAccessUnsupported))

	tok := tokenizertest.New().WithPad(2)
	tokenized, err := NewTokenizerWith(loader, tok)
	require.NoError(t, err)
	assert.Equal(t, KindTokenized, tokenized.Kind())

	// The loader was consumed.
	_, _, err = loader.Next()
	assert.True(t, errors.Is(err, pipeline.ErrStageConsumed))
	_, err = NewTokenizerWith(loader, tok)
	assert.True(t, errors.Is(err, pipeline.ErrStageConsumed))
	_, err = loader.LabelKind()
	assert.True(t, errors.Is(err, pipeline.ErrStageConsumed))
	// Checked before the tokenizer is loaded: the identifier is never resolved.
	_, err = NewTokenizer(loader, "owner/unreachable", tokenizers.WithEndpoint("http://127.0.0.1:1"))
	assert.True(t, errors.Is(err, pipeline.ErrStageConsumed))

	batches, err := NewStaticBatcher(tokenized, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, "Handle(batches)", batches.String())
	_, _, err = tokenized.Len()
	assert.True(t, errors.Is(err, pipeline.ErrStageConsumed))

	item, ok, err := batches.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, KindBatches, item.Kind)
	assert.Equal(t, pipeline.KindNone, item.LabelKind)
	assert.False(t, item.HasSpan())
	assert.Equal(t, uint32(2), item.PadToken)
	a, b, c := uint32(tok.ID("a")), uint32(tok.ID("b")), uint32(tok.ID("c"))
	assert.Equal(t, []uint32{a, b, c, 2}, item.Matrix.Data)
	assert.Equal(t, []int{2, 1}, item.Lengths)

	item, ok, err = batches.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, item.Matrix.Rows)

	_, ok, err = batches.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

const squadJSON = `{"data": [{"title": "t", "paragraphs": [{
  "context": "the cat sat",
  "qas": [
    {"id": "1", "question": "who", "answers": [{"answer_start": 4, "text": "cat"}], "is_impossible": false},
    {"id": "2", "question": "why", "answers": [], "is_impossible": true}
  ]}]}]}`

func TestSQuADPipeline(t *testing.T) {
	path := writeFile(t, "squad.json", squadJSON)
	loader, err := NewSQuADLoader(path)
	require.NoError(t, err)
	n, known, err := loader.Len()
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, 2, n)

	item, ok, err := loader.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"who", "the cat sat"}, item.Text)
	assert.Equal(t, pipeline.KindSpan, item.LabelKind)
	assert.Equal(t, []int{4}, item.SpanStart)
	assert.Equal(t, []int{6}, item.SpanEnd)

	item, _, err = loader.Get(1)
	require.NoError(t, err)
	assert.False(t, item.HasSpan())

	tokenized, err := NewTokenizerWith(loader, tokenizertest.New())
	require.NoError(t, err)
	item, ok, err = tokenized.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, item.IDs, 4)
	assert.Equal(t, []int{2}, item.SpanStart)
	assert.Equal(t, []int{2}, item.SpanEnd)

	batches, err := NewStaticBatcher(tokenized, 2, 8)
	require.NoError(t, err)
	n, known, err = batches.Len()
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, 1, n)
	item, ok, err = batches.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{2, 0}, item.SpanStart)
	assert.Equal(t, []int{2, 0}, item.SpanEnd)
	assert.Equal(t, 8, item.Matrix.Cols)
}

const squadWordsJSON = `{"data": [{"title": "t", "paragraphs": [{
  "context": "the cat sat on the mat",
  "qas": [
    {"id": "1", "question": "where is the cat", "answers": [{"answer_start": 4, "text": "cat"}]},
    {"id": "2", "question": "why", "answers": [], "is_impossible": true},
    {"id": "3", "question": "where is the mat", "answers": [{"answer_start": 19, "text": "mat"}]}
  ]}]}]}`

func TestTokenizerByIdentifier(t *testing.T) {
	dir := tokenizertest.WriteTokenizerDir(t, 0,
		`{"tokenizer_class": "BertTokenizerFast", "pad_token": "[PAD]", "unk_token": "[UNK]"}`)
	loader, err := NewSQuADLoader(writeFile(t, "squad.json", squadWordsJSON))
	require.NoError(t, err)
	tokenized, err := NewTokenizer(loader, dir)
	require.NoError(t, err)
	kind, err := tokenized.LabelKind()
	require.NoError(t, err)
	assert.Equal(t, pipeline.KindSpan, kind)

	item, ok, err := tokenized.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	// where=2 is=3 the=4 cat=5 | the=4 cat=5 sat=6 on=7 the=4 mat=8
	assert.Equal(t, []uint32{2, 3, 4, 5, 4, 5, 6, 7, 4, 8}, item.IDs)
	assert.Equal(t, uint32(0), item.PadToken)
	assert.Equal(t, []int{5}, item.SpanStart)
	assert.Equal(t, []int{5}, item.SpanEnd)

	batches, err := NewStaticBatcher(tokenized, 2, 12)
	require.NoError(t, err)
	item, ok, err = batches.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, item.Matrix.Rows)
	assert.Equal(t, []uint32{2, 3, 4, 5, 4, 5, 6, 7, 4, 8, 0, 0}, item.Matrix.Data[:12])
	// "why" is out of the vocabulary.
	assert.Equal(t, []uint32{1, 4, 5, 6, 7, 4, 8, 0, 0, 0, 0, 0}, item.Matrix.Data[12:])
	assert.Equal(t, []int{10, 7}, item.Lengths)
	assert.Equal(t, []int{5, 0}, item.SpanStart)
	assert.Equal(t, []int{5, 0}, item.SpanEnd)

	item, ok, err = batches.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, item.Matrix.Rows)
	assert.Equal(t, []int{9}, item.SpanStart)
	assert.Equal(t, []int{9}, item.SpanEnd)
}

func TestIncompatibleStages(t *testing.T) {
	loader, err := NewLineLoader(writeFile(t, "lines.txt", "x\n"))
	require.NoError(t, err)

	_, err = NewStaticBatcher(loader, 1, 1)
	assert.True(t, errors.Is(err, ErrIncompatibleStage))
	_, err = NewTokenizerWith(nil, tokenizertest.New())
	assert.True(t, errors.Is(err, ErrIncompatibleStage))

	tokenized, err := NewTokenizerWith(loader, tokenizertest.New())
	require.NoError(t, err)
	_, err = NewTokenizerWith(tokenized, tokenizertest.New())
	assert.True(t, errors.Is(err, ErrIncompatibleStage))
	_, err = NewTokenizer(tokenized, "unused")
	assert.True(t, errors.Is(err, ErrIncompatibleStage))

	_, err = NewStaticBatcher(tokenized, 0, 1)
	assert.True(t, errors.Is(err, pipeline.ErrInvalidArgument))

	_, err = NewLineLoader(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, datasets.ErrSourceIO))
	_, err = NewSQuADLoader(writeFile(t, "bad.json", "["))
	assert.True(t, errors.Is(err, datasets.ErrFormat))
}
