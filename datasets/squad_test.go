package datasets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/textpipe/pipeline"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const squadSample = `{
  "version": "v2.0",
  "data": [{
    "title": "Animals",
    "paragraphs": [{
      "context": "the cat sat on the mat",
      "qas": [
        {"id": "q1", "question": "who sat?", "answers": [{"answer_start": 4, "text": "cat"}], "is_impossible": false},
        {"id": "q2", "question": "where?", "answers": [{"answer_start": 15, "text": "the"}, {"answer_start": 15, "text": "the mat"}], "is_impossible": false},
        {"id": "q3", "question": "why?", "answers": [], "plausible_answers": [{"answer_start": 0, "text": "the"}], "is_impossible": true}
      ]
    }]
  }, {
    "title": "Unicode",
    "paragraphs": [{
      "context": "café au lait",
      "qas": [
        {"question": "what drink?", "answers": [{"answer_start": 0, "text": "café"}]}
      ]
    }]
  }]
}`

func TestSQuADLoader(t *testing.T) {
	loader, err := NewSQuADLoaderFromReader(strings.NewReader(squadSample))
	require.NoError(t, err)

	n, known, err := loader.Len()
	require.NoError(t, err)
	require.True(t, known)
	assert.Equal(t, 4, n)
	kind, err := loader.LabelKind()
	require.NoError(t, err)
	assert.Equal(t, pipeline.KindSpan, kind)

	sample, ok, err := loader.Get(0)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"who sat?", "the cat sat on the mat"}, sample.Text)
	assert.Equal(t, pipeline.NewSpan(4, 6), sample.Label)
	assert.Equal(t, "q1", loader.QuestionID(0))

	// Last answer wins.
	sample, _, err = loader.Get(1)
	require.NoError(t, err)
	assert.Equal(t, pipeline.NewSpan(15, 21), sample.Label)

	// Impossible question.
	sample, _, err = loader.Get(2)
	require.NoError(t, err)
	assert.Equal(t, pipeline.Span{}, sample.Label)

	// Lengths are counted in characters.
	sample, _, err = loader.Get(3)
	require.NoError(t, err)
	assert.Equal(t, pipeline.NewSpan(0, 3), sample.Label)
	assert.Equal(t, "", loader.QuestionID(3))
	assert.Equal(t, "", loader.QuestionID(4))

	_, ok, err = loader.Get(4)
	assert.NoError(t, err)
	assert.False(t, ok)

	// Next is independent of Get.
	sample, ok, err = loader.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "who sat?", sample.Text[0])
}

func TestSQuADLoaderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "squad.json")
	require.NoError(t, os.WriteFile(path, []byte(squadSample), 0644))
	loader, err := NewSQuADLoader(path)
	require.NoError(t, err)
	count := 0
	for _, err := range pipeline.Iter[pipeline.Sample](loader) {
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 4, count)

	_, err = NewSQuADLoader(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.Is(err, ErrSourceIO))

	for _, content := range []string{`{"data": [`, `{"data": "nope"}`, `not json`, ``} {
		_, err = NewSQuADLoaderFromReader(strings.NewReader(content))
		assert.True(t, errors.Is(err, ErrFormat), "content %q: %v", content, err)
	}
}

func TestSQuADLoaderTrailingData(t *testing.T) {
	for _, content := range []string{`{"data": []} x`, `{"data": []}}`, `{"data": []} {}`, `{"data": []}]`} {
		_, err := NewSQuADLoaderFromReader(strings.NewReader(content))
		assert.True(t, errors.Is(err, ErrFormat), "content %q: %v", content, err)
	}
	loader, err := NewSQuADLoaderFromReader(strings.NewReader(squadSample + "\n\t \n"))
	require.NoError(t, err)
	n, _, err := loader.Len()
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSQuADLoaderTake(t *testing.T) {
	loader, err := NewSQuADLoaderFromReader(strings.NewReader(squadSample))
	require.NoError(t, err)
	_, _, err = loader.Next()
	require.NoError(t, err)

	node, err := loader.Take()
	require.NoError(t, err)
	taken, ok := node.(*SQuADLoader)
	require.True(t, ok)
	assert.Equal(t, "q1", taken.QuestionID(0))

	// The consumed loader is tombstoned, ids included.
	assert.Equal(t, "", loader.QuestionID(0))
	_, _, err = loader.Get(0)
	assert.ErrorIs(t, err, pipeline.ErrStageConsumed)
	_, err = loader.Take()
	assert.ErrorIs(t, err, pipeline.ErrStageConsumed)

	// The cursor moves with the state.
	sample, ok, err := taken.Next()
	require.NoError(t, err)
	require.True(t, ok)
	second, _, err := taken.Get(1)
	require.NoError(t, err)
	assert.Equal(t, second, sample)
}
