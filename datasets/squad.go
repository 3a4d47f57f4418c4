package datasets

import (
	"encoding/json"
	"io"
	"os"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/textpipe/pipeline"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// squadFile mirrors the SQuAD v1.1/v2.0 JSON layout.
type squadFile struct {
	Version string       `json:"version"`
	Data    []squadTopic `json:"data"`
}

type squadTopic struct {
	Title      string           `json:"title"`
	Paragraphs []squadParagraph `json:"paragraphs"`
}

type squadParagraph struct {
	Context string          `json:"context"`
	QAs     []squadQuestion `json:"qas"`
}

type squadQuestion struct {
	ID               string        `json:"id"`
	Question         string        `json:"question"`
	Answers          []squadAnswer `json:"answers"`
	PlausibleAnswers []squadAnswer `json:"plausible_answers"`
	IsImpossible     bool          `json:"is_impossible"`
}

type squadAnswer struct {
	AnswerStart int    `json:"answer_start"`
	Text        string `json:"text"`
}

// SQuADLoader yields one (question, context) sample per question of a SQuAD formatted dataset, labeled with
// the character span of its answer in the context.
//
// The whole file is parsed at construction: it knows its length, supports random access, and its Next cursor
// is independent of Get.
type SQuADLoader struct {
	*pipeline.SliceNode[pipeline.Sample]

	ids []string
}

// NewSQuADLoader parses the SQuAD JSON file at path.
//
// It returns ErrSourceIO if the file cannot be read, and ErrFormat if it is not valid SQuAD JSON.
func NewSQuADLoader(path string) (*SQuADLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithMessagef(ErrSourceIO, "opening %q: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	loader, err := NewSQuADLoaderFromReader(f)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading %q", path)
	}
	return loader, nil
}

// NewSQuADLoaderFromReader parses SQuAD JSON from r.
//
// For each question, the label is built from its answers: when there are several, the last one wins.
// Questions marked impossible, or without answers, get a Span with no characters. The span end is
// answer_start plus the number of characters (runes) of the answer text, minus one.
// Answers with empty text are skipped, since they cover no character.
func NewSQuADLoaderFromReader(r io.Reader) (*SQuADLoader, error) {
	var squad squadFile
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&squad); err != nil {
		switch err.(type) {
		case *json.SyntaxError, *json.UnmarshalTypeError:
			return nil, errors.WithMessagef(ErrFormat, "parsing SQuAD json: %v", err)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.WithMessagef(ErrFormat, "truncated SQuAD json: %v", err)
		}
		return nil, errors.WithMessagef(ErrSourceIO, "reading SQuAD json: %v", err)
	}
	if err := checkTrailing(decoder); err != nil {
		return nil, err
	}

	var samples []pipeline.Sample
	var ids []string
	var numImpossible int
	for _, topic := range squad.Data {
		for _, paragraph := range topic.Paragraphs {
			for _, qa := range paragraph.QAs {
				label := pipeline.Span{}
				if !qa.IsImpossible {
					for _, answer := range qa.Answers {
						length := utf8.RuneCountInString(answer.Text)
						if length == 0 || answer.AnswerStart < 0 {
							continue
						}
						label = pipeline.NewSpan(answer.AnswerStart, answer.AnswerStart+length-1)
					}
				}
				if label.Chars == nil {
					numImpossible++
				}
				samples = append(samples, pipeline.NewPair(qa.Question, paragraph.Context, label))
				ids = append(ids, qa.ID)
			}
		}
	}
	log.Debug().
		Str("version", squad.Version).
		Str("questions", humanize.Comma(int64(len(samples)))).
		Str("unanswered", humanize.Comma(int64(numImpossible))).
		Msg("SQuAD dataset loaded")
	return &SQuADLoader{
		SliceNode: pipeline.FromSlice(pipeline.KindSpan, samples),
		ids:       ids,
	}, nil
}

// checkTrailing makes sure nothing but whitespace follows the decoded document.
func checkTrailing(decoder *json.Decoder) error {
	_, err := decoder.Token()
	if err == io.EOF {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if err == nil || errors.As(err, &syntaxErr) {
		return errors.WithMessagef(ErrFormat, "trailing data after SQuAD json document at offset %d",
			decoder.InputOffset())
	}
	return errors.WithMessagef(ErrSourceIO, "reading SQuAD json: %v", err)
}

// Take implements pipeline.Node. The returned node is a *SQuADLoader that keeps the question ids.
func (l *SQuADLoader) Take() (pipeline.Node[pipeline.Sample], error) {
	slice, err := l.SliceNode.TakeSlice()
	if err != nil {
		return nil, err
	}
	taken := &SQuADLoader{SliceNode: slice, ids: l.ids}
	l.ids = nil
	return taken, nil
}

// QuestionID returns the id of the question of sample index, or "" if the dataset doesn't name it,
// index is out of range or the loader was consumed.
func (l *SQuADLoader) QuestionID(index int) string {
	if _, _, err := l.SliceNode.Len(); err != nil {
		return ""
	}
	if index < 0 || index >= len(l.ids) {
		return ""
	}
	return l.ids[index]
}
