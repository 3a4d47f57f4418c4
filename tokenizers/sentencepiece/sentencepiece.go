// Package sentencepiece implements a api.TokenizerWithOffsets based on SentencePiece "tokenizer.model" files.
package sentencepiece

import (
	"strconv"
	"strings"
	"unicode/utf8"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/textpipe/hub"
	"github.com/gomlx/textpipe/tokenizers/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// ModelFile is the name of the SentencePiece model proto file in a HuggingFace repo.
const ModelFile = "tokenizer.model"

// New creates a SentencePiece tokenizer based on the "tokenizer.model" file, which must be a
// SentencePiece Model proto.
//
// It implements a tokenizers.TokenizerConstructor function signature.
func New(config *api.Config, repo *hub.Repo) (api.TokenizerWithOffsets, error) {
	if !repo.HasFile(ModelFile) {
		return nil, errors.Errorf("%q file not found in repo %q", ModelFile, repo)
	}
	tokenizerFile, err := repo.DownloadFile(ModelFile)
	if err != nil {
		return nil, errors.WithMessagef(err, "can't download %s file", ModelFile)
	}
	return NewFromPath(tokenizerFile, config)
}

// NewFromPath creates a SentencePiece tokenizer from a local model proto file.
// The config is optional (it can be nil): it's used for special tokens the model doesn't define.
func NewFromPath(modelFile string, config *api.Config) (*Tokenizer, error) {
	proc, err := esentencepiece.NewProcessorFromPath(modelFile)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece tokenizer from %q", modelFile)
	}
	info := proc.ModelInfo()
	log.Debug().Str("file", modelFile).Int("vocab_size", info.VocabularySize).Msg("loaded sentencepiece model")
	return &Tokenizer{
		Processor: proc,
		Info:      info,
		config:    config,
	}, nil
}

// Tokenizer implements api.TokenizerWithOffsets interface based on SentencePiece tokenizer by Google.
type Tokenizer struct {
	*esentencepiece.Processor
	Info *esentencepiece.ModelInfo

	config *api.Config
}

// Compile time assert that sentencepiece.Tokenizer implements api.TokenizerWithOffsets interface.
var _ api.TokenizerWithOffsets = &Tokenizer{}

// Encode returns the text encoded into a sequence of ids.
func (p *Tokenizer) Encode(text string) []int {
	tokens := p.Processor.Encode(text)
	return sliceMap(tokens, func(t esentencepiece.Token) int { return t.ID })
}

// EncodeWithOffsets implements api.TokenizerWithOffsets.
//
// SentencePiece doesn't report offsets, so they are recovered by matching the pieces against the text.
func (p *Tokenizer) EncodeWithOffsets(text string) (api.EncodingResult, error) {
	tokens := p.Processor.Encode(text)
	pieces := sliceMap(tokens, func(t esentencepiece.Token) string { return t.Text })
	return api.EncodingResult{
		IDs:         sliceMap(tokens, func(t esentencepiece.Token) int { return t.ID }),
		Offsets:     alignPieces(text, pieces),
		SequenceIDs: make([]int, len(tokens)),
	}, nil
}

// spaceSymbol is used by SentencePiece in place of whitespace in pieces.
const spaceSymbol = "▁"

// alignPieces finds the character span of each piece in text.
//
// Whitespace leading a piece is excluded from its span, including the dummy prefix added by SentencePiece.
// Byte fallback pieces ("<0xNN>") accumulate until they complete a character, and the last of them covers it.
// Control pieces (e.g.: "<s>") and unmatched pieces get an empty span at the current position.
func alignPieces(text string, pieces []string) []api.TokenOffset {
	runes := []rune(text)
	offsets := make([]api.TokenOffset, len(pieces))
	pos := 0
	var pendingBytes []byte
	for ii, piece := range pieces {
		if b, isByte := parseBytePiece(piece); isByte {
			if len(pendingBytes) == 0 {
				for pos < len(runes) && isSpace(runes[pos]) {
					pos++
				}
			}
			pendingBytes = append(pendingBytes, b)
			offsets[ii] = api.TokenOffset{Start: pos, End: pos}
			if utf8.FullRune(pendingBytes) {
				pendingBytes = pendingBytes[:0]
				if pos < len(runes) {
					offsets[ii].End = pos + 1
					pos++
				}
			}
			continue
		}
		pendingBytes = pendingBytes[:0]

		pieceRunes := []rune(strings.ReplaceAll(piece, spaceSymbol, " "))
		// Skip leading whitespace, of the piece and of the text.
		for len(pieceRunes) > 0 && pieceRunes[0] == ' ' {
			pieceRunes = pieceRunes[1:]
		}
		if len(pieceRunes) == 0 {
			offsets[ii] = api.TokenOffset{Start: pos, End: pos}
			continue
		}
		start := pos
		for start < len(runes) && isSpace(runes[start]) {
			start++
		}
		if !hasPrefix(runes[start:], pieceRunes) {
			offsets[ii] = api.TokenOffset{Start: pos, End: pos}
			continue
		}
		offsets[ii] = api.TokenOffset{Start: start, End: start + len(pieceRunes)}
		pos = start + len(pieceRunes)
	}
	return offsets
}

// parseBytePiece parses byte fallback pieces of the form "<0xNN>".
func parseBytePiece(piece string) (byte, bool) {
	if len(piece) != 6 || !strings.HasPrefix(piece, "<0x") || piece[5] != '>' {
		return 0, false
	}
	v, err := strconv.ParseUint(piece[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func hasPrefix(runes, prefix []rune) bool {
	if len(prefix) > len(runes) {
		return false
	}
	for ii, r := range prefix {
		if runes[ii] != r {
			return false
		}
	}
	return true
}

// Decode returns the text from a sequence of ids.
func (p *Tokenizer) Decode(ids []int) string {
	return p.Processor.Decode(ids)
}

// PaddingID implements api.TokenizerWithOffsets: it is the model's "<pad>" control piece, if it has one.
func (p *Tokenizer) PaddingID() (int, bool) {
	if p.Info.PadID < 0 {
		return 0, false
	}
	return p.Info.PadID, true
}

// SpecialTokenID returns the token for the given symbol, or an error if not known.
//
// Ids defined by the model take precedence. Negative ids (the model disables the token) count as not defined.
func (p *Tokenizer) SpecialTokenID(token api.SpecialToken) (int, error) {
	id := -1
	switch token {
	case api.TokUnknown:
		id = p.Info.UnknownID
	case api.TokPad:
		id = p.Info.PadID
	case api.TokBeginningOfSentence:
		id = p.Info.BeginningOfSentenceID
	case api.TokEndOfSentence:
		id = p.Info.EndOfSentenceID
	}
	if id >= 0 {
		return id, nil
	}
	if name := p.config.TokenFor(token); name != "" {
		for _, t := range p.Processor.Encode(name) {
			if t.Text == name {
				return t.ID, nil
			}
		}
	}
	return 0, errors.Errorf("unknown special token: %s (%d)", token, token)
}

// sliceMap executes the given function sequentially for every element on in, and returns a mapped slice.
func sliceMap[In, Out any](in []In, fn func(e In) Out) (out []Out) {
	out = make([]Out, len(in))
	for ii, e := range in {
		out[ii] = fn(e)
	}
	return
}
