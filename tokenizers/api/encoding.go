package api

// TokenOffset represents the character span of a token in the text of its sequence.
// Special or synthetic tokens that don't cover any character have Start == End.
type TokenOffset struct {
	Start int // start character position (inclusive)
	End   int // end character position (exclusive)
}

// Contains returns whether the character position falls within the offset.
func (o TokenOffset) Contains(char int) bool {
	return char >= o.Start && char < o.End
}

// EncodingResult contains tokens with their offsets, for one or more sequences (e.g.: question and context).
//
// Offsets are relative to the text of the sequence the token belongs to, and are counted in characters (runes).
type EncodingResult struct {
	IDs         []int         // token IDs
	Offsets     []TokenOffset // character offsets for each token
	SequenceIDs []int         // index of the sequence each token belongs to

	numSequences int
}

// Len returns the number of tokens.
func (e *EncodingResult) Len() int {
	return len(e.IDs)
}

// NumSequences returns the number of sequences encoded. An empty encoding of one text still counts
// as one sequence if it was appended with Append.
func (e *EncodingResult) NumSequences() int {
	n := 0
	for _, seq := range e.SequenceIDs {
		if seq+1 > n {
			n = seq + 1
		}
	}
	if e.numSequences > n {
		n = e.numSequences
	}
	return n
}

// Append merges other as the next sequence of e: other's tokens are appended with a new sequence index,
// and their offsets are kept relative to other's own text.
func (e *EncodingResult) Append(other EncodingResult) {
	seq := e.NumSequences()
	e.IDs = append(e.IDs, other.IDs...)
	e.Offsets = append(e.Offsets, other.Offsets...)
	for range other.IDs {
		e.SequenceIDs = append(e.SequenceIDs, seq)
	}
	e.numSequences = seq + 1
}

// CharToToken returns the index of the token of the given sequence covering the character position char.
//
// It returns false if no token covers it: the character is whitespace, lies outside the sequence, or only
// special tokens are present at that position.
func (e *EncodingResult) CharToToken(char, sequence int) (int, bool) {
	if char < 0 {
		return 0, false
	}
	for ii, offset := range e.Offsets {
		if ii < len(e.SequenceIDs) && e.SequenceIDs[ii] != sequence {
			continue
		}
		if ii >= len(e.SequenceIDs) && sequence != 0 {
			continue
		}
		if offset.Contains(char) {
			return ii, true
		}
	}
	return 0, false
}
