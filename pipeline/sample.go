package pipeline

// Sample is one raw text unit before tokenization: either a single text, or a (question, context) pair.
// The character offsets of its Label refer to the last segment of Text.
type Sample struct {
	Text  []string
	Label Label
}

// NewText returns a single text Sample.
func NewText(text string, label Label) Sample {
	return Sample{Text: []string{text}, Label: label}
}

// NewPair returns a (question, context) Sample. The label refers to the context.
func NewPair(question, context string, label Label) Sample {
	return Sample{Text: []string{question, context}, Label: label}
}

// IsPair returns whether the sample holds a (question, context) pair.
func (s Sample) IsPair() bool {
	return len(s.Text) == 2
}

// Encoding is the token ids of one tokenized sample, and the pad token in effect when it was produced.
type Encoding struct {
	IDs      []uint32
	PadToken uint32
}

// TokenizedSample is the output of the Tokenizer stage.
type TokenizedSample struct {
	Encoding Encoding
	Label    TokenizedLabel
}
