package tokenizertest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WordLevelVocab is the vocabulary used by WordLevelJSON when none is given: ids follow the order.
var WordLevelVocab = []string{"[PAD]", "[UNK]", "where", "is", "the", "cat", "sat", "on", "mat"}

// WordLevelJSON returns the content of a HuggingFace "tokenizer.json" for a word level model over vocab,
// splitting text on whitespace. If padID >= 0, padding with vocab[padID] is configured.
func WordLevelJSON(vocab []string, padID int) []byte {
	ids := make(map[string]int, len(vocab))
	for id, word := range vocab {
		ids[word] = id
	}
	var padding map[string]any
	if padID >= 0 {
		padding = map[string]any{
			"strategy":    "BatchLongest",
			"size":        0,
			"direction":   "right",
			"pad_id":      padID,
			"pad_type_id": 0,
			"pad_token":   vocab[padID],
		}
	}
	content, err := json.Marshal(map[string]any{
		"version":        "1.0",
		"truncation":     nil,
		"padding":        padding,
		"added_tokens":   []any{},
		"normalizer":     nil,
		"pre_tokenizer":  map[string]any{"type": "WhitespaceSplit"},
		"post_processor": nil,
		"decoder":        nil,
		"model": map[string]any{
			"type":      "WordLevel",
			"vocab":     ids,
			"unk_token": "[UNK]",
		},
	})
	if err != nil {
		panic(err)
	}
	return content
}

// WriteTokenizerDir writes a "tokenizer.json" built with WordLevelJSON(WordLevelVocab, padID) to a new temporary
// directory, along with "tokenizer_config.json" if config is not empty. It returns the directory.
func WriteTokenizerDir(t testing.TB, padID int, config string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tokenizer.json"), WordLevelJSON(WordLevelVocab, padID), 0644); err != nil {
		t.Fatalf("writing tokenizer.json: %v", err)
	}
	if config != "" {
		if err := os.WriteFile(filepath.Join(dir, "tokenizer_config.json"), []byte(config), 0644); err != nil {
			t.Fatalf("writing tokenizer_config.json: %v", err)
		}
	}
	return dir
}
