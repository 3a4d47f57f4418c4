package api

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// Config struct to hold HuggingFace's tokenizer_config.json contents.
// There is no formal schema for this file, only the fields used to pick and configure a tokenizer are parsed.
//
// The extra field ConfigFile holds the path to the file with the full config.
type Config struct {
	ConfigFile     string
	TokenizerClass string `json:"tokenizer_class"`

	ModelMaxLength float64 `json:"model_max_length"`

	ClsToken  string `json:"cls_token"`
	UnkToken  string `json:"unk_token"`
	SepToken  string `json:"sep_token"`
	MaskToken string `json:"mask_token"`
	BosToken  string `json:"bos_token"`
	EosToken  string `json:"eos_token"`
	PadToken  string `json:"pad_token"`

	DoLowerCase bool   `json:"do_lower_case"`
	NameOrPath  string `json:"name_or_path"`
}

// TokenFor returns the string form of the special token configured, or "" if the config doesn't name it.
// A nil Config names no tokens.
func (c *Config) TokenFor(token SpecialToken) string {
	if c == nil {
		return ""
	}
	switch token {
	case TokBeginningOfSentence:
		return c.BosToken
	case TokEndOfSentence:
		return c.EosToken
	case TokUnknown:
		return c.UnkToken
	case TokPad:
		return c.PadToken
	case TokMask:
		return c.MaskToken
	case TokClassification:
		return c.ClsToken
	}
	return ""
}

// ParseConfigFile parses the given file (holding a tokenizer_config.json file) into a Config structure.
func ParseConfigFile(filePath string) (*Config, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read file %q", filePath)
	}
	config, err := ParseConfigContent(content)
	if err != nil {
		return nil, errors.WithMessagef(err, "read from file %q", filePath)
	}
	config.ConfigFile = filePath
	return config, nil
}

// ParseConfigContent parses the given json content (of a tokenizer_config.json file) into a Config structure.
//
// Special tokens may be given either as plain strings or as objects with a "content" field: both are accepted.
func ParseConfigContent(jsonContent []byte) (*Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(jsonContent, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer_config json content")
	}
	config := &Config{}
	for key, target := range map[string]*string{
		"cls_token":  &config.ClsToken,
		"unk_token":  &config.UnkToken,
		"sep_token":  &config.SepToken,
		"mask_token": &config.MaskToken,
		"bos_token":  &config.BosToken,
		"eos_token":  &config.EosToken,
		"pad_token":  &config.PadToken,
	} {
		value, found := raw[key]
		if !found {
			continue
		}
		token, err := parseTokenValue(value)
		if err != nil {
			return nil, errors.WithMessagef(err, "field %q of tokenizer_config", key)
		}
		*target = token
		delete(raw, key)
	}
	rest, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to re-encode tokenizer_config json content")
	}
	if err = json.Unmarshal(rest, config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer_config json content")
	}
	return config, nil
}

// parseTokenValue accepts `"[PAD]"`, `{"content": "[PAD]", ...}` or `null`.
func parseTokenValue(value json.RawMessage) (string, error) {
	var token string
	if err := json.Unmarshal(value, &token); err == nil {
		return token, nil
	}
	var added struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(value, &added); err != nil {
		return "", errors.Wrapf(err, "special token is neither a string nor an object")
	}
	return added.Content, nil
}
