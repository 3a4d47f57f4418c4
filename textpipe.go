// Package textpipe only holds the version of the set of tools to prepare text samples for training.
//
// There are 4 main sub-packages:
//
//   - pipeline: the Node contract, the label chain and the Tokenizer and StaticBatcher stages.
//   - datasets: loaders producing raw samples from line-delimited text and SQuAD-style QA files.
//   - tokenizers: to create tokenizers from local files or HuggingFace models (see hub).
//   - binding: host-facing handles over a closed set of pipeline stages.
package textpipe

// Version of the library.
// Manually kept in sync with project releases.
var Version = "v0.0.0-dev"
