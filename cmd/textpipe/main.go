// textpipe prepares text datasets for training: it loads samples, tokenizes them and groups them into
// fixed-shape batches, reporting statistics about the result.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
