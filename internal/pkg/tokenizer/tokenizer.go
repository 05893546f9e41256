// Package tokenizer wraps the BPE vocabularies used by the embedding
// models so that chunk sizes are measured in model tokens rather than
// runes or bytes.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding converts between text and token IDs. Split out as an
// interface so the chunker can be tested without the real vocabulary
// files.
type Encoding interface {
	Encode(text string) []int
	Decode(tokens []int) string
}

type tiktokenEncoding struct {
	tkm *tiktoken.Tiktoken
}

// ForModel returns the Encoding matching the given model's vocabulary
// (e.g. "text-embedding-3-small").
func ForModel(model string) (Encoding, error) {
	tkm, err := tiktoken.EncodingForModel(model)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer for model %q failed: %w", model, err)
	}
	return &tiktokenEncoding{tkm: tkm}, nil
}

func (e *tiktokenEncoding) Encode(text string) []int {
	return e.tkm.Encode(text, nil, nil)
}

func (e *tiktokenEncoding) Decode(tokens []int) string {
	return e.tkm.Decode(tokens)
}
