// Package textchunk splits cleaned document text into overlapping,
// token-bounded chunks sized for an embedding model's context window.
package textchunk

import (
	"errors"
	"fmt"

	"ragdesk/internal/pkg/tokenizer"
)

// ErrInvalidChunking reports a configuration error in the chunking
// parameters. It is never retryable.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Split tokenizes text once and slides a window of size tokens across
// the token sequence, advancing by size-overlap each step and decoding
// each window back to text. Consecutive chunks share exactly overlap
// tokens at the boundary, except the tail which may be shorter. A text
// shorter than size tokens yields a single chunk equal to the decoded
// whole. Pure function over its inputs.
func Split(enc tokenizer.Encoding, text string, size, overlap int) ([]string, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: empty text", ErrInvalidChunking)
	}
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d with chunk size %d", ErrInvalidChunking, overlap, size)
	}

	tokens := enc.Encode(text)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: text produced no tokens", ErrInvalidChunking)
	}
	if len(tokens) <= size {
		return []string{enc.Decode(tokens)}, nil
	}

	step := size - overlap
	var chunks []string
	for start := 0; start < len(tokens); start += step {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, enc.Decode(tokens[start:end]))
	}
	return chunks, nil
}
