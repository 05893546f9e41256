package textchunk

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordEncoding tokenizes on whitespace, one token per word. It keeps
// the tests independent of the tiktoken vocabulary files, which are
// fetched over the network.
type wordEncoding struct {
	ids   map[string]int
	words []string
}

func newWordEncoding() *wordEncoding {
	return &wordEncoding{ids: map[string]int{}}
}

func (e *wordEncoding) Encode(text string) []int {
	var tokens []int
	for _, w := range strings.Fields(text) {
		id, ok := e.ids[w]
		if !ok {
			id = len(e.words)
			e.ids[w] = id
			e.words = append(e.words, w)
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (e *wordEncoding) Decode(tokens []int) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = e.words[t]
	}
	return strings.Join(parts, " ")
}

func wordsText(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(10)

	chunks, err := Split(enc, text, 500, 50)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0])
}

func TestSplitExactSizeSingleChunk(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(500)

	chunks, err := Split(enc, text, 500, 50)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestSplitOverlappingWindows(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(1200)

	chunks, err := Split(enc, text, 500, 50)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	third := strings.Fields(chunks[2])

	assert.Len(t, first, 500)
	assert.Len(t, second, 500)
	assert.Len(t, third, 300)

	assert.Equal(t, "w0", first[0])
	assert.Equal(t, "w450", second[0])
	assert.Equal(t, "w900", third[0])
	assert.Equal(t, "w1199", third[len(third)-1])

	// Consecutive chunks share exactly overlap tokens at the boundary.
	assert.Equal(t, first[450:], second[:50])
	assert.Equal(t, second[450:], third[:50])
}

func TestSplitCoversEveryToken(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(137)

	chunks, err := Split(enc, text, 20, 5)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, c := range chunks {
		for _, w := range strings.Fields(c) {
			seen[w] = true
		}
	}
	for i := 0; i < 137; i++ {
		assert.True(t, seen[fmt.Sprintf("w%d", i)], "missing token w%d", i)
	}
}

func TestSplitInvalidParameters(t *testing.T) {
	enc := newWordEncoding()
	text := wordsText(10)

	cases := []struct {
		name    string
		text    string
		size    int
		overlap int
	}{
		{"empty text", "", 500, 50},
		{"zero size", text, 0, 0},
		{"negative size", text, -1, 0},
		{"negative overlap", text, 500, -1},
		{"overlap equals size", text, 100, 100},
		{"overlap exceeds size", text, 100, 150},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Split(enc, tc.text, tc.size, tc.overlap)
			assert.ErrorIs(t, err, ErrInvalidChunking)
		})
	}
}

func TestSplitWhitespaceOnlyText(t *testing.T) {
	enc := newWordEncoding()

	_, err := Split(enc, "   \n\t  ", 500, 50)
	assert.ErrorIs(t, err, ErrInvalidChunking)
}
