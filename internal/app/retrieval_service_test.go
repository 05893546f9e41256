package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/ai"
	"ragdesk/internal/model"
	"ragdesk/internal/repository"
)

type stubEmbedder struct {
	mu    sync.Mutex
	fn    func(text string) ([]float32, error)
	calls []string
}

func (s *stubEmbedder) Embed(_ context.Context, _ ai.EmbeddingConfig, text string) ([]float32, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.mu.Unlock()
	if s.fn != nil {
		return s.fn(text)
	}
	return []float32{1, 0, 0}, nil
}

func (s *stubEmbedder) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubSearcher struct {
	ranked   []repository.RankedChunk
	err      error
	gotQuery []float32
	gotLimit int
}

func (s *stubSearcher) FindSimilar(_ context.Context, query []float32, limit int) ([]repository.RankedChunk, error) {
	s.gotQuery = query
	s.gotLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.ranked, nil
}

func rankedChunk(docID, title string, index int, content string, distance float64) repository.RankedChunk {
	return repository.RankedChunk{
		DocumentChunk: model.DocumentChunk{
			DocID:      docID,
			Title:      title,
			ChunkIndex: index,
			Content:    content,
		},
		Distance: distance,
	}
}

func TestAnswerWithContextAssemblesResult(t *testing.T) {
	embedder := &stubEmbedder{}
	searcher := &stubSearcher{ranked: []repository.RankedChunk{
		rankedChunk("vacation_policy", "vacation_policy.pdf", 2, "Submit requests via the HR portal.", 0.12),
		rankedChunk("onboarding", "onboarding.md", 0, "New hires get a buddy for two weeks.", 0.31),
	}}
	svc := NewRetrievalService(embedder, searcher, ai.EmbeddingConfig{Model: "text-embedding-3-small"}, 5, nil)

	result, err := svc.AnswerWithContext(context.Background(), "how do I book vacation?")
	require.NoError(t, err)

	assert.Equal(t, "Submit requests via the HR portal.\n\nNew hires get a buddy for two weeks.", result.Context)
	assert.Equal(t, []string{"Submit requests via the HR portal.", "New hires get a buddy for two weeks."}, result.Contexts)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, Source{Title: "vacation_policy.pdf", DocID: "vacation_policy", ChunkIndex: 2, Distance: 0.12}, result.Sources[0])
	assert.Equal(t, Source{Title: "onboarding.md", DocID: "onboarding", ChunkIndex: 0, Distance: 0.31}, result.Sources[1])

	assert.Equal(t, 5, searcher.gotLimit)
	assert.Equal(t, []float32{1, 0, 0}, searcher.gotQuery)
	assert.Equal(t, []string{"how do I book vacation?"}, embedder.calls)
}

func TestAnswerWithContextEmptyCorpus(t *testing.T) {
	svc := NewRetrievalService(&stubEmbedder{}, &stubSearcher{}, ai.EmbeddingConfig{}, 5, nil)

	result, err := svc.AnswerWithContext(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, result.Context)
	assert.NotNil(t, result.Sources)
	assert.Empty(t, result.Sources)
	assert.Empty(t, result.Contexts)
}

func TestAnswerWithContextBlankQuery(t *testing.T) {
	svc := NewRetrievalService(&stubEmbedder{}, &stubSearcher{}, ai.EmbeddingConfig{}, 5, nil)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := svc.AnswerWithContext(context.Background(), q)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestAnswerWithContextTrimsQueryBeforeEmbedding(t *testing.T) {
	embedder := &stubEmbedder{}
	svc := NewRetrievalService(embedder, &stubSearcher{}, ai.EmbeddingConfig{}, 5, nil)

	_, err := svc.AnswerWithContext(context.Background(), "  padded query  ")
	require.NoError(t, err)
	assert.Equal(t, []string{"padded query"}, embedder.calls)
}

func TestAnswerWithContextEmbedFailure(t *testing.T) {
	embedder := &stubEmbedder{fn: func(string) ([]float32, error) {
		return nil, ai.ErrEmbeddingProvider
	}}
	svc := NewRetrievalService(embedder, &stubSearcher{}, ai.EmbeddingConfig{}, 5, nil)

	_, err := svc.AnswerWithContext(context.Background(), "query")
	assert.ErrorIs(t, err, ai.ErrEmbeddingProvider)
}

func TestAnswerWithContextSearchFailure(t *testing.T) {
	searcher := &stubSearcher{err: repository.ErrStorageUnavailable}
	svc := NewRetrievalService(&stubEmbedder{}, searcher, ai.EmbeddingConfig{}, 5, nil)

	_, err := svc.AnswerWithContext(context.Background(), "query")
	assert.ErrorIs(t, err, repository.ErrStorageUnavailable)
}

func TestNewRetrievalServiceDefaultTopK(t *testing.T) {
	searcher := &stubSearcher{}
	svc := NewRetrievalService(&stubEmbedder{}, searcher, ai.EmbeddingConfig{}, 0, nil)

	_, err := svc.AnswerWithContext(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, 5, searcher.gotLimit)
}

func TestAnswerWithContextSingleChunk(t *testing.T) {
	searcher := &stubSearcher{ranked: []repository.RankedChunk{
		rankedChunk("faq", "faq.txt", 0, "The office closes at 19:00.", 0.05),
	}}
	svc := NewRetrievalService(&stubEmbedder{}, searcher, ai.EmbeddingConfig{}, 3, nil)

	result, err := svc.AnswerWithContext(context.Background(), "closing time?")
	require.NoError(t, err)
	assert.Equal(t, "The office closes at 19:00.", result.Context)
	require.Len(t, result.Sources, 1)
	assert.Equal(t, "faq", result.Sources[0].DocID)
}

func TestAnswerWithContextSearchErrorDistinguishableFromEmpty(t *testing.T) {
	failing := NewRetrievalService(&stubEmbedder{}, &stubSearcher{err: errors.New("connection refused")}, ai.EmbeddingConfig{}, 5, nil)
	empty := NewRetrievalService(&stubEmbedder{}, &stubSearcher{}, ai.EmbeddingConfig{}, 5, nil)

	_, failErr := failing.AnswerWithContext(context.Background(), "q")
	emptyResult, emptyErr := empty.AnswerWithContext(context.Background(), "q")

	assert.Error(t, failErr)
	require.NoError(t, emptyErr)
	assert.Empty(t, emptyResult.Context)
}
