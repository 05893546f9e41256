package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragdesk/internal/ai"
)

type stubCacheStore struct {
	entries map[string][]float32
	getErr  error
	setErr  error
	sets    int
}

func newStubCacheStore() *stubCacheStore {
	return &stubCacheStore{entries: map[string][]float32{}}
}

func (s *stubCacheStore) Get(_ context.Context, model, text string) ([]float32, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	vec, ok := s.entries[model+"/"+text]
	return vec, ok, nil
}

func (s *stubCacheStore) Set(_ context.Context, model, text string, vec []float32) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.entries[model+"/"+text] = vec
	return nil
}

func TestCachingEmbedderHitSkipsProvider(t *testing.T) {
	cache := newStubCacheStore()
	cache.entries["m/hello"] = []float32{9, 9, 9}
	inner := &stubEmbedder{}
	e := NewCachingEmbedder(inner, cache, nil)

	vec, err := e.Embed(context.Background(), ai.EmbeddingConfig{Model: "m"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{9, 9, 9}, vec)
	assert.Zero(t, inner.callCount())
}

func TestCachingEmbedderMissCallsProviderAndStores(t *testing.T) {
	cache := newStubCacheStore()
	inner := &stubEmbedder{}
	e := NewCachingEmbedder(inner, cache, nil)

	vec, err := e.Embed(context.Background(), ai.EmbeddingConfig{Model: "m"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Equal(t, 1, inner.callCount())
	assert.Equal(t, 1, cache.sets)

	// Second call is served from cache.
	_, err = e.Embed(context.Background(), ai.EmbeddingConfig{Model: "m"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.callCount())
}

func TestCachingEmbedderCacheReadFailureDegradesToProvider(t *testing.T) {
	cache := newStubCacheStore()
	cache.getErr = errors.New("redis down")
	inner := &stubEmbedder{}
	e := NewCachingEmbedder(inner, cache, nil)

	vec, err := e.Embed(context.Background(), ai.EmbeddingConfig{Model: "m"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
	assert.Equal(t, 1, inner.callCount())
}

func TestCachingEmbedderCacheWriteFailureIsNotFatal(t *testing.T) {
	cache := newStubCacheStore()
	cache.setErr = errors.New("redis down")
	e := NewCachingEmbedder(&stubEmbedder{}, cache, nil)

	vec, err := e.Embed(context.Background(), ai.EmbeddingConfig{Model: "m"}, "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 0}, vec)
}

func TestCachingEmbedderProviderFailurePropagates(t *testing.T) {
	inner := &stubEmbedder{fn: func(string) ([]float32, error) {
		return nil, ai.ErrEmbeddingProvider
	}}
	cache := newStubCacheStore()
	e := NewCachingEmbedder(inner, cache, nil)

	_, err := e.Embed(context.Background(), ai.EmbeddingConfig{Model: "m"}, "hello")
	assert.ErrorIs(t, err, ai.ErrEmbeddingProvider)
	assert.Zero(t, cache.sets)
}
