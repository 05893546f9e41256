package app

import (
	"context"

	"go.uber.org/zap"

	"ragdesk/internal/ai"
)

type embeddingCacheStore interface {
	Get(ctx context.Context, model, text string) ([]float32, bool, error)
	Set(ctx context.Context, model, text string, vec []float32) error
}

// CachingEmbedder wraps an Embedder with a read-through cache. Cache
// failures degrade to a live provider call and are only logged; a cold
// or broken cache must never turn into an embedding error.
type CachingEmbedder struct {
	inner  Embedder
	cache  embeddingCacheStore
	logger *zap.Logger
}

func NewCachingEmbedder(inner Embedder, cache embeddingCacheStore, logger *zap.Logger) *CachingEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingEmbedder{inner: inner, cache: cache, logger: logger}
}

func (e *CachingEmbedder) Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error) {
	if e.cache != nil {
		vec, ok, err := e.cache.Get(ctx, cfg.Model, text)
		if err != nil {
			e.logger.Warn("embedding cache read failed", zap.Error(err))
		} else if ok {
			return vec, nil
		}
	}

	vec, err := e.inner.Embed(ctx, cfg, text)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if err := e.cache.Set(ctx, cfg.Model, text, vec); err != nil {
			e.logger.Warn("embedding cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}
