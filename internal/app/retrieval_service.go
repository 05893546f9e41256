package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ragdesk/internal/ai"
	"ragdesk/internal/repository"
)

// Embedder turns text into a fixed-dimension vector. Implemented by the
// AI client, optionally wrapped by the caching embedder.
type Embedder interface {
	Embed(ctx context.Context, cfg ai.EmbeddingConfig, text string) ([]float32, error)
}

// ChunkSearcher answers nearest-neighbor queries over stored chunks.
type ChunkSearcher interface {
	FindSimilar(ctx context.Context, query []float32, limit int) ([]repository.RankedChunk, error)
}

// Source identifies one chunk that contributed to a retrieval context,
// in the same order as the context blocks.
type Source struct {
	Title      string  `json:"title"`
	DocID      string  `json:"doc_id"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
}

// RetrievalResult is the ephemeral per-query output of retrieval; it is
// never persisted. An empty Context with no error means the corpus holds
// nothing relevant, which is a valid outcome, not a failure.
type RetrievalResult struct {
	Context  string   `json:"context"`
	Sources  []Source `json:"sources"`
	Contexts []string `json:"-"` // per-chunk contents, for the prompt composer
}

type RetrievalService struct {
	embedder Embedder
	searcher ChunkSearcher
	embCfg   ai.EmbeddingConfig
	topK     int
	logger   *zap.Logger
}

func NewRetrievalService(
	embedder Embedder,
	searcher ChunkSearcher,
	embCfg ai.EmbeddingConfig,
	topK int,
	logger *zap.Logger,
) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalService{
		embedder: embedder,
		searcher: searcher,
		embCfg:   embCfg,
		topK:     topK,
		logger:   logger,
	}
}

// AnswerWithContext embeds the query with the same model used at
// ingestion time, fetches the top-K nearest chunks, and assembles the
// context block plus its source citations. Embedding or store failures
// propagate; they are never converted into an empty context, so callers
// can tell "nothing relevant" apart from "retrieval could not run".
func (s *RetrievalService) AnswerWithContext(ctx context.Context, userQuery string) (*RetrievalResult, error) {
	userQuery = strings.TrimSpace(userQuery)
	if userQuery == "" {
		return nil, ErrInvalidInput
	}

	queryEmbedding, err := s.embedder.Embed(ctx, s.embCfg, userQuery)
	if err != nil {
		return nil, err
	}

	ranked, err := s.searcher.FindSimilar(ctx, queryEmbedding, s.topK)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		s.logger.Debug("retrieval found no chunks", zap.String("query", userQuery))
		return &RetrievalResult{Context: "", Sources: []Source{}, Contexts: nil}, nil
	}

	contents := make([]string, len(ranked))
	sources := make([]Source, len(ranked))
	for i, rc := range ranked {
		contents[i] = rc.Content
		sources[i] = Source{
			Title:      rc.Title,
			DocID:      rc.DocID,
			ChunkIndex: rc.ChunkIndex,
			Distance:   rc.Distance,
		}
	}

	return &RetrievalResult{
		Context:  strings.Join(contents, "\n\n"),
		Sources:  sources,
		Contexts: contents,
	}, nil
}
