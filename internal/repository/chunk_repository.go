package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ragdesk/internal/model"
)

var (
	// ErrChunkConflict means a chunk with the same (doc_id, chunk_index)
	// already exists and overwrite was not requested. Callers should
	// delete-then-recreate the document rather than retry blindly.
	ErrChunkConflict = errors.New("chunk already exists")

	// ErrInvalidArgument covers malformed input: empty content, an
	// embedding whose dimension differs from the store's, or a
	// non-positive similarity limit.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStorageUnavailable wraps any backing-store failure. It is always
	// surfaced; the store never converts a failure into an empty result.
	ErrStorageUnavailable = errors.New("chunk store unavailable")
)

// ChunkInput is the write form of a document chunk.
type ChunkInput struct {
	DocID      string
	Title      string
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   map[string]any
}

// RankedChunk is a retrieved chunk plus its cosine distance to the
// query embedding (smaller is more similar).
type RankedChunk struct {
	model.DocumentChunk `gorm:"embedded"`
	Distance            float64 `json:"distance"`
}

// ChunkRepository persists document chunks with their embeddings in
// Postgres and answers nearest-neighbor queries via pgvector.
type ChunkRepository struct {
	db  *gorm.DB
	dim int
}

// NewChunkRepository returns a repository that accepts only embeddings
// of exactly dim elements.
func NewChunkRepository(db *gorm.DB, dim int) *ChunkRepository {
	return &ChunkRepository{db: db, dim: dim}
}

func (r *ChunkRepository) validate(in ChunkInput) error {
	if in.DocID == "" {
		return fmt.Errorf("%w: empty doc id", ErrInvalidArgument)
	}
	if in.Content == "" {
		return fmt.Errorf("%w: empty chunk content for %s[%d]", ErrInvalidArgument, in.DocID, in.ChunkIndex)
	}
	if in.ChunkIndex < 0 {
		return fmt.Errorf("%w: negative chunk index for %s", ErrInvalidArgument, in.DocID)
	}
	if len(in.Embedding) != r.dim {
		return fmt.Errorf("%w: embedding dimension %d, store expects %d", ErrInvalidArgument, len(in.Embedding), r.dim)
	}
	return nil
}

func (r *ChunkRepository) toModel(in ChunkInput) model.DocumentChunk {
	chunk := model.DocumentChunk{
		DocID:      in.DocID,
		Title:      in.Title,
		ChunkIndex: in.ChunkIndex,
		Content:    in.Content,
		Embedding:  pgvector.NewVector(in.Embedding),
	}
	chunk.SetMetadata(in.Metadata)
	return chunk
}

// StoreChunk inserts a single chunk. Without overwrite, a duplicate
// (doc_id, chunk_index) fails with ErrChunkConflict; with overwrite the
// row is replaced in place. The ingestion pipeline always writes through
// StoreChunks; this is the one-off repair path for patching a single
// chunk without re-embedding the whole document.
func (r *ChunkRepository) StoreChunk(ctx context.Context, in ChunkInput, overwrite bool) (*model.DocumentChunk, error) {
	if err := r.validate(in); err != nil {
		return nil, err
	}

	chunk := r.toModel(in)
	tx := r.db.WithContext(ctx)
	if overwrite {
		tx = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "doc_id"}, {Name: "chunk_index"}},
			UpdateAll: true,
		})
	}
	if err := tx.Create(&chunk).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s[%d]", ErrChunkConflict, in.DocID, in.ChunkIndex)
		}
		return nil, fmt.Errorf("%w: create chunk: %v", ErrStorageUnavailable, err)
	}
	return &chunk, nil
}

// StoreChunks inserts a batch atomically: if any chunk fails validation
// or insertion, none are persisted.
func (r *ChunkRepository) StoreChunks(ctx context.Context, ins []ChunkInput) ([]model.DocumentChunk, error) {
	if len(ins) == 0 {
		return nil, nil
	}
	for _, in := range ins {
		if err := r.validate(in); err != nil {
			return nil, err
		}
	}

	chunks := make([]model.DocumentChunk, len(ins))
	for i, in := range ins {
		chunks[i] = r.toModel(in)
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&chunks).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: batch for %s", ErrChunkConflict, ins[0].DocID)
		}
		return nil, fmt.Errorf("%w: create chunk batch: %v", ErrStorageUnavailable, err)
	}
	return chunks, nil
}

// FindSimilar returns up to limit chunks ordered by ascending cosine
// distance to the query embedding, ties broken by (doc_id, chunk_index)
// so repeated identical queries yield identical orderings.
func (r *ChunkRepository) FindSimilar(ctx context.Context, query []float32, limit int) ([]RankedChunk, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidArgument)
	}
	if len(query) != r.dim {
		return nil, fmt.Errorf("%w: query dimension %d, store expects %d", ErrInvalidArgument, len(query), r.dim)
	}

	vec := pgvector.NewVector(query)
	var results []RankedChunk
	err := r.db.WithContext(ctx).Raw(`
		SELECT *, (embedding <=> ?) AS distance
		FROM document_chunks
		ORDER BY (embedding <=> ?) ASC, doc_id ASC, chunk_index ASC
		LIMIT ?`,
		vec, vec, limit,
	).Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %v", ErrStorageUnavailable, err)
	}
	return results, nil
}

// DeleteDocumentChunks removes every chunk of a document and returns the
// number removed; zero is not an error.
func (r *ChunkRepository) DeleteDocumentChunks(ctx context.Context, docID string) (int64, error) {
	if docID == "" {
		return 0, fmt.Errorf("%w: empty doc id", ErrInvalidArgument)
	}
	res := r.db.WithContext(ctx).Where("doc_id = ?", docID).Delete(&model.DocumentChunk{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: delete chunks for %s: %v", ErrStorageUnavailable, docID, res.Error)
	}
	return res.RowsAffected, nil
}

// DocumentInfo summarizes one ingested document for the admin surface.
type DocumentInfo struct {
	DocID      string    `json:"doc_id"`
	Title      string    `json:"title"`
	ChunkCount int64     `json:"chunk_count"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListDocuments returns one row per ingested document.
func (r *ChunkRepository) ListDocuments(ctx context.Context) ([]DocumentInfo, error) {
	var infos []DocumentInfo
	err := r.db.WithContext(ctx).Raw(`
		SELECT doc_id, MAX(title) AS title, COUNT(*) AS chunk_count, MAX(updated_at) AS updated_at
		FROM document_chunks
		GROUP BY doc_id
		ORDER BY doc_id ASC`,
	).Scan(&infos).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", ErrStorageUnavailable, err)
	}
	return infos, nil
}
