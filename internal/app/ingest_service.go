package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ragdesk/internal/ai"
	"ragdesk/internal/model"
	"ragdesk/internal/pkg/textchunk"
	"ragdesk/internal/pkg/textextract"
	"ragdesk/internal/pkg/tokenizer"
	"ragdesk/internal/repository"
)

// ChunkStore is the slice of the chunk repository the pipeline writes to.
type ChunkStore interface {
	StoreChunks(ctx context.Context, ins []repository.ChunkInput) ([]model.DocumentChunk, error)
	DeleteDocumentChunks(ctx context.Context, docID string) (int64, error)
}

// IngestService turns a directory of source files into document chunks
// in the vector store: extract, clean, chunk, embed, persist.
type IngestService struct {
	store     ChunkStore
	embedder  Embedder
	embCfg    ai.EmbeddingConfig
	enc       tokenizer.Encoding
	docsDir   string
	chunkSize int
	overlap   int
	batchSize int
	logger    *zap.Logger
}

func NewIngestService(
	store ChunkStore,
	embedder Embedder,
	embCfg ai.EmbeddingConfig,
	enc tokenizer.Encoding,
	docsDir string,
	chunkSize, overlap, batchSize int,
	logger *zap.Logger,
) *IngestService {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 50
	}
	if batchSize <= 0 {
		batchSize = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		store:     store,
		embedder:  embedder,
		embCfg:    embCfg,
		enc:       enc,
		docsDir:   docsDir,
		chunkSize: chunkSize,
		overlap:   overlap,
		batchSize: batchSize,
		logger:    logger,
	}
}

// DocID derives the document identifier from a file name by stripping
// its extension.
func DocID(fileName string) string {
	return strings.TrimSuffix(fileName, filepath.Ext(fileName))
}

// ProcessDocument ingests one file from the documents directory and
// returns the number of chunks stored. A file that yields no text is a
// no-op, not an error. The uniqueness index on (doc_id, chunk_index)
// rejects a second ingestion of the same document; use ReingestDocument
// to replace it.
func (s *IngestService) ProcessDocument(ctx context.Context, fileName string) (int, error) {
	path := filepath.Join(s.docsDir, fileName)
	raw, err := textextract.FromFile(path)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(raw) == "" {
		s.logger.Warn("no text extracted", zap.String("file", fileName))
		return 0, nil
	}

	text := textextract.CleanText(raw)
	chunks, err := textchunk.Split(s.enc, text, s.chunkSize, s.overlap)
	if err != nil {
		return 0, err
	}

	docID := DocID(fileName)
	s.logger.Info("processing document",
		zap.String("file", fileName),
		zap.String("doc_id", docID),
		zap.Int("chunks", len(chunks)),
	)

	// Batches run strictly in order so chunk indexes stay monotonic and a
	// failure leaves a clean prefix; within a batch the embedding calls
	// run concurrently, each one writing a disjoint chunk index.
	for start := 0; start < len(chunks); start += s.batchSize {
		end := start + s.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		embeddings := make([][]float32, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i, chunk := range batch {
			i, chunk := i, chunk
			g.Go(func() error {
				vec, err := s.embedder.Embed(gctx, s.embCfg, chunk)
				if err != nil {
					return err
				}
				embeddings[i] = vec
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return 0, fmt.Errorf("embed batch at chunk %d of %s failed: %w", start, docID, err)
		}

		inputs := make([]repository.ChunkInput, len(batch))
		for i := range batch {
			inputs[i] = repository.ChunkInput{
				DocID:      docID,
				Title:      fileName,
				ChunkIndex: start + i,
				Content:    batch[i],
				Embedding:  embeddings[i],
				Metadata: map[string]any{
					"source":      fileName,
					"totalChunks": len(chunks),
				},
			}
		}
		if _, err := s.store.StoreChunks(ctx, inputs); err != nil {
			return 0, err
		}

		s.logger.Info("stored chunk batch",
			zap.String("doc_id", docID),
			zap.Int("done", end),
			zap.Int("total", len(chunks)),
		)
	}

	return len(chunks), nil
}

// ReingestDocument replaces a document's chunk set: delete everything
// under its docId, then process the file again. Re-ingestion is a
// destructive replace, never an in-place edit.
func (s *IngestService) ReingestDocument(ctx context.Context, fileName string) (int, error) {
	docID := DocID(fileName)
	removed, err := s.store.DeleteDocumentChunks(ctx, docID)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("removed stale chunks", zap.String("doc_id", docID), zap.Int64("count", removed))
	}
	return s.ProcessDocument(ctx, fileName)
}

// IngestSummary tallies one run over the documents directory.
type IngestSummary struct {
	TotalFiles     int `json:"total_files"`
	ProcessedFiles int `json:"processed_files"`
	FailedFiles    int `json:"failed_files"`
	TotalChunks    int `json:"total_chunks"`
}

// ProcessAllDocuments ingests every file in the configured directory.
// One file's failure is logged and counted but does not abort the rest,
// so an operator can re-run just the failures. A .txt file whose sibling
// .pdf exists is skipped: it is that PDF's extraction cache and would
// collide with it on docId.
func (s *IngestService) ProcessAllDocuments(ctx context.Context) (*IngestSummary, error) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return nil, fmt.Errorf("read documents directory %s failed: %w", s.docsDir, err)
	}

	summary := &IngestSummary{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if s.isExtractionCache(name) {
			continue
		}
		summary.TotalFiles++

		count, err := s.ProcessDocument(ctx, name)
		if err != nil {
			summary.FailedFiles++
			s.logger.Error("document ingestion failed",
				zap.String("file", name),
				zap.Error(err),
			)
			continue
		}
		summary.ProcessedFiles++
		summary.TotalChunks += count
	}

	s.logger.Info("ingestion run complete",
		zap.Int("processed", summary.ProcessedFiles),
		zap.Int("total", summary.TotalFiles),
		zap.Int("failed", summary.FailedFiles),
		zap.Int("chunks", summary.TotalChunks),
	)
	return summary, nil
}

func (s *IngestService) isExtractionCache(name string) bool {
	if !strings.EqualFold(filepath.Ext(name), ".txt") {
		return false
	}
	pdfName := strings.TrimSuffix(name, filepath.Ext(name)) + ".pdf"
	_, err := os.Stat(filepath.Join(s.docsDir, pdfName))
	return err == nil
}
