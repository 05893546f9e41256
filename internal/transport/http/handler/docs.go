package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/ai"
	"ragdesk/internal/app"
	"ragdesk/internal/repository"
	"ragdesk/internal/transport/http/response"
)

// DocsHandler is the admin surface over the document corpus: inspect
// what is ingested, preview retrieval, and replace or remove documents.
// Whole-directory ingestion stays in the offline job; it is too
// expensive for a request-scoped call.
type DocsHandler struct {
	retrieval *app.RetrievalService
	ingest    *app.IngestService
	chunkRepo *repository.ChunkRepository
}

type SearchDocsRequest struct {
	Query string `json:"query" binding:"required"`
}

type ReingestRequest struct {
	FileName string `json:"file_name" binding:"required"`
}

func NewDocsHandler(retrieval *app.RetrievalService, ingest *app.IngestService, chunkRepo *repository.ChunkRepository) *DocsHandler {
	return &DocsHandler{
		retrieval: retrieval,
		ingest:    ingest,
		chunkRepo: chunkRepo,
	}
}

// Search returns the context and sources retrieval would hand to the
// chat flow for the given query.
func (h *DocsHandler) Search(c *gin.Context) {
	var req SearchDocsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.retrieval.AnswerWithContext(c.Request.Context(), req.Query)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, ai.ErrEmptyEmbeddingInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, repository.ErrStorageUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "document store unavailable")
		case errors.Is(err, ai.ErrEmbeddingProvider):
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, "embedding provider failed")
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}
	response.OK(c, result)
}

func (h *DocsHandler) ListDocuments(c *gin.Context) {
	infos, err := h.chunkRepo.ListDocuments(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "document store unavailable")
		return
	}
	response.OK(c, infos)
}

// Reingest replaces one document's chunks from its source file.
func (h *DocsHandler) Reingest(c *gin.Context) {
	var req ReingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	count, err := h.ingest.ReingestDocument(c.Request.Context(), req.FileName)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrChunkConflict):
			response.Error(c, http.StatusConflict, response.CodeDocumentConflict, err.Error())
		case errors.Is(err, repository.ErrStorageUnavailable):
			response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "document store unavailable")
		case errors.Is(err, ai.ErrEmbeddingProvider):
			response.Error(c, http.StatusBadGateway, response.CodeInternalServer, "embedding provider failed")
		case errors.Is(err, repository.ErrInvalidArgument):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reingest failed: "+err.Error())
		}
		return
	}
	response.OK(c, gin.H{"file_name": req.FileName, "chunk_count": count})
}

// DeleteDocument removes every chunk of a document.
func (h *DocsHandler) DeleteDocument(c *gin.Context) {
	docID := c.Param("doc_id")
	if docID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid doc id")
		return
	}

	count, err := h.chunkRepo.DeleteDocumentChunks(c.Request.Context(), docID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInvalidArgument):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusServiceUnavailable, response.CodeStoreUnavailable, "document store unavailable")
		}
		return
	}
	response.OK(c, gin.H{"doc_id": docID, "deleted_chunks": count})
}
