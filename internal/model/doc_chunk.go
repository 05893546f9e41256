package model

import (
	"encoding/json"
	"time"

	"github.com/pgvector/pgvector-go"
)

// DocumentChunk is one retrievable slice of a source document. Chunks are
// written only by the ingestion pipeline and are immutable afterwards;
// re-ingesting a document deletes and recreates its whole chunk set.
// Metadata is stored as a JSON object for portability.
type DocumentChunk struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	DocID      string          `gorm:"size:256;not null;uniqueIndex:idx_doc_chunk,priority:1" json:"doc_id"`
	Title      string          `gorm:"size:256;not null" json:"title"`
	ChunkIndex int             `gorm:"not null;uniqueIndex:idx_doc_chunk,priority:2" json:"chunk_index"`
	Content    string          `gorm:"type:text;not null" json:"content"`
	Embedding  pgvector.Vector `gorm:"type:vector(1536)" json:"-"`
	Metadata   string          `gorm:"type:text" json:"-"` // JSON object
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// MetadataMap returns the parsed metadata; nil on parse error or empty.
func (c *DocumentChunk) MetadataMap() map[string]any {
	if c.Metadata == "" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(c.Metadata), &m); err != nil {
		return nil
	}
	return m
}

// SetMetadata stores the metadata map as JSON.
func (c *DocumentChunk) SetMetadata(m map[string]any) {
	if len(m) == 0 {
		c.Metadata = "{}"
		return
	}
	b, _ := json.Marshal(m)
	c.Metadata = string(b)
}
