package models

import (
	"time"
)

// DocumentStatus is the lifecycle state of an uploaded document.
type DocumentStatus string

const (
	StatusUploaded           DocumentStatus = "uploaded"
	StatusProcessed          DocumentStatus = "processed"
	StatusRejectedModeration DocumentStatus = "rejected_moderation"
	StatusFailed             DocumentStatus = "failed"
)

// Terminal reports whether the worker must leave the document alone.
// failed is not terminal: an explicit reprocess may still move it to processed.
func (s DocumentStatus) Terminal() bool {
	return s == StatusProcessed || s == StatusRejectedModeration
}

// Document represents a user-uploaded document and its derived artifacts.
type Document struct {
	ID             string         `db:"id" json:"id"`
	FileName       string         `db:"file_name" json:"file_name"`
	OriginalKey    string         `db:"original_key" json:"original_key"`
	ContentType    string         `db:"content_type" json:"content_type"`
	DerivedTextKey string         `db:"derived_text_key" json:"derived_text_key,omitempty"` // empty until extraction yields text
	Status         DocumentStatus `db:"status" json:"status"`
	Summary        string         `db:"summary" json:"summary,omitempty"`
	Embedding      []float32      `db:"embedding" json:"embedding,omitempty"` // pgvector column
	CleanedText    string         `db:"cleaned_text" json:"-"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// ProcessingJob is the payload placed on the ingestion queue.
type ProcessingJob struct {
	DocumentID string `json:"document_id"`
	Delivery   int    `json:"delivery"`
}

// IndexEntry is what the vector index stores for one document.
type IndexEntry struct {
	DocumentID string    `json:"document_id"`
	Vector     []float32 `json:"vector"`
	Text       string    `json:"text"`
	Name       string    `json:"name"`
}

// SearchHit is one ranked result from the vector index.
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	Text       string  `json:"text"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
}
