package core

import (
	"context"

	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// DbClient defines the persistence operations the pipeline needs from the document database.
// FindDocument returns (nil, nil) when the id is unknown.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	FindDocument(ctx context.Context, id string) (*models.Document, error)
	SaveDocument(ctx context.Context, doc *models.Document) error
	UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error
	ListDocumentsByStatus(ctx context.Context, status models.DocumentStatus) ([]models.Document, error)

	Close() error
}

// ObjectClient is the artifact store: a flat key space inside one bucket.
// Get returns an error wrapping ErrNotFound for missing keys.
type ObjectClient interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error

	// Ref locates a stored object for capabilities that read it in place.
	Ref(key string) ObjectRef
}

// ObjectRef addresses a stored object by bucket and key.
type ObjectRef struct {
	Bucket string
	Key    string
}

// URI renders the ref as s3://bucket/key.
func (r ObjectRef) URI() string {
	return "s3://" + r.Bucket + "/" + r.Key
}

// VectorIndex stores one vector per document and ranks by cosine similarity.
type VectorIndex interface {
	Upsert(ctx context.Context, entry models.IndexEntry) error
	Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error)
}
