package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// PgVectorIndex keeps one row per document in document_index and ranks with
// the cosine distance operator.
type PgVectorIndex struct {
	db *sql.DB
}

var _ core.VectorIndex = (*PgVectorIndex)(nil)

func NewPgVectorIndex(db *sql.DB) *PgVectorIndex {
	return &PgVectorIndex{db: db}
}

func (p *PgVectorIndex) Upsert(ctx context.Context, entry models.IndexEntry) error {
	const q = `
		INSERT INTO document_index (document_id, name, text, embedding, indexed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (document_id) DO UPDATE SET
			name       = EXCLUDED.name,
			text       = EXCLUDED.text,
			embedding  = EXCLUDED.embedding,
			indexed_at = now()
	`
	if _, err := p.db.ExecContext(ctx, q, entry.DocumentID, entry.Name, entry.Text, pgvector.NewVector(entry.Vector)); err != nil {
		return fmt.Errorf("index upsert %s: %w", entry.DocumentID, err)
	}
	return nil
}

// Search returns the k nearest entries; score is cosine similarity (1 - distance).
func (p *PgVectorIndex) Search(ctx context.Context, query []float32, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	const q = `
		SELECT document_id, name, text, 1 - (embedding <=> $1) AS score
		FROM document_index
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.db.QueryContext(ctx, q, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("index search: %w", err)
	}
	defer rows.Close()

	var out []models.SearchHit
	for rows.Next() {
		var h models.SearchHit
		if err := rows.Scan(&h.DocumentID, &h.Name, &h.Text, &h.Score); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
