package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/ternarybob/arbor"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

type DatabaseClient struct {
	db     *sql.DB
	logger arbor.ILogger
}

var _ core.DbClient = (*DatabaseClient)(nil)

// NewDatabaseClient opens the pool, pings it and makes sure the schema exists.
func NewDatabaseClient(ctx context.Context, databaseURL string, logger arbor.ILogger) (*DatabaseClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := Migrate(databaseURL, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Info().Msg("postgres document store ready")
	return &DatabaseClient{db: db, logger: logger}, nil
}

// DB exposes the pool so the pgvector index can share it.
func (c *DatabaseClient) DB() *sql.DB {
	return c.db
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, file_name, original_key, content_type, status, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, now(), now())
		RETURNING created_at, updated_at
	`
	return c.db.QueryRowContext(ctx, q,
		doc.ID, doc.FileName, doc.OriginalKey, doc.ContentType, doc.Status,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
}

const documentColumns = `id, file_name, original_key, content_type, derived_text_key, status, summary, embedding, cleaned_text, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d   models.Document
		emb *pgvector.Vector
	)
	if err := row.Scan(
		&d.ID, &d.FileName, &d.OriginalKey, &d.ContentType, &d.DerivedTextKey, &d.Status,
		&d.Summary, &emb, &d.CleanedText, &d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if emb != nil {
		d.Embedding = emb.Slice()
	}
	return &d, nil
}

func (c *DatabaseClient) FindDocument(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(c.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	return d, nil
}

// SaveDocument writes every mutable field of the record in one statement.
func (c *DatabaseClient) SaveDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	var emb any
	if len(doc.Embedding) > 0 {
		emb = pgvector.NewVector(doc.Embedding)
	}
	const q = `
		INSERT INTO documents
			(id, file_name, original_key, content_type, derived_text_key, status, summary, embedding, cleaned_text, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			file_name        = EXCLUDED.file_name,
			original_key     = EXCLUDED.original_key,
			content_type     = EXCLUDED.content_type,
			derived_text_key = EXCLUDED.derived_text_key,
			status           = EXCLUDED.status,
			summary          = EXCLUDED.summary,
			embedding        = EXCLUDED.embedding,
			cleaned_text     = EXCLUDED.cleaned_text,
			updated_at       = now()
		RETURNING created_at, updated_at
	`
	err := c.db.QueryRowContext(ctx, q,
		doc.ID, doc.FileName, doc.OriginalKey, doc.ContentType, doc.DerivedTextKey, doc.Status,
		doc.Summary, emb, doc.CleanedText,
	).Scan(&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

func (c *DatabaseClient) UpdateDocumentStatus(ctx context.Context, id string, status models.DocumentStatus) error {
	const q = `
		UPDATE documents
		SET status = $2, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, id, status)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (c *DatabaseClient) ListDocumentsByStatus(ctx context.Context, status models.DocumentStatus) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE status = $1 ORDER BY created_at ASC`
	rows, err := c.db.QueryContext(ctx, q, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}
