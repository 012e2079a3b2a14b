package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// BadgerClient is an embedded document store for single-node deployments.
type BadgerClient struct {
	store  *badgerhold.Store
	logger arbor.ILogger
}

var _ core.DbClient = (*BadgerClient)(nil)

func NewBadgerClient(path string, logger arbor.ILogger) (*BadgerClient, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create badger directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	logger.Info().Str("path", path).Msg("badger document store ready")
	return &BadgerClient{store: store, logger: logger}, nil
}

func (b *BadgerClient) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

func (b *BadgerClient) CreateDocument(_ context.Context, doc *models.Document) error {
	if doc == nil || doc.ID == "" {
		return errors.New("document ID is required")
	}
	now := time.Now().UTC()
	doc.CreatedAt, doc.UpdatedAt = now, now
	if err := b.store.Insert(doc.ID, doc); err != nil {
		return fmt.Errorf("create document %s: %w", doc.ID, err)
	}
	return nil
}

func (b *BadgerClient) FindDocument(_ context.Context, id string) (*models.Document, error) {
	var doc models.Document
	if err := b.store.Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	return &doc, nil
}

func (b *BadgerClient) SaveDocument(_ context.Context, doc *models.Document) error {
	if doc == nil || doc.ID == "" {
		return errors.New("document ID is required")
	}
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	if err := b.store.Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

func (b *BadgerClient) UpdateDocumentStatus(_ context.Context, id string, status models.DocumentStatus) error {
	var doc models.Document
	if err := b.store.Get(id, &doc); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("document %s: %w", id, core.ErrNotFound)
		}
		return fmt.Errorf("load document %s: %w", id, err)
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	if err := b.store.Update(id, &doc); err != nil {
		return fmt.Errorf("update document %s: %w", id, err)
	}
	return nil
}

func (b *BadgerClient) ListDocumentsByStatus(_ context.Context, status models.DocumentStatus) ([]models.Document, error) {
	var docs []models.Document
	if err := b.store.Find(&docs, badgerhold.Where("Status").Eq(status).SortBy("CreatedAt")); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}
