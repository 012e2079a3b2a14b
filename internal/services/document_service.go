package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// ErrAlreadySettled is returned when reprocessing a processed or rejected document.
var ErrAlreadySettled = errors.New("document already settled")

// Enqueuer hands document ids to the processing workers.
type Enqueuer interface {
	Enqueue(ctx context.Context, docID string) error
}

type DocumentService struct {
	db        core.DbClient
	storage   core.ObjectClient
	queue     Enqueuer
	keyPrefix string
	logger    arbor.ILogger
}

func NewDocumentService(db core.DbClient, storage core.ObjectClient, queue Enqueuer, keyPrefix string, logger arbor.ILogger) *DocumentService {
	return &DocumentService{db: db, storage: storage, queue: queue, keyPrefix: keyPrefix, logger: logger}
}

// Upload stores the original, records it as uploaded and queues it for processing.
func (s *DocumentService) Upload(ctx context.Context, filename, contentType string, data []byte) (*models.Document, error) {
	docID := uuid.NewString()
	key := s.objectKey(filename)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.storage.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("store original: %w", err)
	}

	doc := &models.Document{
		ID:          docID,
		FileName:    filename,
		OriginalKey: key,
		ContentType: contentType,
		Status:      models.StatusUploaded,
	}
	if err := s.db.CreateDocument(ctx, doc); err != nil {
		_ = s.storage.Delete(ctx, key)
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := s.queue.Enqueue(ctx, docID); err != nil {
		// the record stays uploaded and is picked up again on the next recovery pass
		s.logger.Warn().Err(err).Str("document_id", docID).Msg("enqueue after upload failed")
	}
	s.logger.Info().Str("document_id", docID).Str("key", key).Str("content_type", contentType).Int("bytes", len(data)).Msg("document uploaded")
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	doc, err := s.db.FindDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s: %w", id, core.ErrNotFound)
	}
	return doc, nil
}

// Reprocess queues an uploaded or failed document again.
func (s *DocumentService) Reprocess(ctx context.Context, id string) error {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status.Terminal() {
		return fmt.Errorf("document %s is %s: %w", id, doc.Status, ErrAlreadySettled)
	}
	return s.queue.Enqueue(ctx, id)
}

// objectKey builds <prefix><uuid>_<basename>; the uuid keeps derived keys unique.
func (s *DocumentService) objectKey(filename string) string {
	return s.keyPrefix + uuid.NewString() + "_" + sanitizeFilename(filename)
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_':
			return r
		case unicode.IsSpace(r):
			return '_'
		default:
			return -1
		}
	}, name)
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}
