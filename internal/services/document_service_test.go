package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/core/coretest"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

type recordingQueue struct {
	ids []string
	err error
}

func (q *recordingQueue) Enqueue(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return q.err
}

func TestDocumentServiceUpload(t *testing.T) {
	db := coretest.NewMemoryDB()
	store := coretest.NewMemoryObjects()
	queue := &recordingQueue{}
	svc := NewDocumentService(db, store, queue, "docs/", arbor.NewNoOpLogger())

	doc, err := svc.Upload(context.Background(), "Q3 report (final).pdf", "application/pdf", []byte("%PDF-1.7"))
	require.NoError(t, err)

	assert.Equal(t, models.StatusUploaded, doc.Status)
	assert.True(t, strings.HasPrefix(doc.OriginalKey, "docs/"))
	assert.True(t, strings.HasSuffix(doc.OriginalKey, "_Q3_report_final.pdf"), doc.OriginalKey)
	assert.Equal(t, []byte("%PDF-1.7"), store.Objects[doc.OriginalKey])
	assert.Equal(t, []string{doc.ID}, queue.ids)

	stored, err := svc.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", stored.ContentType)
}

func TestDocumentServiceUploadKeepsRecordWhenQueueFails(t *testing.T) {
	db := coretest.NewMemoryDB()
	svc := NewDocumentService(db, coretest.NewMemoryObjects(), &recordingQueue{err: errors.New("full")}, "docs/", arbor.NewNoOpLogger())

	doc, err := svc.Upload(context.Background(), "a.txt", "", []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", doc.ContentType)
	assert.Equal(t, models.StatusUploaded, db.Doc(doc.ID).Status)
}

func TestDocumentServiceUploadStorageFailure(t *testing.T) {
	store := coretest.NewMemoryObjects()
	store.PutErr = errors.New("access denied")
	db := coretest.NewMemoryDB()
	svc := NewDocumentService(db, store, &recordingQueue{}, "docs/", arbor.NewNoOpLogger())

	_, err := svc.Upload(context.Background(), "a.txt", "text/plain", []byte("hi"))
	assert.Error(t, err)
	docs, _ := db.ListDocumentsByStatus(context.Background(), models.StatusUploaded)
	assert.Empty(t, docs)
}

func TestDocumentServiceGetMissing(t *testing.T) {
	svc := NewDocumentService(coretest.NewMemoryDB(), coretest.NewMemoryObjects(), &recordingQueue{}, "docs/", arbor.NewNoOpLogger())
	_, err := svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDocumentServiceReprocess(t *testing.T) {
	db := coretest.NewMemoryDB(
		models.Document{ID: "failed", Status: models.StatusFailed},
		models.Document{ID: "done", Status: models.StatusProcessed},
	)
	queue := &recordingQueue{}
	svc := NewDocumentService(db, coretest.NewMemoryObjects(), queue, "docs/", arbor.NewNoOpLogger())

	require.NoError(t, svc.Reprocess(context.Background(), "failed"))
	assert.ErrorIs(t, svc.Reprocess(context.Background(), "done"), ErrAlreadySettled)
	assert.ErrorIs(t, svc.Reprocess(context.Background(), "ghost"), core.ErrNotFound)
	assert.Equal(t, []string{"failed"}, queue.ids)
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":          "report.pdf",
		"../../etc/passwd":    "passwd",
		`C:\Users\me\cv.docx`: "cv.docx",
		"my file #2.txt":      "my_file_2.txt",
		"///":                 "upload",
		"":                    "upload",
	}
	for in, want := range cases {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
