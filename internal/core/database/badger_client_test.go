package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

func newTestBadger(t *testing.T) *BadgerClient {
	t.Helper()
	c, err := NewBadgerClient(t.TempDir(), arbor.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerClientLifecycle(t *testing.T) {
	c := newTestBadger(t)
	ctx := context.Background()

	doc := &models.Document{ID: "doc-1", FileName: "report.pdf", OriginalKey: "docs/a_report.pdf", ContentType: "application/pdf", Status: models.StatusUploaded}
	require.NoError(t, c.CreateDocument(ctx, doc))
	assert.Error(t, c.CreateDocument(ctx, doc), "duplicate id must be rejected")

	got, err := c.FindDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.StatusUploaded, got.Status)
	assert.False(t, got.CreatedAt.IsZero())

	got.Status = models.StatusProcessed
	got.DerivedTextKey = "text/report.txt"
	got.Summary = "a short report"
	got.Embedding = []float32{100, 50, 33.3}
	require.NoError(t, c.SaveDocument(ctx, got))

	again, err := c.FindDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "text/report.txt", again.DerivedTextKey)
	assert.Equal(t, []float32{100, 50, 33.3}, again.Embedding)
	assert.Equal(t, got.CreatedAt.Unix(), again.CreatedAt.Unix())
}

func TestBadgerClientFindMissing(t *testing.T) {
	c := newTestBadger(t)
	got, err := c.FindDocument(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBadgerClientStatusQueries(t *testing.T) {
	c := newTestBadger(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.CreateDocument(ctx, &models.Document{ID: id, FileName: id + ".txt", Status: models.StatusUploaded}))
	}
	require.NoError(t, c.UpdateDocumentStatus(ctx, "a", models.StatusProcessed))
	require.NoError(t, c.UpdateDocumentStatus(ctx, "c", models.StatusProcessed))

	err := c.UpdateDocumentStatus(ctx, "zzz", models.StatusFailed)
	assert.ErrorIs(t, err, core.ErrNotFound)

	processed, err := c.ListDocumentsByStatus(ctx, models.StatusProcessed)
	require.NoError(t, err)
	ids := []string{}
	for _, d := range processed {
		ids = append(ids, d.ID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)

	uploaded, err := c.ListDocumentsByStatus(ctx, models.StatusUploaded)
	require.NoError(t, err)
	require.Len(t, uploaded, 1)
	assert.Equal(t, "b", uploaded[0].ID)
}
