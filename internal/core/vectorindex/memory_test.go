package vectorindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0.5, 1.0 / 3}, []float32{90, 45, 30}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, -1},
		{"zero vector", []float32{0, 0, 0}, []float32{1, 2, 3}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Cosine(tc.a, tc.b), 1e-6)
		})
	}
}

func TestMemoryIndexUpsertOverwrites(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, models.IndexEntry{DocumentID: "d1", Vector: []float32{1, 0, 0}, Text: "old"}))
	require.NoError(t, idx.Upsert(ctx, models.IndexEntry{DocumentID: "d1", Vector: []float32{0, 1, 0}, Text: "new"}))
	assert.Equal(t, 1, idx.Len())

	hits, err := idx.Search(ctx, []float32{0, 1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "new", hits[0].Text)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestMemoryIndexSearchRanksTopK(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	entries := []models.IndexEntry{
		{DocumentID: "far", Vector: []float32{0, 0, 1}},
		{DocumentID: "tie-a", Vector: []float32{1, 1, 0}},
		{DocumentID: "exact", Vector: []float32{1, 0, 0}},
		{DocumentID: "tie-b", Vector: []float32{2, 2, 0}},
		{DocumentID: "mid", Vector: []float32{1, 0, 1}},
		{DocumentID: "opposite", Vector: []float32{-1, 0, 0}},
	}
	for _, e := range entries {
		require.NoError(t, idx.Upsert(ctx, e))
	}

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 5)

	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.DocumentID
	}
	// tie-a, tie-b and mid all score 1/sqrt(2) and keep insertion order
	assert.Equal(t, []string{"exact", "tie-a", "tie-b", "mid", "far"}, ids)
}

func TestMemoryIndexSearchEmpty(t *testing.T) {
	idx := NewMemoryIndex()
	hits, err := idx.Search(context.Background(), []float32{1, 2, 3}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
