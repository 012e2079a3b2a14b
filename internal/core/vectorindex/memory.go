package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// MemoryIndex is an in-process vector index using brute-force cosine similarity.
// Entries are keyed by document id; search ties keep insertion order.
type MemoryIndex struct {
	mu      sync.RWMutex
	pos     map[string]int
	entries []models.IndexEntry
}

var _ core.VectorIndex = (*MemoryIndex)(nil)

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{pos: map[string]int{}}
}

// Upsert replaces the entry for entry.DocumentID in place, or appends it.
func (m *MemoryIndex) Upsert(_ context.Context, entry models.IndexEntry) error {
	entry.Vector = append([]float32(nil), entry.Vector...)

	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.pos[entry.DocumentID]; ok {
		m.entries[i] = entry
		return nil
	}
	m.pos[entry.DocumentID] = len(m.entries)
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryIndex) Search(_ context.Context, query []float32, k int) ([]models.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	hits := make([]models.SearchHit, len(m.entries))
	for i, e := range m.entries {
		hits[i] = models.SearchHit{
			DocumentID: e.DocumentID,
			Text:       e.Text,
			Name:       e.Name,
			Score:      Cosine(e.Vector, query),
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Len reports the number of indexed documents.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cosine returns the cosine similarity of a and b, or 0 when either has zero length.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
