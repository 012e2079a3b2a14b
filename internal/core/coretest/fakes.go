// Package coretest holds in-memory stand-ins for the pipeline's collaborators.
package coretest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// MemoryObjects is an in-memory core.ObjectClient.
// FailDeletes makes that many Delete calls fail before deletes succeed again.
type MemoryObjects struct {
	mu          sync.Mutex
	Bucket      string
	Objects     map[string][]byte
	Deleted     []string
	GetErr      error
	PutErr      error
	FailDeletes int
}

func NewMemoryObjects() *MemoryObjects {
	return &MemoryObjects{Bucket: "test-bucket", Objects: map[string][]byte{}}
}

func (m *MemoryObjects) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	b, ok := m.Objects[key]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", key, core.ErrNotFound)
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryObjects) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDeletes > 0 {
		m.FailDeletes--
		return errors.New("delete unavailable")
	}
	delete(m.Objects, key)
	m.Deleted = append(m.Deleted, key)
	return nil
}

func (m *MemoryObjects) Ref(key string) core.ObjectRef {
	return core.ObjectRef{Bucket: m.Bucket, Key: key}
}

// Has reports whether key is currently stored.
func (m *MemoryObjects) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[key]
	return ok
}

// MemoryDB is an in-memory core.DbClient that records every status written.
// FailStatusWrites makes that many UpdateDocumentStatus calls fail.
type MemoryDB struct {
	mu               sync.Mutex
	docs             map[string]models.Document
	Statuses         map[string][]models.DocumentStatus
	Saves            int
	SaveErr          error
	FailStatusWrites int
}

func NewMemoryDB(docs ...models.Document) *MemoryDB {
	db := &MemoryDB{docs: map[string]models.Document{}, Statuses: map[string][]models.DocumentStatus{}}
	for _, d := range docs {
		db.docs[d.ID] = d
	}
	return db
}

func (m *MemoryDB) CreateDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return errors.New("document exists")
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *MemoryDB) FindDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	d.Embedding = append([]float32(nil), d.Embedding...)
	return &d, nil
}

func (m *MemoryDB) SaveDocument(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	m.docs[doc.ID] = *doc
	m.Statuses[doc.ID] = append(m.Statuses[doc.ID], doc.Status)
	return nil
}

func (m *MemoryDB) UpdateDocumentStatus(_ context.Context, id string, status models.DocumentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStatusWrites > 0 {
		m.FailStatusWrites--
		return errors.New("status write unavailable")
	}
	d, ok := m.docs[id]
	if !ok {
		return fmt.Errorf("document not found: %s", id)
	}
	d.Status = status
	m.docs[id] = d
	m.Statuses[id] = append(m.Statuses[id], status)
	return nil
}

func (m *MemoryDB) ListDocumentsByStatus(_ context.Context, status models.DocumentStatus) ([]models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Document
	for _, d := range m.docs {
		if d.Status == status {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryDB) Close() error { return nil }

// Doc returns a copy of the stored document, or the zero value.
func (m *MemoryDB) Doc(id string) models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id]
}

// FakeLLM returns Reply or Err and records the prompts it saw.
type FakeLLM struct {
	mu      sync.Mutex
	Reply   string
	Err     error
	Prompts []string
}

func (f *FakeLLM) Generate(_ context.Context, _ string, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, userPrompt)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Reply, nil
}

// FakeOCR returns Text for any ref.
type FakeOCR struct {
	Text  string
	Err   error
	Calls []core.ObjectRef
}

func (f *FakeOCR) DetectText(_ context.Context, ref core.ObjectRef) (string, error) {
	f.Calls = append(f.Calls, ref)
	return f.Text, f.Err
}

// FakeTranscriber walks through Polls in order, repeating the last one.
type FakeTranscriber struct {
	Handle     string
	Polls      []core.TranscriptPoll
	Transcript string
	StartErr   error
	Formats    []string
	pollCalls  int
}

func (f *FakeTranscriber) StartJob(_ context.Context, _ core.ObjectRef, mediaFormat string) (string, error) {
	f.Formats = append(f.Formats, mediaFormat)
	if f.StartErr != nil {
		return "", f.StartErr
	}
	return f.Handle, nil
}

func (f *FakeTranscriber) PollJob(_ context.Context, _ string) (core.TranscriptPoll, error) {
	i := f.pollCalls
	if i >= len(f.Polls) {
		i = len(f.Polls) - 1
	}
	f.pollCalls++
	return f.Polls[i], nil
}

func (f *FakeTranscriber) FetchTranscript(_ context.Context, _ string) (string, error) {
	return f.Transcript, nil
}

// PollCalls reports how many times PollJob ran.
func (f *FakeTranscriber) PollCalls() int { return f.pollCalls }

// FakeModerator flags images with ImageLabels and videos through VideoPolls.
type FakeModerator struct {
	ImageLabels []string
	ImageErr    error
	VideoPolls  []core.ModerationPoll
	ImageCalls  int
	VideoStarts int
	pollCalls   int
}

func (f *FakeModerator) DetectUnsafeLabels(_ context.Context, _ []byte, _ float64) ([]string, error) {
	f.ImageCalls++
	return f.ImageLabels, f.ImageErr
}

func (f *FakeModerator) StartModerationJob(_ context.Context, _ core.ObjectRef, _ float64) (string, error) {
	f.VideoStarts++
	return "moderation-job", nil
}

func (f *FakeModerator) PollModerationJob(_ context.Context, _ string) (core.ModerationPoll, error) {
	i := f.pollCalls
	if i >= len(f.VideoPolls) {
		i = len(f.VideoPolls) - 1
	}
	f.pollCalls++
	return f.VideoPolls[i], nil
}

// FakeParser returns Text for every document, or Err.
type FakeParser struct {
	Text  string
	Err   error
	Types []string
}

func (f *FakeParser) Parse(_ context.Context, _ []byte, contentType string) (string, error) {
	f.Types = append(f.Types, contentType)
	return f.Text, f.Err
}
