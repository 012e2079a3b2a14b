package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	ingest "github.com/markdave123-py/contexta-pipeline/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

const (
	// TopK is how many documents feed the answer context.
	TopK = 5

	// AnswerFallbackMarker starts the reply used when no model answer is available.
	AnswerFallbackMarker = "Answer unavailable. Retrieved context:\n"

	answerSystemPrompt = "Answer the question using only the provided context. If the context does not contain the answer, say so."
	reindexConcurrency = 4
)

// ErrEmptyPrompt is returned to authorized callers that sent no question.
var ErrEmptyPrompt = errors.New("prompt is required")

var retrievalRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "retrieval_requests_total",
	Help: "Answer requests by result.",
}, []string{"result"})

// AnswerService serves the on-demand retrieval path. It never changes document status.
type AnswerService struct {
	db          core.DbClient
	storage     core.ObjectClient
	index       core.VectorIndex
	llm         core.LLMProvider
	secret      []byte
	callTimeout time.Duration
	logger      arbor.ILogger

	mu      sync.Mutex
	indexed map[string]string // document id -> sha256 of the text last upserted
}

// NewAnswerService accepts a nil llm; answers then fall back to the retrieved context.
func NewAnswerService(db core.DbClient, storage core.ObjectClient, index core.VectorIndex, llm core.LLMProvider, secret string, callTimeout time.Duration, logger arbor.ILogger) *AnswerService {
	return &AnswerService{
		db:          db,
		storage:     storage,
		index:       index,
		llm:         llm,
		secret:      []byte(secret),
		callTimeout: callTimeout,
		logger:      logger,
		indexed:     map[string]string{},
	}
}

// Answer checks the shared secret, refreshes the index from processed documents,
// retrieves the TopK closest texts by cosine similarity and asks the LLM.
func (s *AnswerService) Answer(ctx context.Context, prompt, accessSecret string) (string, error) {
	if !s.authorized(accessSecret) {
		retrievalRequests.WithLabelValues("unauthorized").Inc()
		return "", core.ErrUnauthorized
	}
	if strings.TrimSpace(prompt) == "" {
		retrievalRequests.WithLabelValues("invalid").Inc()
		return "", ErrEmptyPrompt
	}

	if err := s.refreshIndex(ctx); err != nil {
		retrievalRequests.WithLabelValues("error").Inc()
		return "", err
	}

	searchCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	hits, err := s.index.Search(searchCtx, ingest.Embed(ingest.CleanText(prompt)), TopK)
	cancel()
	if err != nil {
		retrievalRequests.WithLabelValues("error").Inc()
		return "", fmt.Errorf("search index: %w", err)
	}
	contextText := joinHits(hits)

	answer, err := s.generate(ctx, prompt, contextText)
	if err != nil {
		s.logger.Warn().Err(err).Int("hits", len(hits)).Msg("answer generation failed, returning context")
		retrievalRequests.WithLabelValues("fallback").Inc()
		return AnswerFallbackMarker + contextText, nil
	}

	retrievalRequests.WithLabelValues("answered").Inc()
	return answer, nil
}

// authorized compares in constant time. An unset secret rejects every caller.
func (s *AnswerService) authorized(given string) bool {
	if len(s.secret) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(s.secret, []byte(given)) == 1
}

// refreshIndex re-embeds every processed document whose text changed since it
// was last indexed by this service.
func (s *AnswerService) refreshIndex(ctx context.Context) error {
	docs, err := s.db.ListDocumentsByStatus(ctx, models.StatusProcessed)
	if err != nil {
		return fmt.Errorf("list processed documents: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reindexConcurrency)
	for _, doc := range docs {
		g.Go(func() error {
			return s.reindex(gctx, doc)
		})
	}
	return g.Wait()
}

func (s *AnswerService) reindex(ctx context.Context, doc models.Document) error {
	text := doc.CleanedText
	if text == "" && doc.DerivedTextKey != "" {
		getCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		raw, err := s.storage.Get(getCtx, doc.DerivedTextKey)
		cancel()
		if err != nil {
			return fmt.Errorf("load derived text for %s: %w", doc.ID, err)
		}
		text = ingest.CleanText(string(raw))
	}

	sum := sha256.Sum256([]byte(text))
	hash := hex.EncodeToString(sum[:])
	s.mu.Lock()
	unchanged := s.indexed[doc.ID] == hash
	s.mu.Unlock()
	if unchanged {
		return nil
	}

	upCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	entry := models.IndexEntry{DocumentID: doc.ID, Vector: ingest.Embed(text), Text: text, Name: doc.FileName}
	if err := s.index.Upsert(upCtx, entry); err != nil {
		return fmt.Errorf("index %s: %w", doc.ID, err)
	}

	s.mu.Lock()
	s.indexed[doc.ID] = hash
	s.mu.Unlock()
	return nil
}

func (s *AnswerService) generate(ctx context.Context, prompt, contextText string) (string, error) {
	if s.llm == nil {
		return "", fmt.Errorf("no generative model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	out, err := s.llm.Generate(ctx, answerSystemPrompt, prompt+"\n\nContext:\n"+contextText)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("empty answer")
	}
	return out, nil
}

func joinHits(hits []models.SearchHit) string {
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Text != "" {
			parts = append(parts, h.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}
