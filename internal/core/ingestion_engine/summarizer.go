package ingestion_engine

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

// SummaryFallbackMarker starts every placeholder summary.
const SummaryFallbackMarker = "Summary unavailable: "

const summarySystemPrompt = "You summarize documents. Reply with a concise summary of at most three sentences and nothing else."

// Summarizer asks the LLM for a short summary and never fails the job.
type Summarizer struct {
	llm           core.LLMProvider
	fallbackChars int
	callTimeout   time.Duration
	logger        arbor.ILogger
}

// NewSummarizer accepts a nil llm; every summary is then the placeholder.
func NewSummarizer(llm core.LLMProvider, fallbackChars int, callTimeout time.Duration, logger arbor.ILogger) *Summarizer {
	return &Summarizer{llm: llm, fallbackChars: fallbackChars, callTimeout: callTimeout, logger: logger}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	summary, err := s.generate(ctx, text)
	if err == nil {
		return summary
	}

	s.logger.Warn().Err(err).Msg("summary generation failed, using placeholder")
	summaryFallbacks.Inc()
	return FallbackSummary(text, s.fallbackChars)
}

func (s *Summarizer) generate(ctx context.Context, text string) (string, error) {
	if s.llm == nil {
		return "", errors.New("no generative model configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	out, err := s.llm.Generate(ctx, summarySystemPrompt, text)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty summary")
	}
	return out, nil
}

// FallbackSummary is the marker followed by the first n runes of text.
func FallbackSummary(text string, n int) string {
	r := []rune(strings.TrimSpace(text))
	if n >= 0 && len(r) > n {
		r = r[:n]
	}
	return SummaryFallbackMarker + string(r)
}
