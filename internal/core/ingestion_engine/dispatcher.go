package ingestion_engine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

// Dispatcher turns a stored original into plain text using the strategy
// resolved from its content type and key.
type Dispatcher struct {
	store       core.ObjectClient
	ocr         core.TextDetector
	transcriber core.Transcriber
	parser      core.DocumentParser
	callTimeout time.Duration
	policy      PollPolicy
	logger      arbor.ILogger
}

func NewDispatcher(
	store core.ObjectClient,
	ocr core.TextDetector,
	transcriber core.Transcriber,
	parser core.DocumentParser,
	callTimeout time.Duration,
	policy PollPolicy,
	logger arbor.ILogger,
) *Dispatcher {
	policy.Kind = "transcription"
	return &Dispatcher{
		store:       store,
		ocr:         ocr,
		transcriber: transcriber,
		parser:      parser,
		callTimeout: callTimeout,
		policy:      policy,
		logger:      logger,
	}
}

// Extract returns the document's text. No text is "" with a nil error.
func (d *Dispatcher) Extract(ctx context.Context, data []byte, contentType, key string) (string, error) {
	strategy := ResolveStrategy(contentType, key)
	d.logger.Debug().Str("key", key).Str("strategy", strategy.String()).Msg("extracting text")

	switch strategy {
	case StrategyOCR:
		return d.detectText(ctx, key)
	case StrategyTranscription:
		return d.transcribe(ctx, key)
	case StrategyDocument:
		return d.parse(ctx, data, contentType)
	default:
		return decodeUTF8(data), nil
	}
}

func (d *Dispatcher) detectText(ctx context.Context, key string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	text, err := d.ocr.DetectText(ctx, d.store.Ref(key))
	if err != nil {
		return "", fmt.Errorf("ocr: %w", err)
	}
	return text, nil
}

func (d *Dispatcher) transcribe(ctx context.Context, key string) (string, error) {
	startCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	handle, err := d.transcriber.StartJob(startCtx, d.store.Ref(key), Extension(key))
	cancel()
	if err != nil {
		return "", fmt.Errorf("start transcription: %w", err)
	}
	d.logger.Info().Str("key", key).Str("job", handle).Msg("transcription job started")

	poll, err := AwaitJob(ctx, d.policy, func(ctx context.Context) (core.TranscriptPoll, core.JobStatus, error) {
		callCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
		p, err := d.transcriber.PollJob(callCtx, handle)
		return p, p.Status, err
	})
	if err != nil {
		return "", fmt.Errorf("transcription %s: %w", handle, err)
	}
	if poll.TranscriptRef == "" {
		return "", nil
	}

	fetchCtx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()
	text, err := d.transcriber.FetchTranscript(fetchCtx, poll.TranscriptRef)
	if err != nil {
		return "", fmt.Errorf("fetch transcript %s: %w", handle, err)
	}
	return text, nil
}

func (d *Dispatcher) parse(ctx context.Context, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.callTimeout)
	defer cancel()

	text, err := d.parser.Parse(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", contentType, err)
	}
	return text, nil
}

// decodeUTF8 decodes bytes as UTF-8, replacing invalid sequences.
func decodeUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
