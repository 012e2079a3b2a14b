package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// ErrUnknownDocument means the job names a document with no record. Such jobs
// are dropped rather than retried.
var ErrUnknownDocument = fmt.Errorf("unknown document: %w", core.ErrNotFound)

const (
	outcomeProcessed = "processed"
	outcomeRejected  = "rejected_moderation"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

// NewDocumentIngestor constructs the ingestor with a bounded job queue.
func NewDocumentIngestor(
	db core.DbClient,
	obj core.ObjectClient,
	index core.VectorIndex,
	dispatcher *Dispatcher,
	gate *ModerationGate,
	publisher *Publisher,
	summarizer *Summarizer,
	cfg *IngestConfig,
	logger arbor.ILogger,
) *DocumentIngestor {
	size := cfg.QueueSize
	if size <= 0 {
		size = 64
	}
	return &DocumentIngestor{
		db:         db,
		obj:        obj,
		index:      index,
		gate:       gate,
		dispatcher: dispatcher,
		publisher:  publisher,
		summarizer: summarizer,
		cfg:        cfg,
		jobs:       make(chan models.ProcessingJob, size),
		locks:      newKeyedMutex(),
		logger:     logger,
	}
}

// Start runs cfg.Workers goroutines reading from the jobs channel until ctx is done.
func (i *DocumentIngestor) Start(ctx context.Context) {
	workers := i.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for w := 1; w <= workers; w++ {
		i.workers.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					i.logger.Debug().Int("worker", w).Msg("ingestion worker shutting down")
					return nil
				case job := <-i.jobs:
					i.handle(ctx, w, job)
				}
			}
		})
	}
	i.logger.Info().Int("workers", workers).Msg("ingestion workers started")
}

// Wait blocks until every worker has returned.
func (i *DocumentIngestor) Wait() error {
	return i.workers.Wait()
}

// Enqueue schedules a first delivery for docID, blocking while the queue is full.
func (i *DocumentIngestor) Enqueue(ctx context.Context, docID string) error {
	return i.enqueue(ctx, models.ProcessingJob{DocumentID: docID, Delivery: 1})
}

func (i *DocumentIngestor) enqueue(ctx context.Context, job models.ProcessingJob) error {
	select {
	case i.jobs <- job:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", job.DocumentID, ctx.Err())
	}
}

// Recover re-enqueues documents still waiting in status uploaded, for example
// after a restart dropped the in-memory queue.
func (i *DocumentIngestor) Recover(ctx context.Context) (int, error) {
	docs, err := i.db.ListDocumentsByStatus(ctx, models.StatusUploaded)
	if err != nil {
		return 0, fmt.Errorf("list pending documents: %w", err)
	}
	for n, d := range docs {
		if err := i.Enqueue(ctx, d.ID); err != nil {
			return n, err
		}
	}
	return len(docs), nil
}

// handle runs one delivery and schedules a redelivery or dead-letters the document.
func (i *DocumentIngestor) handle(ctx context.Context, worker int, job models.ProcessingJob) {
	log := i.logger.WithCorrelationId(job.DocumentID)
	log.Info().Int("worker", worker).Int("delivery", job.Delivery).Msg("processing document")

	err := i.ProcessOne(ctx, job.DocumentID)
	switch {
	case err == nil:
		return
	case errors.Is(err, ErrUnknownDocument):
		log.Warn().Err(err).Msg("dropping job for unknown document")
		return
	case ctx.Err() != nil:
		log.Warn().Err(err).Msg("job interrupted by shutdown")
		return
	}

	if job.Delivery < i.cfg.MaxDeliveries {
		next := models.ProcessingJob{DocumentID: job.DocumentID, Delivery: job.Delivery + 1}
		delay := i.cfg.RetryBackoff * time.Duration(job.Delivery)
		log.Warn().Err(err).Int("next_delivery", next.Delivery).Str("backoff", delay.String()).Msg("job failed, scheduling redelivery")
		go i.redeliver(ctx, next, delay)
		return
	}

	log.Error().Err(err).Int("deliveries", job.Delivery).Msg("job failed permanently")
	if uerr := i.deadLetter(ctx, job.DocumentID); uerr != nil {
		log.Error().Err(uerr).Msg("failed to mark document as failed")
	}
}

// deadLetter marks docID failed unless another delivery settled it first.
func (i *DocumentIngestor) deadLetter(ctx context.Context, docID string) error {
	unlock := i.locks.Lock(docID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, i.cfg.CallTimeout)
	defer cancel()

	doc, err := i.db.FindDocument(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}
	if doc == nil || doc.Status.Terminal() {
		return nil
	}
	return i.db.UpdateDocumentStatus(ctx, docID, models.StatusFailed)
}

func (i *DocumentIngestor) redeliver(ctx context.Context, job models.ProcessingJob, delay time.Duration) {
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return
	case <-t.C:
	}
	if err := i.enqueue(ctx, job); err != nil {
		i.logger.Warn().Err(err).Str("document_id", job.DocumentID).Msg("redelivery dropped")
	}
}

// ProcessOne runs the full pipeline once for docID. On error the record is left
// as it was, so a later delivery can start again from scratch.
func (i *DocumentIngestor) ProcessOne(ctx context.Context, docID string) error {
	unlock := i.locks.Lock(docID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, i.cfg.JobTimeout)
	defer cancel()

	outcome, err := i.process(ctx, docID)
	if err != nil {
		outcome = outcomeFailed
	}
	jobsTotal.WithLabelValues(outcome).Inc()
	return err
}

func (i *DocumentIngestor) process(ctx context.Context, docID string) (string, error) {
	log := i.logger.WithCorrelationId(docID)

	doc, err := i.db.FindDocument(ctx, docID)
	if err != nil {
		return "", fmt.Errorf("load document %s: %w", docID, err)
	}
	if doc == nil {
		return "", fmt.Errorf("document %s: %w", docID, ErrUnknownDocument)
	}
	if doc.Status == models.StatusRejectedModeration {
		// the delivery that settled the status may have failed to delete the original
		if err := i.deleteOriginal(ctx, doc.OriginalKey); err != nil {
			return "", core.NewStageError("moderation", core.ErrPersist, err)
		}
	}
	if doc.Status.Terminal() {
		log.Info().Str("status", string(doc.Status)).Msg("document already settled, skipping")
		return outcomeSkipped, nil
	}

	// download
	start := time.Now()
	data, err := i.download(ctx, doc.OriginalKey)
	observe("download", start)
	if err != nil {
		return "", core.NewStageError("download", core.ErrDownload, err)
	}

	// moderation
	kind := Classify(doc.ContentType, doc.OriginalKey)
	start = time.Now()
	flagged, res, err := i.gate.CheckUnsafe(ctx, kind, data, i.obj.Ref(doc.OriginalKey))
	observe("moderation", start)
	if err != nil {
		return "", core.NewStageError("moderation", core.ErrModeration, err)
	}
	log.Debug().Str("stage", res.Stage).Str("result", res.Status.String()).Msg("stage finished")
	if flagged {
		return outcomeRejected, i.reject(ctx, doc)
	}

	// extraction
	strategy := ResolveStrategy(doc.ContentType, doc.OriginalKey)
	start = time.Now()
	text, err := i.dispatcher.Extract(ctx, data, doc.ContentType, doc.OriginalKey)
	observe("extract", start)
	if err != nil {
		return "", core.NewStageError("extract", core.ErrExtraction, err)
	}
	cleaned := CleanText(text)

	// publish
	derivedKey := ""
	res = empty("publish")
	if cleaned != "" {
		start = time.Now()
		derivedKey, err = i.publisher.Publish(ctx, doc.OriginalKey, strategy, text)
		observe("publish", start)
		if err != nil {
			return "", core.NewStageError("publish", core.ErrPersist, err)
		}
		res = done("publish")
	}
	log.Debug().Str("stage", res.Stage).Str("result", res.Status.String()).Msg("stage finished")

	// summary
	summary := ""
	res = skipped("summarize")
	if cleaned != "" {
		start = time.Now()
		summary = i.summarizer.Summarize(ctx, cleaned)
		observe("summarize", start)
		res = done("summarize")
	}
	log.Debug().Str("stage", res.Stage).Str("result", res.Status.String()).Msg("stage finished")

	// embedding + index
	vec := Embed(cleaned)
	start = time.Now()
	err = i.upsertIndex(ctx, models.IndexEntry{DocumentID: doc.ID, Vector: vec, Text: cleaned, Name: doc.FileName})
	observe("index", start)
	if err != nil {
		return "", core.NewStageError("index", core.ErrPersist, err)
	}

	// commit
	doc.DerivedTextKey = derivedKey
	doc.Summary = summary
	doc.Embedding = vec
	doc.CleanedText = cleaned
	doc.Status = models.StatusProcessed
	if err := i.db.SaveDocument(ctx, doc); err != nil {
		return "", core.NewStageError("commit", core.ErrPersist, err)
	}

	log.Info().Str("strategy", strategy.String()).Str("derived_text_key", derivedKey).Int("chars", len(cleaned)).Msg("document processed")
	return outcomeProcessed, nil
}

func (i *DocumentIngestor) download(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.CallTimeout)
	defer cancel()
	return i.obj.Get(ctx, key)
}

func (i *DocumentIngestor) upsertIndex(ctx context.Context, entry models.IndexEntry) error {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.CallTimeout)
	defer cancel()
	return i.index.Upsert(ctx, entry)
}

// reject settles the document as rejected_moderation, then deletes the original.
// The status goes first so a retry after a failed delete still sees the rejection
// and only repeats the delete. Nothing derived from the content is written.
func (i *DocumentIngestor) reject(ctx context.Context, doc *models.Document) error {
	callCtx, cancel := context.WithTimeout(ctx, i.cfg.CallTimeout)
	defer cancel()

	if err := i.db.UpdateDocumentStatus(callCtx, doc.ID, models.StatusRejectedModeration); err != nil {
		return core.NewStageError("moderation", core.ErrPersist, err)
	}
	if err := i.deleteOriginal(ctx, doc.OriginalKey); err != nil {
		return core.NewStageError("moderation", core.ErrPersist, err)
	}
	i.logger.Warn().Str("document_id", doc.ID).Str("key", doc.OriginalKey).Msg("document rejected by moderation, original deleted")
	return nil
}

// deleteOriginal removes key; an already missing object counts as deleted.
func (i *DocumentIngestor) deleteOriginal(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.CallTimeout)
	defer cancel()
	if err := i.obj.Delete(ctx, key); err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("delete original: %w", err)
	}
	return nil
}

func observe(stage string, start time.Time) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
