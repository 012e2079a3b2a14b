package ingestion_engine

import (
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// IngestConfig tunes the worker pool.
//
// Workers:       goroutines consuming the queue.
// QueueSize:     capacity of the in-process job channel.
// MaxDeliveries: attempts per job before the document is marked failed.
// RetryBackoff:  delay before redelivery, multiplied by the delivery number.
// JobTimeout:    upper bound for one pipeline pass.
// CallTimeout:   upper bound for each external call inside the pass.
type IngestConfig struct {
	Workers       int
	QueueSize     int
	MaxDeliveries int
	RetryBackoff  time.Duration
	JobTimeout    time.Duration
	CallTimeout   time.Duration
}

// DocumentIngestor runs the processing pipeline for queued documents:
//
// db:         document records.
// obj:        artifact store holding originals and derived text.
// index:      retrieval vector index.
// gate:       moderation for images and videos.
// dispatcher: text extraction.
// publisher:  derived text writer.
// summarizer: LLM summary with placeholder fallback.
// jobs:       in-memory queue of processing jobs.
// locks:      per-document serialization.
// workers:    lifecycle of the worker goroutines.
type DocumentIngestor struct {
	db         core.DbClient
	obj        core.ObjectClient
	index      core.VectorIndex
	gate       *ModerationGate
	dispatcher *Dispatcher
	publisher  *Publisher
	summarizer *Summarizer
	cfg        *IngestConfig
	jobs       chan models.ProcessingJob
	locks      *keyedMutex
	workers    errgroup.Group
	logger     arbor.ILogger
}
