package ingestion_engine

import "context"

type Ingestor interface {
	Start(ctx context.Context)
	Enqueue(ctx context.Context, docID string) error
	ProcessOne(ctx context.Context, docID string) error
	Wait() error
}
