// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/config"
	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/core/awsml"
	db "github.com/markdave123-py/contexta-pipeline/internal/core/database"
	ingest "github.com/markdave123-py/contexta-pipeline/internal/core/ingestion_engine"
	"github.com/markdave123-py/contexta-pipeline/internal/core/llm"
	objectclient "github.com/markdave123-py/contexta-pipeline/internal/core/object-client"
	"github.com/markdave123-py/contexta-pipeline/internal/core/vectorindex"
	"github.com/markdave123-py/contexta-pipeline/internal/services"
)

type App struct {
	DBClient     core.DbClient
	ObjectClient core.ObjectClient
	DocProcessor *ingest.DocumentIngestor
	Server       *Server

	closers []func() error
	logger  arbor.ILogger
}

func NewApp(ctx context.Context, cfg *config.Config, logger arbor.ILogger) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{logger: logger}

	dbClient, index, err := a.openStore(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBClient = dbClient
	logger.Info().Str("store", cfg.DocumentStore).Str("index", cfg.VectorIndex).Msg("Document store initialized and ready")

	awsCfg, err := objectclient.LoadAWSConfig(appCtx, cfg.AwsRegion, cfg.AwsAccessKey, cfg.AwsSecretKey)
	if err != nil {
		a.Close()
		return nil, err
	}
	objClient, err := objectclient.NewS3Client(s3.NewFromConfig(awsCfg), cfg.BucketName, cfg.CallTimeout, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.ObjectClient = objClient
	logger.Info().Str("bucket", cfg.BucketName).Msg("Object client initialized and ready")

	rekognition := awsml.NewRekognition(awsCfg)
	transcriber := awsml.NewTranscriber(awsCfg, objClient)

	var llmProvider core.LLMProvider
	if cfg.AIAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set, summaries and answers will use fallbacks")
	} else {
		gemini, err := llm.NewGeminiLLM(appCtx, cfg.AIAPIKey, cfg.GenModel, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the llm, %w", err)
		}
		a.closers = append(a.closers, gemini.Close)
		llmProvider = gemini
	}

	useReadability := false
	parser := ingest.NewDocconvParser(useReadability)

	dispatcher := ingest.NewDispatcher(objClient, rekognition, transcriber, parser, cfg.CallTimeout, ingest.PollPolicy{
		Interval:    cfg.TranscribePollInterval,
		MaxAttempts: cfg.TranscribeMaxAttempts,
	}, logger)
	gate := ingest.NewModerationGate(rekognition, cfg.ModerationMinConfidence, cfg.CallTimeout, ingest.PollPolicy{
		Interval:    cfg.ModerationPollInterval,
		MaxAttempts: cfg.ModerationMaxAttempts,
	}, logger)
	publisher := ingest.NewPublisher(objClient, cfg.DerivedTextPrefix, cfg.CallTimeout)
	summarizer := ingest.NewSummarizer(llmProvider, cfg.SummaryFallbackChars, cfg.CallTimeout, logger)

	ingCfg := &ingest.IngestConfig{
		Workers:       cfg.WorkerCount,
		QueueSize:     cfg.QueueSize,
		MaxDeliveries: cfg.JobMaxDeliveries,
		RetryBackoff:  cfg.JobRetryBackoff,
		JobTimeout:    cfg.JobTimeout,
		CallTimeout:   cfg.CallTimeout,
	}
	docIngestor := ingest.NewDocumentIngestor(dbClient, objClient, index, dispatcher, gate, publisher, summarizer, ingCfg, logger)
	a.DocProcessor = docIngestor

	docService := services.NewDocumentService(dbClient, objClient, docIngestor, cfg.UploadPrefix, logger)
	answerService := services.NewAnswerService(dbClient, objClient, index, llmProvider, cfg.AccessSecret, cfg.CallTimeout, logger)
	if cfg.AccessSecret == "" {
		logger.Warn().Msg("ACCESS_SECRET not set, every retrieval request will be rejected")
	}

	a.Server = NewServer(cfg, docService, answerService, logger)
	return a, nil
}

// openStore picks the document database and vector index named by cfg.
func (a *App) openStore(ctx context.Context, cfg *config.Config) (core.DbClient, core.VectorIndex, error) {
	switch cfg.DocumentStore {
	case config.StorePostgres:
		client, err := db.NewDatabaseClient(ctx, cfg.DatabaseURL, a.logger)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, client.Close)
		if cfg.VectorIndex == config.IndexPgVector {
			return client, db.NewPgVectorIndex(client.DB()), nil
		}
		return client, vectorindex.NewMemoryIndex(), nil

	case config.StoreBadger:
		client, err := db.NewBadgerClient(cfg.BadgerPath, a.logger)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, client.Close)
		return client, vectorindex.NewMemoryIndex(), nil
	}
	return nil, nil, fmt.Errorf("unknown document store %q", cfg.DocumentStore)
}

// Close releases every backend opened by NewApp, newest first.
func (a *App) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn().Err(err).Msg("closing app resources")
	}
}
