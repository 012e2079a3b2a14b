package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/contexta-pipeline/internal/app"
	"github.com/markdave123-py/contexta-pipeline/internal/config"
)

func main() {
	// Handle SIGINT/SIGTERM for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer application.Close()

	application.DocProcessor.Start(ctx)
	if n, err := application.DocProcessor.Recover(ctx); err != nil {
		logger.Warn().Err(err).Msg("requeueing unprocessed documents")
	} else if n > 0 {
		logger.Info().Int("count", n).Msg("requeued unprocessed documents")
	}

	serverErr := make(chan error, 1)
	go func() { serverErr <- application.Server.Start() }()

	logger.Info().Str("port", cfg.Port).Msg("Contexta pipeline is running")

	exitCode := 0
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			exitCode = 1
		}
		stop()
	}
	logger.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	if err := application.DocProcessor.Wait(); err != nil {
		logger.Warn().Err(err).Msg("ingestion workers")
	}

	if exitCode != 0 {
		application.Close()
		os.Exit(exitCode)
	}
}
