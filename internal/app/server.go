package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/contexta-pipeline/internal/api/middlewares"
	"github.com/markdave123-py/contexta-pipeline/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     arbor.ILogger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, docs handlers.DocumentService, answerer handlers.Answerer, logger arbor.ILogger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           NewRouter(cfg, docs, answerer, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// NewRouter registers the document, retrieval and health endpoints.
func NewRouter(cfg *config.Config, docs handlers.DocumentService, answerer handlers.Answerer, logger arbor.ILogger) http.Handler {
	docHandler := handlers.NewDocumentHandler(docs, cfg.MaxUploadBytes, logger)
	chatHandler := handlers.NewChatHandler(answerer, logger)
	healthHandler := handlers.NewHealthHandler()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", appMiddleware.AccessSecretHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", healthHandler.Health)
	r.Get("/metrics", healthHandler.Metrics)

	r.Route("/api", func(api chi.Router) {
		api.Post("/documents", docHandler.UploadDocument)
		api.Get("/documents/{id}", docHandler.GetDocument)
		api.Post("/documents/{id}/reprocess", docHandler.ReprocessDocument)

		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.AccessSecret)
			protected.Post("/ask", chatHandler.Ask)
		})
	})

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
