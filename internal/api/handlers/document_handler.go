package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ternarybob/arbor"

	"github.com/markdave123-py/contexta-pipeline/internal/models"
)

// DocumentService is the slice of services.DocumentService the handler needs.
type DocumentService interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (*models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Reprocess(ctx context.Context, id string) error
}

type DocumentHandler struct {
	docs           DocumentService
	maxUploadBytes int64
	logger         arbor.ILogger
}

func NewDocumentHandler(docs DocumentService, maxUploadBytes int64, logger arbor.ILogger) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxUploadBytes: maxUploadBytes, logger: logger}
}

// UploadDocument stores the multipart "file" field and queues it for processing.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart body"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file"})
		return
	}

	doc, err := h.docs.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.logger.Error().Err(err).Str("file", header.Filename).Msg("upload failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) ReprocessDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.docs.Reprocess(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "queued"})
}
