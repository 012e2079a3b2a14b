package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/contexta-pipeline/internal/api/middlewares"
	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/models"
	"github.com/markdave123-py/contexta-pipeline/internal/services"
)

type fakeDocs struct {
	uploaded    []string
	contentType string
	data        []byte
	docs        map[string]*models.Document
	reprocErr   error
}

func (f *fakeDocs) Upload(_ context.Context, filename, contentType string, data []byte) (*models.Document, error) {
	f.uploaded = append(f.uploaded, filename)
	f.contentType = contentType
	f.data = data
	return &models.Document{ID: "new-id", FileName: filename, ContentType: contentType, Status: models.StatusUploaded}, nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (*models.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, core.ErrNotFound
}

func (f *fakeDocs) Reprocess(_ context.Context, _ string) error { return f.reprocErr }

type fakeAnswerer struct {
	secret string
	prompt string
	err    error
}

func (f *fakeAnswerer) Answer(_ context.Context, prompt, secret string) (string, error) {
	f.prompt, f.secret = prompt, secret
	if f.err != nil {
		return "", f.err
	}
	if strings.TrimSpace(prompt) == "" {
		return "", services.ErrEmptyPrompt
	}
	return "42", nil
}

func router(docs DocumentService, ans Answerer) http.Handler {
	logger := arbor.NewNoOpLogger()
	dh := NewDocumentHandler(docs, 1<<20, logger)
	ch := NewChatHandler(ans, logger)

	r := chi.NewRouter()
	r.Post("/api/documents", dh.UploadDocument)
	r.Get("/api/documents/{id}", dh.GetDocument)
	r.Post("/api/documents/{id}/reprocess", dh.ReprocessDocument)
	r.With(middleware.AccessSecret).Post("/api/ask", ch.Ask)
	return r
}

func multipartBody(t *testing.T, filename, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadDocument(t *testing.T) {
	docs := &fakeDocs{}
	body, ct := multipartBody(t, "report.pdf", "application/pdf", []byte("%PDF"))

	req := httptest.NewRequest(http.MethodPost, "/api/documents", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router(docs, &fakeAnswerer{}).ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []string{"report.pdf"}, docs.uploaded)
	assert.Equal(t, "application/pdf", docs.contentType)
	assert.Equal(t, []byte("%PDF"), docs.data)

	var got models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "new-id", got.ID)
	assert.Equal(t, models.StatusUploaded, got.Status)
}

func TestUploadDocumentMissingFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/documents", strings.NewReader("nope"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	router(&fakeDocs{}, &fakeAnswerer{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDocument(t *testing.T) {
	docs := &fakeDocs{docs: map[string]*models.Document{
		"d1": {ID: "d1", Status: models.StatusProcessed, DerivedTextKey: "text/d1.txt"},
	}}
	h := router(docs, &fakeAnswerer{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/d1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"processed"`)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReprocessDocument(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"queued", nil, http.StatusAccepted},
		{"settled", services.ErrAlreadySettled, http.StatusConflict},
		{"unknown", core.ErrNotFound, http.StatusNotFound},
		{"broken", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router(&fakeDocs{reprocErr: tc.err}, &fakeAnswerer{}).
				ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/documents/d1/reprocess", nil))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAsk(t *testing.T) {
	ans := &fakeAnswerer{}
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"meaning of life?"}`))
	req.Header.Set(middleware.AccessSecretHeader, "s3cret")
	rec := httptest.NewRecorder()
	router(&fakeDocs{}, ans).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s3cret", ans.secret)
	assert.Equal(t, "meaning of life?", ans.prompt)
	assert.JSONEq(t, `{"answer":"42"}`, rec.Body.String())
}

func TestAskErrors(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router(&fakeDocs{}, &fakeAnswerer{err: core.ErrUnauthorized}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"q"}`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("internal failures stay generic", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router(&fakeDocs{}, &fakeAnswerer{err: errors.New("pq: connection refused")}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"q"}`)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "pq:")
	})

	t.Run("empty prompt", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router(&fakeDocs{}, &fakeAnswerer{}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{"prompt":"  "}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body with wrong secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router(&fakeDocs{}, &fakeAnswerer{err: core.ErrUnauthorized}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(`{not json`)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
