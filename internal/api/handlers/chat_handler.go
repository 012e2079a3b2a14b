package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ternarybob/arbor"

	middleware "github.com/markdave123-py/contexta-pipeline/internal/api/middlewares"
	"github.com/markdave123-py/contexta-pipeline/internal/core"
	"github.com/markdave123-py/contexta-pipeline/internal/services"
)

type Answerer interface {
	Answer(ctx context.Context, prompt, accessSecret string) (string, error)
}

type ChatHandler struct {
	answerer Answerer
	logger   arbor.ILogger
}

func NewChatHandler(answerer Answerer, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{answerer: answerer, logger: logger}
}

type AskRequest struct {
	Prompt string `json:"prompt"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

// Ask answers a prompt from the indexed documents. The shared secret comes
// from the AccessSecret middleware and is checked before the prompt, so an
// unreadable body still gets 401 for a wrong secret.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.Prompt = ""
	}

	answer, err := h.answerer.Answer(r.Context(), req.Prompt, middleware.SecretFromContext(r.Context()))
	if err != nil {
		if !errors.Is(err, core.ErrUnauthorized) && !errors.Is(err, services.ErrEmptyPrompt) {
			h.logger.Error().Err(err).Msg("answer failed")
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AskResponse{Answer: answer})
}
