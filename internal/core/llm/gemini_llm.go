package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/ternarybob/arbor"
	"google.golang.org/api/option"

	"github.com/markdave123-py/contexta-pipeline/internal/core"
)

// ErrNoContent is returned when the model answers without any text part.
var ErrNoContent = errors.New("gemini returned no text")

type GeminiLLM struct {
	client      *genai.Client
	modelName   string
	temperature float32
	logger      arbor.ILogger
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string, logger arbor.ILogger) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY not set")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	logger.Info().Str("model", modelName).Msg("gemini client ready")
	return &GeminiLLM{client: cl, modelName: modelName, temperature: 0.2, logger: logger}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	m.SetTemperature(g.temperature)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		g.logger.Warn().Err(err).Str("model", g.modelName).Msg("gemini response unusable")
		return "", err
	}
	return text, nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
			return "", fmt.Errorf("%w: prompt blocked (%s)", ErrNoContent, resp.PromptFeedback.BlockReason)
		}
		return "", ErrNoContent
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("%w: finish reason %s", ErrNoContent, cand.FinishReason)
	}

	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", ErrNoContent
	}
	return b.String(), nil
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
