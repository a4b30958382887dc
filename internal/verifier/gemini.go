package verifier

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// GeminiCompleter uses the Gemini API with JSON response mode.
type GeminiCompleter struct {
	client    *genai.Client
	modelName string
	maxTokens int32
	logger    *zap.Logger
}

func NewGeminiCompleter(ctx context.Context, apiKey, modelName string, maxTokens int, logger *zap.Logger) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	logger.Info("Gemini client initialized", zap.String("model", modelName))

	return &GeminiCompleter{
		client:    client,
		modelName: modelName,
		maxTokens: int32(maxTokens),
		logger:    logger,
	}, nil
}

func (c *GeminiCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
	}
	if c.maxTokens > 0 {
		model.SetMaxOutputTokens(c.maxTokens)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("empty response from gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", errors.New("unexpected response type from gemini")
	}

	return strings.TrimSpace(sb.String()), nil
}

func (c *GeminiCompleter) Close() error {
	return c.client.Close()
}
