// Package genai writes the narrative report of a run with a Gemini model,
// falling back to a fixed template whenever generation is unavailable.
package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/earthwork-discovery/internal/config"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

var (
	ErrNoAPIKey     = errors.New("genai: API key is required")
	ErrEmptyContent = errors.New("genai: model returned no text")
)

const systemInstruction = "You are an archaeologist specializing in pre-Columbian Amazonian earthworks " +
	"with long field experience. You brief research expedition teams."

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type client struct {
	client *genai.Client
	model  string
	cfg    config.NarrativeConfig
	logger *zap.Logger
}

// NewClient connects to the Gemini API. baseURL overrides the API endpoint
// and is empty in production.
func NewClient(ctx context.Context, cfg config.NarrativeConfig, baseURL string, logger *zap.Logger) (TextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
	}
	if baseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}
	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	logger.Info("GenAI client initialized", zap.String("model", cfg.Model))
	return &client{client: c, model: cfg.Model, cfg: cfg, logger: logger}, nil
}

func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	temperature := float32(0.3)
	resp, err := c.client.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)},
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
			Temperature:       &temperature,
			MaxOutputTokens:   800,
		},
	)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyContent
	}
	c.logger.Debug("Narrative generated",
		zap.String("model", c.model),
		zap.Int("chars", len(text)),
	)
	return text, nil
}
