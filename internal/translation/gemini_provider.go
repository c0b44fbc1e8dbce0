package translation

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

// GeminiProvider implements Provider using the Gemini API
type GeminiProvider struct {
	client *genai.Client
	config Config
}

// NewGeminiProvider creates a Gemini provider
func NewGeminiProvider(ctx context.Context, config *Config) (*GeminiProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrAPIKeyNotSet)
	}

	cfg := *config
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: client, config: cfg}, nil
}

// Translate sends the question prompt and parses the JSON answer
func (p *GeminiProvider) Translate(ctx context.Context, text string) (survey.Translation, error) {
	resp, err := p.client.Models.GenerateContent(ctx, p.config.Model, genai.Text(BuildPrompt(text)), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(p.config.Temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return survey.Translation{}, fmt.Errorf("gemini API error: %w", err)
	}

	content := resp.Text()
	if content == "" {
		return survey.Translation{}, ErrEmptyResponse
	}

	return ParseResult(content)
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks that an API key is configured
func (p *GeminiProvider) IsAvailable() error {
	if p.config.APIKey == "" {
		return ErrAPIKeyNotSet
	}
	return nil
}
