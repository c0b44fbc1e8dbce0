package translation

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

// ChatProvider implements Provider over an OpenAI-compatible chat API
type ChatProvider struct {
	client *openai.Client
	config Config
}

// NewChatProvider creates a provider for DeepSeek or OpenAI
func NewChatProvider(config *Config) (*ChatProvider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", providerName(config.Provider), ErrAPIKeyNotSet)
	}

	cfg := *config
	if cfg.Provider == "" {
		cfg.Provider = "deepseek"
	}
	if cfg.BaseURL == "" && cfg.Provider == "deepseek" {
		cfg.BaseURL = DefaultDeepSeekURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultDeepSeekModel
		if cfg.Provider == "openai" {
			cfg.Model = DefaultOpenAIModel
		}
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &ChatProvider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}, nil
}

// Translate asks the chat model for language, confidence and translation
// in a single JSON answer
func (p *ChatProvider) Translate(ctx context.Context, text string) (survey.Translation, error) {
	req := openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: BuildPrompt(text),
			},
		},
		Temperature: p.config.Temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return survey.Translation{}, fmt.Errorf("%s API error: %w", p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return survey.Translation{}, ErrEmptyResponse
	}

	return ParseResult(resp.Choices[0].Message.Content)
}

// Name returns the provider name
func (p *ChatProvider) Name() string {
	return p.config.Provider
}

// Model returns the chat model in use
func (p *ChatProvider) Model() string {
	return p.config.Model
}

// IsAvailable checks that an API key is configured
func (p *ChatProvider) IsAvailable() error {
	if p.config.APIKey == "" {
		return ErrAPIKeyNotSet
	}
	return nil
}

func providerName(name string) string {
	if name == "" {
		return "deepseek"
	}
	return name
}
