package translation

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

const (
	// DefaultDeepSeekURL is the OpenAI-compatible endpoint of DeepSeek
	DefaultDeepSeekURL = "https://api.deepseek.com/v1"

	// DefaultDeepSeekModel is the chat model used with DeepSeek
	DefaultDeepSeekModel = "deepseek-chat"

	// DefaultOpenAIModel is the chat model used with OpenAI
	DefaultOpenAIModel = "gpt-4o-mini"

	// DefaultGeminiModel is the model used with Gemini
	DefaultGeminiModel = "gemini-2.0-flash"

	// DefaultTemperature keeps answers close to deterministic
	DefaultTemperature = 0.1
)

var (
	// ErrAPIKeyNotSet is returned when a remote provider has no API key
	ErrAPIKeyNotSet = errors.New("API key not configured")

	// ErrEmptyResponse is returned when the API answered without content
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrMalformedResponse is returned when no usable JSON object could be
	// found in the API answer
	ErrMalformedResponse = errors.New("malformed response from API")

	// ErrCircuitOpen is returned while the circuit breaker rejects calls
	ErrCircuitOpen = errors.New("translation API temporarily unavailable")
)

// Provider detects the language of a text and translates it to English
type Provider interface {
	// Translate makes one API call for the given question text
	Translate(ctx context.Context, text string) (survey.Translation, error)

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured
	IsAvailable() error
}

// Config holds the settings shared by all providers
type Config struct {
	Provider    string // "deepseek", "openai", "gemini" or "test"
	APIKey      string
	BaseURL     string // empty selects the provider's default endpoint
	Model       string // empty selects the provider's default model
	Temperature float32
}

// DefaultProviderConfig returns the DeepSeek configuration
func DefaultProviderConfig() *Config {
	return &Config{
		Provider:    "deepseek",
		BaseURL:     DefaultDeepSeekURL,
		Model:       DefaultDeepSeekModel,
		Temperature: DefaultTemperature,
	}
}

// NewProvider creates the provider named in the configuration
func NewProvider(config *Config) (Provider, error) {
	if config == nil {
		config = DefaultProviderConfig()
	}

	switch config.Provider {
	case "", "deepseek", "openai":
		return NewChatProvider(config)

	case "gemini":
		return NewGeminiProvider(context.Background(), config)

	case "test":
		return NewTestModeProvider(), nil

	default:
		return nil, fmt.Errorf("unknown translation provider: %s", config.Provider)
	}
}
