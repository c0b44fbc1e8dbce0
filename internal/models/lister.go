package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"
)

var (
	// ErrAPIKeyNotSet is returned when listing is attempted without a key
	ErrAPIKeyNotSet = errors.New("API key not found. Set the provider's API key environment variable or configure api.key in .surveytranslate.yaml")
	// ErrUnsupportedProvider is returned for providers without a model listing
	ErrUnsupportedProvider = errors.New("model listing is not supported for this provider")
)

// ChatModelLister lists the models a provider can translate with
type ChatModelLister interface {
	ListChatModels(ctx context.Context) ([]string, error)
}

// ForProvider returns the lister matching a translation provider name.
// Gemini keys are only ever sent to the Gemini API.
func ForProvider(ctx context.Context, provider, apiKey, baseURL string) (ChatModelLister, error) {
	switch provider {
	case "", "deepseek", "openai":
		return NewLister(apiKey, baseURL), nil
	case "gemini":
		return NewGeminiLister(ctx, apiKey, baseURL)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
}

// Print writes the lister's chat models to w, one per line
func Print(ctx context.Context, l ChatModelLister, w io.Writer) error {
	chatModels, err := l.ListChatModels(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Chat/Translation Models:")
	if len(chatModels) == 0 {
		fmt.Fprintln(w, "  No chat models found")
		return nil
	}
	for _, model := range chatModels {
		fmt.Fprintf(w, "  %s\n", model)
	}
	return nil
}

// Lister handles listing available models
type Lister struct {
	apiKey string
	client *openai.Client
}

// NewLister creates a new model lister. An empty baseURL uses the OpenAI
// endpoint.
func NewLister(apiKey, baseURL string) *Lister {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Lister{
		apiKey: apiKey,
		client: openai.NewClientWithConfig(config),
	}
}

// ListChatModels returns the sorted ids of models usable for translation
func (l *Lister) ListChatModels(ctx context.Context) ([]string, error) {
	if l.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	models, err := l.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	chatModels := []string{}
	for _, model := range models.Models {
		if isChatModel(model.ID) {
			chatModels = append(chatModels, model.ID)
		}
	}
	sort.Strings(chatModels)

	return chatModels, nil
}

// PrintChatModels writes the chat models to w, one per line
func (l *Lister) PrintChatModels(ctx context.Context, w io.Writer) error {
	return Print(ctx, l, w)
}

func isChatModel(id string) bool {
	for _, skip := range []string{"tts", "audio", "dall-e", "whisper", "embedding", "moderation"} {
		if strings.Contains(id, skip) {
			return false
		}
	}
	for _, want := range []string{"gpt", "chat", "deepseek", "o1", "o3", "o4"} {
		if strings.Contains(id, want) {
			return true
		}
	}
	return false
}
