package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"

	"google.golang.org/genai"
)

// GeminiLister lists Gemini models that support content generation
type GeminiLister struct {
	client *genai.Client
}

// NewGeminiLister creates a lister for the Gemini API. An empty baseURL uses
// the public endpoint.
func NewGeminiLister(ctx context.Context, apiKey, baseURL string) (*GeminiLister, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	config := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLister{client: client}, nil
}

// ListChatModels returns the sorted model names without the "models/" prefix
func (l *GeminiLister) ListChatModels(ctx context.Context) ([]string, error) {
	chatModels := []string{}

	page, err := l.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 100})
	for {
		if errors.Is(err, genai.ErrPageDone) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list models: %w", err)
		}

		for _, model := range page.Items {
			if isGeminiChatModel(model) {
				chatModels = append(chatModels, strings.TrimPrefix(model.Name, "models/"))
			}
		}
		page, err = page.Next(ctx)
	}
	sort.Strings(chatModels)

	return chatModels, nil
}

// PrintChatModels writes the chat models to w, one per line
func (l *GeminiLister) PrintChatModels(ctx context.Context, w io.Writer) error {
	return Print(ctx, l, w)
}

func isGeminiChatModel(model *genai.Model) bool {
	if model == nil || strings.Contains(model.Name, "embedding") {
		return false
	}
	if len(model.SupportedActions) == 0 {
		return strings.Contains(model.Name, "gemini")
	}
	return slices.Contains(model.SupportedActions, "generateContent")
}
