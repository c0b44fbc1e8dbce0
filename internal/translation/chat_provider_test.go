package translation

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"

	"codeberg.org/snonux/surveytranslate/internal/testutil"
)

func newTestChatProvider(t *testing.T, reply func(prompt string) testutil.ChatReply) (*ChatProvider, *testutil.ChatServer) {
	t.Helper()

	server := testutil.NewChatServer(t, reply)
	p, err := NewChatProvider(&Config{
		Provider:    "deepseek",
		APIKey:      "sk-test",
		BaseURL:     server.URL,
		Model:       "deepseek-chat",
		Temperature: 0.1,
	})
	if err != nil {
		t.Fatalf("NewChatProvider() unexpected error: %v", err)
	}
	return p, server
}

func TestChatProvider_Translate(t *testing.T) {
	p, server := newTestChatProvider(t, func(prompt string) testutil.ChatReply {
		return testutil.ChatReply{
			Content: "```json\n{\"language\": \"Spanish\", \"confidence\": 0.97, \"translation\": \"How old are you?\"}\n```",
		}
	})

	got, err := p.Translate(context.Background(), "¿Cuántos años tiene?")
	if err != nil {
		t.Fatalf("Translate() unexpected error: %v", err)
	}

	if got.Language != "Spanish" || got.Confidence != 97 || got.English != "How old are you?" {
		t.Errorf("unexpected translation: %+v", got)
	}

	prompts := server.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("expected exactly one API call, got %d", len(prompts))
	}
	if !testutil.PromptContains(prompts[0], "¿Cuántos años tiene?") {
		t.Errorf("prompt does not contain the question: %s", prompts[0])
	}
}

func TestChatProvider_APIError(t *testing.T) {
	p, _ := newTestChatProvider(t, func(prompt string) testutil.ChatReply {
		return testutil.ChatReply{Status: http.StatusInternalServerError}
	})

	_, err := p.Translate(context.Background(), "hello")
	if err == nil {
		t.Fatal("Expected error for failing API")
	}

	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *openai.APIError in chain, got %v", err)
	}
	if apiErr.HTTPStatusCode != http.StatusInternalServerError {
		t.Errorf("HTTPStatusCode = %d", apiErr.HTTPStatusCode)
	}
}

func TestChatProvider_Malformed(t *testing.T) {
	p, _ := newTestChatProvider(t, func(prompt string) testutil.ChatReply {
		return testutil.ChatReply{Content: "The text is in Spanish."}
	})

	_, err := p.Translate(context.Background(), "hola")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestChatProvider_Timeout(t *testing.T) {
	p, _ := newTestChatProvider(t, func(prompt string) testutil.ChatReply {
		return testutil.ChatReply{Content: `{"translation": "late"}`, Delay: 2 * time.Second}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Translate(ctx, "slow")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
}

func TestChatProvider_Integration(t *testing.T) {
	// Skip if no API key
	apiKey := os.Getenv("DEEPSEEK_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test: DEEPSEEK_API_KEY not set")
	}

	p, err := NewChatProvider(&Config{Provider: "deepseek", APIKey: apiKey, Temperature: DefaultTemperature})
	if err != nil {
		t.Fatalf("NewChatProvider() unexpected error: %v", err)
	}

	got, err := p.Translate(context.Background(), "¿Qué tan satisfecho está con nuestro servicio?")
	if err != nil {
		t.Fatalf("Translate failed: %v", err)
	}
	if got.English == "" {
		t.Error("Got empty translation")
	}

	t.Logf("Detected %s (%d%%): %s", got.Language, got.Confidence, got.English)
}
