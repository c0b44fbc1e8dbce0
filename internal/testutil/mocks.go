package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

// MockTranslator mocks the translation provider
type MockTranslator struct {
	Translations map[string]survey.Translation
	Errors       map[string]error
	// Delays makes Translate block for the given text until the duration
	// passes or the context is done
	Delays map[string]time.Duration

	mu    sync.Mutex
	Calls []string
}

// Translate mocks a translation call
func (m *MockTranslator) Translate(ctx context.Context, text string) (survey.Translation, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	m.mu.Unlock()

	if d, ok := m.Delays[text]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return survey.Translation{}, ctx.Err()
		}
	}

	if err, ok := m.Errors[text]; ok {
		return survey.Translation{}, err
	}

	if tr, ok := m.Translations[text]; ok {
		return tr, nil
	}

	// Default mock translation
	return survey.Translation{
		Language:   "English",
		Confidence: 99,
		English:    fmt.Sprintf("mock translation of %s", text),
	}, nil
}

// Name returns the mock provider name
func (m *MockTranslator) Name() string { return "mock" }

// IsAvailable always succeeds
func (m *MockTranslator) IsAvailable() error { return nil }

// CallCount returns the number of Translate calls so far
func (m *MockTranslator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ChatReply is what the fake chat endpoint answers for one request
type ChatReply struct {
	Status  int    // 0 means 200
	Content string // assistant message content
	Delay   time.Duration
}

// ChatServer is a fake OpenAI-compatible endpoint
type ChatServer struct {
	*httptest.Server

	mu      sync.Mutex
	prompts []string
}

// NewChatServer starts a fake endpoint serving /chat/completions and
// /models. reply decides the answer for each user prompt.
func NewChatServer(t *testing.T, reply func(prompt string) ChatReply) *ChatServer {
	t.Helper()

	cs := &ChatServer{}
	mux := http.NewServeMux()

	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var prompt string
		for _, m := range req.Messages {
			if m.Role == "user" {
				prompt = m.Content
			}
		}
		cs.mu.Lock()
		cs.prompts = append(cs.prompts, prompt)
		cs.mu.Unlock()

		rep := reply(prompt)
		if rep.Delay > 0 {
			select {
			case <-time.After(rep.Delay):
			case <-r.Context().Done():
				return
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if rep.Status != 0 && rep.Status != http.StatusOK {
			w.WriteHeader(rep.Status)
			fmt.Fprintf(w, `{"error":{"message":"mock failure","type":"server_error"}}`)
			return
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   req.Model,
			"choices": []map[string]interface{}{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": rep.Content},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20},
		})
	})

	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"object":"list","data":[`+
			`{"id":"deepseek-chat","object":"model","owned_by":"deepseek"},`+
			`{"id":"deepseek-reasoner","object":"model","owned_by":"deepseek"},`+
			`{"id":"gpt-4o-mini","object":"model","owned_by":"openai"},`+
			`{"id":"tts-1","object":"model","owned_by":"openai"}]}`)
	})

	cs.Server = httptest.NewServer(mux)
	t.Cleanup(cs.Close)
	return cs
}

// Prompts returns the user prompts received so far
func (cs *ChatServer) Prompts() []string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]string{}, cs.prompts...)
}

// PromptContains reports whether prompt quotes the given question
func PromptContains(prompt, question string) bool {
	return strings.Contains(prompt, question)
}
