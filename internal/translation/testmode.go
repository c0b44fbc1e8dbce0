package translation

import (
	"context"

	"codeberg.org/snonux/surveytranslate/internal/survey"
)

// TestModePrefix marks translations produced without calling any API
const TestModePrefix = "[TEST MODE] "

// TestModeProvider answers locally so the UI can be exercised without a key
type TestModeProvider struct{}

// NewTestModeProvider creates the local provider
func NewTestModeProvider() *TestModeProvider {
	return &TestModeProvider{}
}

// Translate echoes the text back as English with confidence 95
func (p *TestModeProvider) Translate(ctx context.Context, text string) (survey.Translation, error) {
	if err := ctx.Err(); err != nil {
		return survey.Translation{}, err
	}
	return survey.Translation{
		Language:   "English",
		Confidence: 95,
		English:    TestModePrefix + text,
	}, nil
}

func (p *TestModeProvider) Name() string { return "test" }

func (p *TestModeProvider) IsAvailable() error { return nil }
