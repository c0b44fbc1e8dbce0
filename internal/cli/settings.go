package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"codeberg.org/snonux/surveytranslate/internal/logger"
	"codeberg.org/snonux/surveytranslate/internal/server"
	"codeberg.org/snonux/surveytranslate/internal/translation"
)

// Settings is the resolved configuration of a server run
type Settings struct {
	Server      server.Config
	Translation translation.Config
	Log         logger.Config

	BreakerFailures uint32
	BreakerCooldown time.Duration
	Retention       time.Duration
}

// LoadSettings resolves flags, environment, config file and defaults into
// typed settings. InitConfig must have run before.
func LoadSettings() (*Settings, error) {
	level, err := logger.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(viper.GetString("log.format"))
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("invalid log format %q", format)
	}

	provider := strings.ToLower(viper.GetString("api.provider"))
	if viper.GetBool("test_mode") {
		provider = "test"
	}
	switch provider {
	case "deepseek", "openai", "gemini", "test":
	default:
		return nil, fmt.Errorf("unknown translation provider: %s", provider)
	}

	failures := viper.GetInt("api.breaker_failures")
	if failures < 0 {
		return nil, fmt.Errorf("api.breaker_failures must not be negative, got %d", failures)
	}

	settings := &Settings{
		Server: server.Config{
			Addr:         viper.GetString("server.addr"),
			MaxFileSize:  viper.GetInt64("upload.max_file_size"),
			MaxQuestions: viper.GetInt("upload.max_questions"),
			PreviewRows:  viper.GetInt("upload.preview_rows"),
			APITimeout:   viper.GetDuration("api.timeout"),
		},
		Translation: translation.Config{
			Provider:    provider,
			APIKey:      GetAPIKey(provider),
			BaseURL:     viper.GetString("api.base_url"),
			Model:       viper.GetString("api.model"),
			Temperature: float32(viper.GetFloat64("api.temperature")),
		},
		Log: logger.Config{
			Level:  level,
			Format: format,
		},
		BreakerFailures: uint32(failures),
		BreakerCooldown: viper.GetDuration("api.breaker_cooldown"),
		Retention:       viper.GetDuration("progress.retention"),
	}

	return settings, nil
}
