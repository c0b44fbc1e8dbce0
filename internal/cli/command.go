package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codeberg.org/snonux/surveytranslate/internal"
)

// EnvPrefix prefixes every environment variable read through viper
const EnvPrefix = "SURVEYTRANSLATE"

// CreateRootCommand creates and configures the root cobra command
func CreateRootCommand(flags *Flags) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "surveytranslate",
		Short: "Survey Question Translator",
		Long: `surveytranslate serves a web page for translating survey questions.

Upload an Excel file with one question per row in the first column. Every
question is sent to the translation API, which detects its language and
translates it to English. Progress is streamed to the browser and the
results can be downloaded as an Excel file.

Examples:
  surveytranslate                       # Serve on :8080 using DeepSeek
  surveytranslate --addr :9000          # Serve on another port
  surveytranslate --test-mode           # Serve without calling any API
  surveytranslate --list-models         # List chat models for the API key`,
		Args:          cobra.NoArgs,
		Version:       internal.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up flags
	setupFlags(rootCmd, flags)

	return rootCmd
}

func setupFlags(cmd *cobra.Command, flags *Flags) {
	// Global flags
	cmd.PersistentFlags().StringVar(&flags.CfgFile, "config", "", "config file (default is $HOME/.surveytranslate.yaml)")
	cmd.PersistentFlags().StringVar(&flags.EnvFile, "env-file", flags.EnvFile, "dotenv file to load before reading the environment")

	// Local flags
	cmd.Flags().StringVar(&flags.Addr, "addr", flags.Addr, "HTTP listen address")
	cmd.Flags().BoolVar(&flags.ListModels, "list-models", false, "List available chat models for the current API key")
	cmd.Flags().BoolVar(&flags.TestMode, "test-mode", false, "Answer with mock translations instead of calling the API")

	// API flags
	cmd.Flags().StringVar(&flags.Provider, "provider", flags.Provider, "Translation provider: deepseek, openai, gemini or test")
	cmd.Flags().StringVar(&flags.Model, "model", "", "Chat model (default depends on the provider)")
	cmd.Flags().StringVar(&flags.BaseURL, "base-url", "", "API base URL (default depends on the provider)")

	// Logging flags
	cmd.Flags().StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&flags.LogFormat, "log-format", flags.LogFormat, "Log format: text or json")

	// Bind flags to viper
	bindFlagsToViper(cmd)
}

func bindFlagsToViper(cmd *cobra.Command) {
	viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	viper.BindPFlag("test_mode", cmd.Flags().Lookup("test-mode"))
	viper.BindPFlag("api.provider", cmd.Flags().Lookup("provider"))
	viper.BindPFlag("api.model", cmd.Flags().Lookup("model"))
	viper.BindPFlag("api.base_url", cmd.Flags().Lookup("base-url"))
	viper.BindPFlag("log.level", cmd.Flags().Lookup("log-level"))
	viper.BindPFlag("log.format", cmd.Flags().Lookup("log-format"))
}

func setDefaults() {
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("upload.max_file_size", 2*1024*1024)
	viper.SetDefault("upload.max_questions", 1000)
	viper.SetDefault("upload.preview_rows", 5)
	viper.SetDefault("api.provider", "deepseek")
	viper.SetDefault("api.temperature", 0.1)
	viper.SetDefault("api.timeout", 30*time.Second)
	viper.SetDefault("api.breaker_failures", 5)
	viper.SetDefault("api.breaker_cooldown", 30*time.Second)
	viper.SetDefault("progress.retention", 10*time.Minute)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("test_mode", false)
}

// InitConfig loads the dotenv file and initializes viper configuration
func InitConfig(cfgFile, envFile string) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", envFile, err)
		}
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}

		// Search config in home and working directory with name ".surveytranslate" (without extension)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".surveytranslate")
	}

	setDefaults()

	// Environment variables
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Unprefixed names kept for existing deployments. DEEPSEEK_API_KEY is
	// read by GetAPIKey for the deepseek provider only.
	viper.BindEnv("api.key", EnvPrefix+"_API_KEY")
	viper.BindEnv("upload.max_file_size", EnvPrefix+"_UPLOAD_MAX_FILE_SIZE", "MAX_FILE_SIZE")
	viper.BindEnv("upload.max_questions", EnvPrefix+"_UPLOAD_MAX_QUESTIONS", "MAX_QUESTIONS")
	viper.BindEnv("test_mode", EnvPrefix+"_TEST_MODE", "TEST_MODE")

	// Read config file
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetAPIKey retrieves the API key for the provider from environment or config
func GetAPIKey(provider string) string {
	// First check the provider's own environment variable
	var envNames []string
	switch provider {
	case "openai":
		envNames = []string{"OPENAI_API_KEY"}
	case "gemini":
		envNames = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	default:
		envNames = []string{"DEEPSEEK_API_KEY"}
	}
	for _, name := range envNames {
		if key := os.Getenv(name); key != "" {
			return key
		}
	}

	// Then check config file
	return viper.GetString("api.key")
}
