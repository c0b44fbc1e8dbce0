// Package cli provides command-line interface setup and configuration
// for the surveytranslate server. It handles flag parsing, command
// creation, and configuration management using cobra and viper, with
// .env files loaded through godotenv.
package cli
