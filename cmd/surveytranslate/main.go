package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"codeberg.org/snonux/surveytranslate/internal/cli"
	"codeberg.org/snonux/surveytranslate/internal/logger"
	"codeberg.org/snonux/surveytranslate/internal/models"
	"codeberg.org/snonux/surveytranslate/internal/progress"
	"codeberg.org/snonux/surveytranslate/internal/server"
	"codeberg.org/snonux/surveytranslate/internal/translation"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile, flags.EnvFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runCommand(cmd *cobra.Command, flags *cli.Flags) error {
	settings, err := cli.LoadSettings()
	if err != nil {
		return err
	}

	log := logger.New(settings.Log, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Handle --list-models flag
	if flags.ListModels {
		baseURL := settings.Translation.BaseURL
		if baseURL == "" && settings.Translation.Provider == "deepseek" {
			baseURL = translation.DefaultDeepSeekURL
		}
		lister, err := models.ForProvider(ctx, settings.Translation.Provider, settings.Translation.APIKey, baseURL)
		if err != nil {
			return err
		}
		return models.Print(ctx, lister, cmd.OutOrStdout())
	}

	provider, err := translation.NewProvider(&settings.Translation)
	if err != nil {
		return fmt.Errorf("failed to create translation provider: %w", err)
	}
	if settings.Translation.Provider == "test" {
		log.Warn("test mode enabled, questions are not sent to any API")
	}
	provider = translation.NewBreaker(provider, settings.BreakerFailures, settings.BreakerCooldown, log)

	hub := progress.NewHub(settings.Retention)

	srv, err := server.New(settings.Server, provider, hub, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.ListenAndServe(ctx)
}
