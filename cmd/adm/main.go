// Package main provides the main entry point for the quizhub admin CLI tool.
package main

import (
	"context"
	"fmt"
	"os"

	"quizhub/cmd/adm/commands"
	"quizhub/internal/config"
	"quizhub/internal/database"
	"quizhub/internal/observability"

	"github.com/spf13/cobra"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override log level for admin tool
	cfg.Server.LogLevel = "error"

	// Disable all OpenTelemetry features for admin CLI to avoid connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "quizhub-admin")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		os.Exit(1)
	}

	// Initialize database manager and connection (no migrations on connect;
	// the migrate subcommand runs them explicitly)
	dbManager := database.NewManager(logger)
	db, err := dbManager.InitDBWithoutMigrations(cfg.Database)
	if err != nil {
		logger.Error(ctx, "Failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn(ctx, "Warning: failed to close database connection", map[string]interface{}{"error": err.Error()})
		}
	}()

	// Create the root command
	rootCmd := &cobra.Command{
		Use:   "adm",
		Short: "QuizHub Administration Tool",
		Long: `QuizHub Administration Tool

A CLI tool for administering the quizhub platform.
Provides commands for database operations and resource catalog management.`,

		Run: func(cmd *cobra.Command, _ []string) {
			// Show help if no subcommand provided
			if err := cmd.Help(); err != nil {
				fmt.Printf("Error showing help: %v\n", err)
			}
		},
	}

	rootCmd.AddCommand(commands.DatabaseCommands(dbManager, logger, db))
	rootCmd.AddCommand(commands.SeedCommands(logger, db))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
