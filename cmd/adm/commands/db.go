// Package commands provides CLI commands for the admin tool
package commands

import (
	"context"
	"database/sql"

	"quizhub/internal/database"
	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"github.com/spf13/cobra"
)

// DatabaseCommands returns the database management commands
func DatabaseCommands(dbManager *database.Manager, logger *observability.Logger, db *sql.DB) *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
		Long: `Database management commands for the quizhub platform.

Available commands:
  migrate   - Apply the application schema and pending migrations
  stats     - Show database statistics
  reset     - Drop all application tables`,
	}

	dbCmd.AddCommand(migrateCmd(dbManager, logger, db))
	dbCmd.AddCommand(statsCmd(logger, db))
	dbCmd.AddCommand(resetCmd(logger, db))

	return dbCmd
}

// migrateCmd returns the migrate command
func migrateCmd(dbManager *database.Manager, logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the application schema and pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()
			logger.Info(ctx, "Running database migrations", map[string]interface{}{})

			if err := dbManager.RunMigrations(db); err != nil {
				logger.Error(ctx, "Migrations failed", err, map[string]interface{}{})
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "migrations failed: %v", err)
			}

			logger.Info(ctx, "Migrations applied successfully", map[string]interface{}{})
			return nil
		},
	}
}

// statsCmd returns the stats command
func statsCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		Long:  `Show database statistics including user, quiz, resource, and recommendation counts.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			stats := map[string]interface{}{}
			for _, table := range []string{"users", "subjects", "quizzes", "questions", "resources", "quiz_attempts", "recommendations"} {
				var count int
				if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
					logger.Error(ctx, "Failed to count table", err, map[string]interface{}{"table": table})
					return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to count %s: %v", table, err)
				}
				stats[table] = count
			}

			logger.Info(ctx, "Database statistics", stats)
			return nil
		},
	}
}

// resetCmd returns the reset command
func resetCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop all application tables",
		Long: `Drop all application tables.

This is destructive and irreversible. Requires the --confirm flag.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			if !confirm {
				return contextutils.ErrorWithContextf("refusing to reset database without --confirm")
			}

			logger.Info(ctx, "Dropping all application tables", map[string]interface{}{})

			// Order matters: children before parents
			tables := []string{
				"recommendations", "user_answers", "quiz_attempts",
				"options", "questions", "quizzes", "subjects",
				"resources", "users", "schema_migrations",
			}
			for _, table := range tables {
				if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
					logger.Error(ctx, "Failed to drop table", err, map[string]interface{}{"table": table})
					return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to drop %s: %v", table, err)
				}
			}

			logger.Info(ctx, "Database reset completed", map[string]interface{}{})
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Confirm the destructive reset")

	return cmd
}
