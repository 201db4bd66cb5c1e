package commands

import (
	"context"
	"database/sql"
	"os"

	"quizhub/internal/models"
	"quizhub/internal/observability"
	contextutils "quizhub/internal/utils"

	"github.com/lib/pq"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML layout for seeding the resource catalog
type seedFile struct {
	Resources []models.Resource `yaml:"resources"`
}

// SeedCommands returns the catalog seeding commands
func SeedCommands(logger *observability.Logger, db *sql.DB) *cobra.Command {
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed catalog data",
		Long: `Seed catalog data for the quizhub platform.

Available commands:
  resources - Load learning resources from a YAML file`,
	}

	seedCmd.AddCommand(seedResourcesCmd(logger, db))

	return seedCmd
}

// seedResourcesCmd returns the resources seeding command
func seedResourcesCmd(logger *observability.Logger, db *sql.DB) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Load learning resources from a YAML file",
		Long: `Load learning resources from a YAML file into the catalog.

Resources are matched by title: existing titles are updated in place,
new titles are inserted. Keywords drive the content recommender, so
every resource should carry at least one keyword.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx := context.Background()

			data, err := os.ReadFile(file)
			if err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to read seed file: %v", err)
			}

			var seed seedFile
			if err := yaml.Unmarshal(data, &seed); err != nil {
				return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "failed to parse seed file: %v", err)
			}

			if len(seed.Resources) == 0 {
				logger.Info(ctx, "Seed file contains no resources", map[string]interface{}{"file": file})
				return nil
			}

			inserted := 0
			for _, resource := range seed.Resources {
				if resource.Title == "" {
					return contextutils.WrapErrorf(contextutils.ErrInvalidInput, "resource with empty title in seed file")
				}
				resourceType := resource.ResourceType
				if resourceType == "" {
					resourceType = models.ResourceTypeLink
				}

				_, err := db.ExecContext(ctx, `
					INSERT INTO resources (title, description, url, resource_type, keywords, rating)
					VALUES ($1, $2, $3, $4, $5, $6)
					ON CONFLICT (title) DO UPDATE SET
						description = EXCLUDED.description,
						url = EXCLUDED.url,
						resource_type = EXCLUDED.resource_type,
						keywords = EXCLUDED.keywords,
						rating = EXCLUDED.rating`,
					resource.Title, resource.Description, resource.URL,
					resourceType, pq.Array(resource.Keywords), resource.Rating,
				)
				if err != nil {
					logger.Error(ctx, "Failed to seed resource", err, map[string]interface{}{"title": resource.Title})
					return contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to seed resource %q: %v", resource.Title, err)
				}
				inserted++
			}

			logger.Info(ctx, "Resource seeding completed", map[string]interface{}{
				"file":  file,
				"count": inserted,
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "resources.yaml", "Path to the YAML seed file")

	return cmd
}
