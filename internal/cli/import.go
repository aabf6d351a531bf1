package cli

import (
	"fmt"

	"clip-trivia-service/internal/config"
	"clip-trivia-service/internal/infra/file"
	"clip-trivia-service/internal/infra/postgres"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewImportCmd loads a catalog CSV into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	var csvPath string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a question catalog CSV into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg.Log.Level, cfg.Log.Pretty)

			path := csvPath
			if path == "" {
				path = cfg.Catalog.CSVPath
			}
			if path == "" {
				return fmt.Errorf("catalog csv path not configured")
			}
			loader, err := file.NewCSVLoader(path, cfg.MediaLayout())
			if err != nil {
				return err
			}

			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := postgres.ImportCatalog(cmd.Context(), db, loader.Rows())
			if err != nil {
				return err
			}
			log.Info().Int("questions", n).Str("path", path).Msg("catalog imported")
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "catalog CSV (defaults to catalog.csv_path)")
	return cmd
}
