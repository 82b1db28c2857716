package daemon

import (
	"fmt"

	"github.com/cloo-solutions/finsight/internal/cli"
	"github.com/cloo-solutions/finsight/internal/config"
	"github.com/cloo-solutions/finsight/internal/database"
	"github.com/spf13/cobra"
)

func MigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply pending migrations to FINSIGHT_DATABASE_URL. serve does this on startup unless --no-migrate is set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if !cfg.HasDatabase() {
				return fmt.Errorf("FINSIGHT_DATABASE_URL is not set")
			}
			source, _ := cmd.Flags().GetString("source")
			return database.Migrate(cfg.DatabaseURL, source)
		},
	}

	cmd.Flags().String("source", database.DefaultMigrationsSource, "Migration source URL")

	cli.SetEnv(cmd, "FINSIGHT_DATABASE_URL")
	return cmd
}
