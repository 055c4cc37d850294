package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"go-token-auth/internal/database"
)

func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			cmd.Println("Running migrations...")
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
			}

			cmd.Println("Migrations completed successfully")
			return nil
		},
	}
}
