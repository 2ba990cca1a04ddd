package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			a, err := app.Build(ctx, cfg, logger, app.Options{SkipRateLimit: true})
			if err != nil {
				return err
			}
			defer a.Close()

			stop := ui.Spinner(fmt.Sprintf("Applying schema (%s)", cfg.Database.Driver))
			err = a.Migrate(ctx)
			stop()
			if err != nil {
				ui.Error("Migration failed: %v", err)
				return err
			}

			if outputJSON {
				fmt.Fprintf(cmd.OutOrStdout(), "{\"migrated\":true,\"driver\":%q}\n", cfg.Database.Driver)
				return nil
			}
			ui.Success("Schema is up to date")
			return nil
		},
	}
}
