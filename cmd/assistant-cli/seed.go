package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/app"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

func newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Apply the schema and load fixtures",
		Long: `Load users, products, orders and reviews from a YAML fixtures file.
The schema is applied first. Existing rows with the same ids cause an error.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			fx, err := storage.LoadFixtures(file)
			if err != nil {
				return err
			}

			a, err := app.Build(ctx, cfg, logger, app.Options{SkipRateLimit: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Migrate(ctx); err != nil {
				return err
			}

			ui.Step("Seeding %s", file)
			bar := ui.ProgressBar("records", int64(fx.Len()))
			err = a.Seed(ctx, fx, bar.Increment)
			bar.Done()
			if err != nil {
				ui.Error("Seed failed: %v", err)
				return err
			}

			if outputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{
					"users":    len(fx.Users),
					"products": len(fx.Products),
					"orders":   len(fx.Orders),
					"reviews":  len(fx.Reviews),
				})
			}
			ui.Success("Seeded %d users, %d products, %d orders, %d reviews",
				len(fx.Users), len(fx.Products), len(fx.Orders), len(fx.Reviews))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "configs/seed.yaml", "fixtures file")
	return cmd
}
