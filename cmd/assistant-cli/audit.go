package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/app"
	"github.com/spherical-ai/spherical/libs/shop-assistant/internal/storage"
)

func newAuditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show recent audit events stored by the db sink",
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

			records, err := a.Store.RecentAuditRecords(ctx, limit)
			if err != nil {
				return err
			}

			if outputJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(records)
			}
			if len(records) == 0 {
				ui.Info("No audit events recorded (is audit.sink set to db?)")
				return nil
			}
			printAuditTable(cmd.OutOrStdout(), records)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	return cmd
}

func printAuditTable(out io.Writer, records []storage.AuditRecord) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tINTENT\tOUTCOME\tSTRATEGY\tRESULTS\tLATENCY\tUSER")
	for _, r := range records {
		strategy := r.Strategy
		if r.Degraded {
			strategy += " (degraded)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%dms\t%s\n",
			r.OccurredAt.UTC().Format("2006-01-02 15:04:05"),
			r.Intent, r.Outcome, strategy, r.ResultCount, r.LatencyMs, r.UserID)
	}
	tw.Flush()
}
