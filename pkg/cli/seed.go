package cli

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/supporttools/dbseed/pkg/config"
	"github.com/supporttools/dbseed/pkg/fixtures"
	"github.com/supporttools/dbseed/pkg/metrics"
	"github.com/supporttools/dbseed/pkg/seeder"
)

func newSeedCmd(a *app) *cobra.Command {
	var (
		file        string
		dryRun      bool
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the customer fixture into the target",
		Long: `Insert the customer fixture into the target in a single batch.

Seeding is not idempotent: running it twice against the same collection
stores every record twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.records(file)
			if err != nil {
				return err
			}

			target := a.cfg.Target
			if dryRun {
				a.logger.Info("dry run, using in-memory target", "configured", target.Type)
				target.Type = config.TargetMemory
			}

			recorder := metrics.NewRecorder()
			s, err := a.newSeeder(target, seeder.WithMetrics(recorder))
			if err != nil {
				return err
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			res, seedErr := s.Seed(ctx, records)

			if metricsFile == "" {
				metricsFile = a.cfg.Metrics.TextfilePath
			}
			if metricsFile != "" {
				if err := recorder.WriteTextfile(metricsFile); err != nil {
					a.logger.Warn("failed to write metrics", "err", err)
				}
			}

			if seedErr != nil {
				return seedErr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Inserted %s customers into %s (%s) totalling %s in %s\n",
				humanize.Comma(int64(res.Inserted)),
				res.Target,
				target.Type,
				formatAmount(res.TotalSpentCents),
				res.Duration.Round(time.Millisecond),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON fixture file (or SEED_FIXTURE_FILE env)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Seed an in-memory target instead of the configured one")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write run metrics in textfile collector format (or SEED_METRICS_TEXTFILE env)")

	return cmd
}

// formatAmount renders cents with thousands separators, e.g. 705750 -> "7,057.50"
func formatAmount(cents int64) string {
	return humanize.FormatFloat("#,###.##", float64(cents)/100)
}

// amountOf renders a record's TotalSpent the same way
func amountOf(rec fixtures.CustomerRecord) string {
	return formatAmount(rec.Cents())
}
