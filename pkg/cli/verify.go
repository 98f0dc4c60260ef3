package cli

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newVerifyCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that the target holds exactly the customer fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.records(file)
			if err != nil {
				return err
			}

			s, err := a.newSeeder(a.cfg.Target)
			if err != nil {
				return err
			}

			ctx, cancel := a.withTimeout(cmd.Context())
			defer cancel()

			report, err := s.Verify(ctx, records)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target:      %s\n", report.Target)
			fmt.Fprintf(out, "Documents:   %s (expected %s)\n", humanize.Comma(report.Count), humanize.Comma(int64(report.Expected)))
			fmt.Fprintf(out, "Total spent: %s (expected %s)\n", formatAmount(report.TotalSpentCents), formatAmount(report.ExpectedCents))
			fmt.Fprintf(out, "Matched:     %d/%d\n", report.Matched, report.Expected)
			for _, m := range report.Mismatches {
				if m.Actual == nil {
					fmt.Fprintf(out, "  missing  %s\n", m.Expected.Email)
					continue
				}
				fmt.Fprintf(out, "  differs  %s: got %s %s [%s]\n",
					m.Expected.Email, m.Actual.Name, amountOf(*m.Actual), strings.Join(m.Actual.Tags, ","))
			}

			if !report.OK() {
				return fmt.Errorf("verification failed for %s: %d documents, %d mismatches",
					report.Target, report.Count, len(report.Mismatches))
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON fixture file to compare against (or SEED_FIXTURE_FILE env)")

	return cmd
}
