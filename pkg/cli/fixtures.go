package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newFixturesCmd(a *app) *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "fixtures",
		Short: "Print the customer fixture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.records(file)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEMAIL\tTOTAL SPENT\tTAGS\t")
			var total int64
			for _, rec := range records {
				total += rec.Cents()
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", rec.Name, rec.Email, amountOf(rec), strings.Join(rec.Tags, ","))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%s customers, %s total\n", humanize.Comma(int64(len(records))), formatAmount(total))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON fixture file (or SEED_FIXTURE_FILE env)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print raw JSON")

	return cmd
}
