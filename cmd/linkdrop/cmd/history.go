package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCommand(a *app) *cobra.Command {
	var (
		clearAll bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent downloads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			hist, err := a.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			if clearAll {
				if err := hist.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(out, "History cleared")
				return nil
			}

			records := hist.List()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No downloads yet")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tPLATFORM\tTITLE\tFILE")
			for _, rec := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", humanize.Time(rec.CompletedAt()), rec.Platform, rec.Title, rec.Filename)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&clearAll, "clear", false, "Delete all history records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}
