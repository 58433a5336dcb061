package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/linkdrop/linkdrop/internal/models"
	"github.com/linkdrop/linkdrop/internal/orchestrator"
)

func newInfoCommand(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info <url>",
		Short: "Show the title and available formats of a media link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, err := orchestrator.New(orchestrator.Options{Client: a.client})
			if err != nil {
				return err
			}
			info, err := orch.Analyze(cmd.Context(), args[0])
			if err != nil {
				return failure(orch, err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			return printInfo(cmd.OutOrStdout(), info)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the media info as JSON")
	return cmd
}

func printInfo(out io.Writer, info *models.MediaDescriptor) error {
	fmt.Fprintf(out, "Title:    %s\n", info.Title)
	fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	if info.Uploader != "" {
		fmt.Fprintf(out, "Uploader: %s\n", info.Uploader)
	}
	if d := info.DurationLabel(); d != "" {
		fmt.Fprintf(out, "Duration: %s\n", d)
	}
	if info.ViewCount != nil {
		fmt.Fprintf(out, "Views:    %s\n", humanize.Comma(*info.ViewCount))
	}
	if len(info.Formats) == 0 {
		fmt.Fprintln(out, "No downloadable formats")
		return nil
	}

	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXT\tQUALITY\tSIZE")
	for _, f := range info.Formats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.ID, f.Ext, f.Quality, f.SizeLabel())
	}
	return tw.Flush()
}

// failure prefers the message the orchestrator derived from err, which carries
// the backend's own explanation when there is one.
func failure(orch *orchestrator.Orchestrator, err error) error {
	if msg := orch.Snapshot().Error; msg != "" {
		return errors.New(msg)
	}
	return err
}
