package cmd

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/gosuri/uilive"
	"github.com/spf13/cobra"

	"github.com/linkdrop/linkdrop/internal/orchestrator"
)

func newDownloadCommand(a *app) *cobra.Command {
	var (
		formatID   string
		dir        string
		standalone bool
	)

	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a media link",
		Long: `Download resolves the link, picks the requested format (the first one
by default) and saves it to the download directory. In standalone mode the
download is handed to the system browser instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if dir == "" {
				dir = a.cfg.DownloadDir
			}

			hist, err := a.openHistory()
			if err != nil {
				return err
			}
			defer func() { _ = hist.Close() }()

			writer := uilive.New()
			writer.Out = out
			label := "Downloading"

			orch, err := orchestrator.New(orchestrator.Options{
				Client:          a.client,
				History:         hist,
				DisplayMode:     orchestrator.ResolveDisplayMode(a.cfg.DisplayMode, standalone),
				DownloadDir:     dir,
				OpenURL:         a.openURL,
				CopyToClipboard: a.copyText,
				OnProgress: func(p orchestrator.Progress) {
					fmt.Fprintln(writer, progressLine(label, p))
				},
			})
			if err != nil {
				return err
			}

			info, err := orch.Analyze(cmd.Context(), args[0])
			if err != nil {
				return failure(orch, err)
			}
			if formatID != "" {
				if err := orch.Select(formatID); err != nil {
					return err
				}
			}
			snap := orch.Snapshot()
			if format, ok := info.FindFormat(snap.FormatID); ok {
				label = "Downloading " + orchestrator.SanitizeFilename(info.Title, format.Ext)
			}

			writer.Start()
			result, err := orch.Download(cmd.Context())
			writer.Stop()
			if err != nil {
				return failure(orch, err)
			}
			printResult(out, result)
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatID, "format", "f", "", "Format id to download (see linkdrop info)")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Directory to save into (overrides download_dir)")
	cmd.Flags().BoolVar(&standalone, "standalone", false, "Open the download in the system browser instead of saving it here")
	return cmd
}

func progressLine(label string, p orchestrator.Progress) string {
	if p.Indeterminate() {
		return fmt.Sprintf("%s: %s", label, humanize.Bytes(uint64(p.Written)))
	}
	return fmt.Sprintf("%s: %3d%% (%s / %s)", label, p.Percent, humanize.Bytes(uint64(p.Written)), humanize.Bytes(uint64(p.Total)))
}

func printResult(out io.Writer, result *orchestrator.Result) {
	switch {
	case result.Delivery == orchestrator.DeliveryStream:
		fmt.Fprintf(out, "Saved %s to %s\n", humanize.Bytes(uint64(result.Bytes)), result.Path)
	case result.Copied:
		fmt.Fprintf(out, "Could not open a browser. Download link copied to clipboard:\n%s\n", result.Link)
	default:
		fmt.Fprintf(out, "Opened download in browser:\n%s\n", result.Link)
	}
}
