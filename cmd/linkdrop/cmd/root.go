// Package cmd implements the linkdrop command line client.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/atotto/clipboard"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/linkdrop/linkdrop/internal/client"
	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/history"
)

// app carries what every subcommand needs. The browser and clipboard hooks are
// replaced in tests.
type app struct {
	cfg       *config.Config
	serverURL string
	client    client.Client

	openURL  func(string) error
	copyText func(string) error
}

// Execute runs the root command and reports any error on stderr.
func Execute(ctx context.Context, cfg *config.Config) error {
	root := newRootCommand(newApp(cfg))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func newApp(cfg *config.Config) *app {
	return &app{
		cfg:      cfg,
		openURL:  browser.OpenURL,
		copyText: clipboard.WriteAll,
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "linkdrop",
		Short: "Download media from a pasted link through a LinkDrop server",
		Long: `LinkDrop resolves a media link on a LinkDrop server, lists the
available formats and downloads the one you pick.`,
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.connect,
		PersistentPostRunE: a.disconnect,
	}
	root.PersistentFlags().StringVar(&a.serverURL, "server", "", "LinkDrop server URL (overrides server_url)")

	root.AddCommand(newInfoCommand(a), newDownloadCommand(a), newHistoryCommand(a))
	return root
}

func (a *app) connect(cmd *cobra.Command, _ []string) error {
	if a.serverURL != "" {
		a.cfg.ServerURL = a.serverURL
	}

	c, err := client.NewClient(a.cfg, a.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", a.cfg.ServerURL, err)
	}
	a.client = c

	logger := config.GetLogger()
	logger.Debug().Str("server", c.Origin()).Str("command", cmd.Name()).Msg("Using LinkDrop server")
	return nil
}

func (a *app) disconnect(*cobra.Command, []string) error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

func (a *app) openHistory() (*history.History, error) {
	return history.Open(a.cfg)
}
