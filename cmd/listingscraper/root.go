package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"listingscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	quiet      bool
)

// rootCmd scrapes when called with --url and --name and no subcommand
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listingscraper",
		Short: "Save a real estate listing page, its details and its photos",
		Long: `listingscraper fetches a single listing page (a URL or a saved HTML file),
pulls out the photo links and listing details, and writes everything to disk:

  <output>/<name>/page.html
  <output>/<name>/info.txt
  <output>/<name>/images/<name>-<n>.<ext>

Compass and Zillow pages are recognised from the source. Photos are fetched
one at a time with a pause in between, and files already on disk are skipped,
so an interrupted run can simply be started again.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("url") && !cmd.Flags().Changed("name") {
				return cmd.Help()
			}
			return runScrape(cmd, args)
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.listingscraper.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file, rotated")
	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	cmd.SetVersionTemplate(`listingscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	cmd.CompletionOptions.DisableDefaultCmd = true

	return cmd
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "listingscraper %s (commit: %s, built: %s) %s %s/%s\n",
			version, gitCommit, buildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the command tree and returns the process exit code
func Execute(ctx context.Context) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	ui.NewPrinter(os.Stderr, false).PrintError("Error", err)
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
