// Package cmd defines and implements the CLI commands for the sitegrab
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitegrab/sitegrab/pkg/config"
)

var (
	cfgFile  string
	verbose  bool
	logLevel string
)

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitegrab",
		Short: "Crawl a website and extract its links, text, contacts, and assets.",
		Long: `sitegrab crawls a website starting from a seed URL, staying within
the seed's domain, and extracts links, images, visible text, contact
details, metadata, forms, and page resources. It can optionally download
images, scripts, stylesheets, and raw HTML to a local folder, and export
the collected results as JSON, CSV, TXT, or HTML reports.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.Init(cfgFile)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sitegrab.yaml)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "human-friendly console logging")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	cmd.AddCommand(newCrawlCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
