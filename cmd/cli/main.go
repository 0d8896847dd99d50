package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath  string
	serverURL   string
	noAutoStart bool
	rootCmd     = &cobra.Command{
		Use:   "archivist",
		Short: "Archivist - resumable file archiver for Salesforce",
		Long: `Downloads ContentVersion and Attachment bodies listed in an export's metadata,
validates them against server checksums and sizes, and resumes where a previous run stopped.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// errRunFailed marks a run that finished with item errors; the summary is already printed
var errRunFailed = errors.New("run failed")

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default ./configs/config.yaml or $HOME/.archivist/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "Server URL for the runs commands")
	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-auto-start", false, "Don't auto-start server if not running")

	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errRunFailed) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
