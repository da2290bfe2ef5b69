package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/ledger/pkg/log"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeForErr(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "ledgerctl drives a ledger transaction session from the command line",
	Long: `ledgerctl is a thin controller over the ledger coordinator: a session's
staged writes accumulate across "save"/"delete" invocations in a local
state file, and "commit"/"rollback" replay them through the two-phase
commit protocol exactly as any in-process caller would.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"ledgerctl version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().String("config", "ledger.json", "Path to the provider configuration document")
	rootCmd.PersistentFlags().String("state", ".ledgerctl-session.json", "Path to the pending session's local state file")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(beginCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(rollbackCmd)
	rootCmd.AddCommand(serveCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
}
