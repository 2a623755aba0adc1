package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	var noColor bool

	cmd := &cobra.Command{
		Use:   "sy",
		Short: "Scriptyard — Selenium script manager",
		Long:  "Scriptyard stores browser automation scripts, simulates their runs and tracks run statistics.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupColor(cmd.OutOrStdout(), noColor)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable coloured output")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newScriptCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newAuditCmd())
	cmd.AddCommand(newTemplateCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sy %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
