package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show script run statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runStats(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.svc.Stats()
	fmt.Fprintf(out, "Total scripts:    %d\n", s.TotalScripts)
	fmt.Fprintf(out, "Successful runs:  %s\n", color.GreenString("%d", s.SuccessfulRuns))
	fmt.Fprintf(out, "Failed runs:      %s\n", color.RedString("%d", s.FailedRuns))
	fmt.Fprintf(out, "Total executions: %d\n", s.TotalRuns)
	return nil
}
