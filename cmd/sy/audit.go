package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Web accessibility audit commands",
	}

	cmd.AddCommand(newAuditScanCmd())
	cmd.AddCommand(newAuditListCmd())
	cmd.AddCommand(newAuditStatsCmd())
	return cmd
}

func newAuditScanCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scan <url>",
		Short: "Create and run an accessibility scan for a URL",
		Long: `Generates a WCAG audit script for the URL, stores it as a script named
"Accessibility Scan - <url>" and quick-runs it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditScan(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runAuditScan(cmd *cobra.Command, configPath, url string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Fprintf(out, "Starting accessibility scan for %s\n", url)
	s, err := a.auditor.Scan(contextOf(cmd), url)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %s (script %s)\n", s.Name, scanBadge(*s), s.ID)
	return nil
}

func newAuditListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent accessibility scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditList(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runAuditList(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	scans := a.auditor.Recent()
	if len(scans) == 0 {
		fmt.Fprintln(out, "No accessibility scans found. Run 'sy audit scan <url>' to start one.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tLAST RUN")
	for _, s := range scans {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, truncate(s.Name, 60), scanBadge(s), formatLastRun(s.LastRun, now))
	}
	return w.Flush()
}

func newAuditStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show accessibility scan statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditStats(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runAuditStats(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	s := a.auditor.Stats()
	fmt.Fprintf(out, "Total scans:     %d\n", s.TotalScans)
	fmt.Fprintf(out, "Completed scans: %d\n", s.CompletedScans)
	fmt.Fprintf(out, "Failed scans:    %d\n", s.FailedScans)
	fmt.Fprintf(out, "Average score:   %d/100\n", s.AverageScore)
	return nil
}
