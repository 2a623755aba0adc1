package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/scriptyard/internal/importer"
	"github.com/zulandar/scriptyard/internal/models"
	"github.com/zulandar/scriptyard/internal/store"
	"github.com/zulandar/scriptyard/internal/templates"
)

func newScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "script",
		Aliases: []string{"scripts"},
		Short:   "Script management commands",
	}

	cmd.AddCommand(newScriptAddCmd())
	cmd.AddCommand(newScriptListCmd())
	cmd.AddCommand(newScriptShowCmd())
	cmd.AddCommand(newScriptEditCmd())
	cmd.AddCommand(newScriptRmCmd())
	cmd.AddCommand(newScriptRunCmd())
	cmd.AddCommand(newScriptSimulateCmd())
	cmd.AddCommand(newScriptImportCmd())
	return cmd
}

func newScriptAddCmd() *cobra.Command {
	var (
		configPath  string
		description string
		codeFile    string
		template    string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a new script",
		Long: `Creates a script in the not-run state. The body comes from --code-file,
from a starter --template, or is left empty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptAdd(cmd, configPath, args[0], description, codeFile, template)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&description, "description", "d", "", "script description")
	cmd.Flags().StringVarP(&codeFile, "code-file", "f", "", "read the script body from this file")
	cmd.Flags().StringVarP(&template, "template", "t", "", "start from a template (see 'sy template list')")
	cmd.MarkFlagsMutuallyExclusive("code-file", "template")
	return cmd
}

func runScriptAdd(cmd *cobra.Command, configPath, name, description, codeFile, template string) error {
	out := cmd.OutOrStdout()

	code, err := readCode(codeFile)
	if err != nil {
		return err
	}
	if template != "" {
		t, ok := templates.Get(template)
		if !ok {
			return fmt.Errorf("unknown template %q", template)
		}
		code = t.Code
	}

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.AddScript(contextOf(cmd), name, description, code)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created script %s (%s)\n", s.ID, s.Name)
	return nil
}

func newScriptListCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List scripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptList(cmd, configPath)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runScriptList(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	list := a.svc.List()
	if len(list) == 0 {
		fmt.Fprintln(out, "No scripts yet. Create one with 'sy script add'.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSTATUS\tRUNS\tLAST RUN")
	for _, s := range list {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			s.ID, truncate(s.Name, 40), statusBadge(s), s.RunCount, formatLastRun(s.LastRun, now))
	}
	return w.Flush()
}

func newScriptShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a script with its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptShow(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runScriptShow(cmd *cobra.Command, configPath, id string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	s, ok := a.svc.Get(id)
	if !ok {
		return fmt.Errorf("script %s not found", id)
	}
	printScript(out, s)
	fmt.Fprintln(out)
	fmt.Fprintln(out, s.Code)
	return nil
}

func printScript(out io.Writer, s models.Script) {
	fmt.Fprintf(out, "ID:          %s\n", s.ID)
	fmt.Fprintf(out, "Name:        %s\n", s.Name)
	if s.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", s.Description)
	}
	fmt.Fprintf(out, "Status:      %s\n", statusBadge(s))
	fmt.Fprintf(out, "Runs:        %d\n", s.RunCount)
	fmt.Fprintf(out, "Last run:    %s\n", formatLastRun(s.LastRun, time.Now()))
	fmt.Fprintf(out, "Updated:     %s\n", s.UpdatedAt.Format(time.RFC3339))
}

func newScriptEditCmd() *cobra.Command {
	var (
		configPath  string
		name        string
		description string
		codeFile    string
	)

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a script's name, description or code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch store.Patch
			if cmd.Flags().Changed("name") {
				patch.Name = &name
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if codeFile != "" {
				code, err := readCode(codeFile)
				if err != nil {
					return err
				}
				patch.Code = &code
			}
			return runScriptEdit(cmd, configPath, args[0], patch)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "new description")
	cmd.Flags().StringVarP(&codeFile, "code-file", "f", "", "replace the body with this file")
	return cmd
}

func runScriptEdit(cmd *cobra.Command, configPath, id string, patch store.Patch) error {
	out := cmd.OutOrStdout()
	if patch.Empty() {
		return fmt.Errorf("nothing to change: pass --name, --description or --code-file")
	}

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	s, ok, err := a.svc.UpdateScript(contextOf(cmd), id, patch)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "No script with id %s; nothing changed.\n", id)
		return nil
	}
	fmt.Fprintf(out, "Updated script %s (%s)\n", s.ID, s.Name)
	return nil
}

func newScriptRmCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a script",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptRm(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runScriptRm(cmd *cobra.Command, configPath, id string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	ok, err := a.svc.DeleteScript(contextOf(cmd), id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "No script with id %s; nothing deleted.\n", id)
		return nil
	}
	fmt.Fprintf(out, "Deleted script %s\n", id)
	return nil
}

func newScriptRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Quick-run a script and wait for the result",
		Long: `Marks the script running, waits a simulated latency, then records a
success or failure outcome.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptRun(cmd, configPath, args[0])
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func runScriptRun(cmd *cobra.Command, configPath, id string) error {
	out := cmd.OutOrStdout()

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if _, ok := a.svc.Get(id); ok {
		fmt.Fprintf(out, "Running %s...\n", id)
	}
	s, err := a.svc.RunScript(contextOf(cmd), id)
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintf(out, "No script with id %s; nothing run.\n", id)
		return nil
	}
	fmt.Fprintf(out, "%s: %s (run #%d)\n", s.Name, statusBadge(*s), s.RunCount)
	return nil
}

func newScriptSimulateCmd() *cobra.Command {
	var (
		configPath string
		codeFile   string
	)

	cmd := &cobra.Command{
		Use:   "simulate <id>",
		Short: "Run a script in the console simulator, streaming its output",
		Long: `Streams simulated console output for the script and records the outcome.
With --code-file the script body is replaced and saved before the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptSimulate(cmd, configPath, args[0], codeFile)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&codeFile, "code-file", "f", "", "save this file as the body before running")
	return cmd
}

func runScriptSimulate(cmd *cobra.Command, configPath, id, codeFile string) error {
	out := cmd.OutOrStdout()

	code, err := readCode(codeFile)
	if err != nil {
		return err
	}

	a, err := openApp(contextOf(cmd), configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	s, res, err := a.svc.SimulateScriptRun(contextOf(cmd), id, code, func(line string) {
		printLine(out, line)
	})
	if err != nil {
		return err
	}
	if s == nil {
		fmt.Fprintf(out, "No script with id %s; nothing run.\n", id)
		return nil
	}
	fmt.Fprintln(out)
	if res.Success {
		fmt.Fprintf(out, "%s: %s (run #%d)\n", s.Name, statusBadge(*s), s.RunCount)
	} else {
		fmt.Fprintf(out, "%s: %s (run #%d): %s\n", s.Name, statusBadge(*s), s.RunCount, res.Error)
	}
	return nil
}

func newScriptImportCmd() *cobra.Command {
	var (
		configPath  string
		name        string
		description string
		baseURL     string
	)

	cmd := &cobra.Command{
		Use:   "import <owner/repo/path[@ref]>",
		Short: "Import a script from a file in a GitHub repository",
		Long: `Fetches a file through the GitHub API and stores it as a new script.
Set GITHUB_TOKEN to read private repositories or avoid rate limits.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScriptImport(cmd, configPath, args[0], name, description, baseURL)
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVarP(&name, "name", "n", "", "script name (default: derived from the file name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "script description (default: the source reference)")
	cmd.Flags().StringVar(&baseURL, "api-url", "", "GitHub API base URL, for GitHub Enterprise")
	return cmd
}

func runScriptImport(cmd *cobra.Command, configPath, refArg, name, description, baseURL string) error {
	out := cmd.OutOrStdout()
	ctx := contextOf(cmd)

	ref, err := importer.ParseRef(refArg)
	if err != nil {
		return err
	}
	im := importer.NewFromEnv(ctx)
	if baseURL != "" {
		if err := im.SetBaseURL(baseURL); err != nil {
			return err
		}
	}
	file, err := im.Fetch(ctx, ref)
	if err != nil {
		return err
	}
	if name == "" {
		name = file.ScriptName()
	}
	if description == "" {
		description = "Imported from " + ref.String()
	}

	a, err := openApp(ctx, configPath, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := a.svc.AddScript(ctx, name, description, file.Content)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Imported %s as script %s (%s)\n", file.Path, s.ID, s.Name)
	return nil
}

// readCode returns the contents of path, or "" when path is empty.
func readCode(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read code file: %w", err)
	}
	return string(data), nil
}

// contextOf returns the command context, or Background when unset.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
