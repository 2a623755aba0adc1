package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/scriptyard/internal/templates"
)

func newTemplateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Starter script templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List starter templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
			for _, t := range templates.All() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Name, t.Description)
			}
			return w.Flush()
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a template's code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, ok := templates.Get(args[0])
			if !ok {
				return fmt.Errorf("unknown template %q", args[0])
			}
			fmt.Fprint(cmd.OutOrStdout(), t.Code)
			return nil
		},
	})
	return cmd
}
