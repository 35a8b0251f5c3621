package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ReactiumCore/ReactiumFramework-sub002/internal/hook"
)

func newListCmd(s *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list <hook>",
		Short: "List the handlers of a hook in run order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list := s.hooks.List(args[0])
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), list)
			}
			return listTable(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output in JSON format")
	return cmd
}

func listTable(w io.Writer, list []hook.Descriptor) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tPRIORITY\tDOMAIN")
	for _, d := range list {
		fmt.Fprintf(tw, "%s\t%s\t%d (%s)\t%s\n", d.ID, d.Kind, d.Priority, d.Priority, d.Domain)
	}
	return tw.Flush()
}

func newHooksCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "List hooks that have handlers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, name := range s.hooks.Names() {
				fmt.Fprintf(out, "%s\t%d\n", name, len(s.hooks.List(name)))
			}
			return nil
		},
	}
}

func newPluginsCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List loaded plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDOMAIN\tHANDLERS\tSCRIPT")
			for _, p := range s.plugins.Loaded() {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", p.Name, p.Domain, len(p.Handlers), p.Script)
			}
			return tw.Flush()
		},
	}
}
