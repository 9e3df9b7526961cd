package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newLeadsCmd(a *app) *cobra.Command {
	leads := &cobra.Command{
		Use:   "leads",
		Short: "Inspect captured leads",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List leads, most recent first",
		Long: `List captured leads, most recent first.

Examples:
  leadctl leads list
  leadctl leads list --limit 10
  leadctl leads list --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.ops.ListLeads(cmd.Context())
			if err != nil {
				return fmt.Errorf("list leads: %w", err)
			}
			if limit > 0 && len(all) > limit {
				all = all[:limit]
			}

			out := cmd.OutOrStdout()
			if a.asJSON {
				return a.printJSON(out, all)
			}
			if len(all) == 0 {
				fmt.Fprintln(out, "No leads found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPHONE\tSERVICE\tCREATED")
			for _, l := range all {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					l.ID, l.Name, l.Phone, l.Service, l.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntVar(&limit, "limit", 0, "show at most this many leads")

	leads.AddCommand(list)
	return leads
}
