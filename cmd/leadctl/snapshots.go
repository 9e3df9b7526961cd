package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSnapshotsCmd(a *app) *cobra.Command {
	snapshots := &cobra.Command{
		Use:   "snapshots",
		Short: "List, install and audit demo snapshots",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the snapshot catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := a.ops.ListSnapshots(cmd.Context())
			if err != nil {
				return fmt.Errorf("list snapshots: %w", err)
			}
			for _, name := range result.SkippedFiles {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: skipped unreadable fixture %s\n", name)
			}
			if len(result.SkippedFiles) == 0 && result.Skipped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: skipped %d unreadable fixture(s)\n", result.Skipped)
			}

			out := cmd.OutOrStdout()
			if a.asJSON {
				return a.printJSON(out, map[string]interface{}{
					"snapshots": result.Snapshots,
					"skipped":   result.Skipped,
				})
			}
			if len(result.Snapshots) == 0 {
				fmt.Fprintln(out, "No snapshots found")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSAMPLE LEADS")
			for _, s := range result.Snapshots {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", s.ID, s.Name, len(s.SampleLeads))
			}
			return tw.Flush()
		},
	}

	install := &cobra.Command{
		Use:   "install <id>",
		Short: "Install a snapshot's sample leads",
		Long: `Install a snapshot: record it in the installation ledger and append
its sample leads to the lead store. Installing twice adds the leads twice.

Examples:
  leadctl snapshots install plumber-demo`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := a.ops.InstallSnapshot(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("install snapshot %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if a.asJSON {
				return a.printJSON(out, summary)
			}
			fmt.Fprintf(out, "%s (%d lead(s) added)\n", summary.Message, summary.LeadsAdded)
			return nil
		},
	}

	installed := &cobra.Command{
		Use:   "installed",
		Short: "List recorded snapshot installations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.ops.ListInstalled(cmd.Context())
			if err != nil {
				return fmt.Errorf("list installed snapshots: %w", err)
			}

			out := cmd.OutOrStdout()
			if a.asJSON {
				return a.printJSON(out, records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No snapshots installed")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tINSTALLED")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.ID, r.Name, r.InstalledAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}

	snapshots.AddCommand(list, install, installed)
	return snapshots
}
