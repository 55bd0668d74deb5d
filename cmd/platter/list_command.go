package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/jobs"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rip jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := make([]jobs.Status, 0, len(listStatuses))
			for _, raw := range listStatuses {
				status, ok := jobs.ParseStatus(raw)
				if !ok {
					return fmt.Errorf("unknown status %q (valid: %s)", raw, statusNames())
				}
				statuses = append(statuses, status)
			}

			return ctx.withStore(func(store *jobs.Store) error {
				items, err := store.List(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs recorded")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Title", "Type", "Status", "Started", "Fingerprint"},
					buildJobRows(items),
					0,
				)
				fmt.Fprint(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func statusNames() string {
	all := jobs.AllStatuses()
	names := make([]string, 0, len(all))
	for _, status := range all {
		names = append(names, string(status))
	}
	return strings.Join(names, ", ")
}
