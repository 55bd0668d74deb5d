package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/jobs"
)

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [jobID...]",
		Short: "Remove finished jobs",
		Long: `Remove job records from the store. Without arguments every finished job
(success or fail) is removed; with job IDs only those rows are removed,
regardless of state.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *jobs.Store) error {
				out := cmd.OutOrStdout()
				if len(ids) == 0 {
					removed, err := store.ClearFinished(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d finished jobs\n", removed)
					return nil
				}

				for _, id := range ids {
					removed, err := store.Remove(cmd.Context(), id)
					if err != nil {
						return err
					}
					if removed {
						fmt.Fprintf(out, "Job %d removed\n", id)
					} else {
						fmt.Fprintf(out, "Job %d not found\n", id)
					}
				}
				return nil
			})
		},
	}
}
