package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/jobs"
	"platter/internal/logging"
	"platter/internal/proc"
	"platter/internal/reconcile"
)

func newSweepCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Fail jobs abandoned by dead rip processes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(store *jobs.Store) error {
				sweeper := reconcile.New(store, proc.NewChecker(), logging.NewNop())
				corrected, err := sweeper.Sweep(cmd.Context())
				if err != nil {
					return err
				}
				if corrected == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No abandoned jobs found")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Corrected %d abandoned jobs\n", corrected)
				return nil
			})
		},
	}
}
