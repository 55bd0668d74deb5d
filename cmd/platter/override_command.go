package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/jobs"
)

func newOverrideCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "override <jobID> <title>",
		Short: "Submit a manual title for a waiting job",
		Long: `Submit a manual title for a job. The rip process polls for the pending
title while the job sits in the waiting state and promotes it to the real
title, so an override submitted after ripping starts has no effect.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return fmt.Errorf("title must not be empty")
			}

			return ctx.withStore(func(store *jobs.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				if job.Status.Terminal() {
					return fmt.Errorf("job %d already finished (%s)", id, formatStatusLabel(string(job.Status)))
				}

				if err := store.Apply(cmd.Context(), job, jobs.JobUpdate{ManualTitle: jobs.Ptr(title)}); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Manual title for job %d set to %q\n", id, title)
				if job.Status == jobs.StatusActive {
					fmt.Fprintln(out, "Rip already underway; the title may not be picked up")
				}
				return nil
			})
		},
	}
}
