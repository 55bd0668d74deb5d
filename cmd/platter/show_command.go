package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"platter/internal/identification"
	"platter/internal/jobs"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <jobID>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}

			return ctx.withStore(func(store *jobs.Store) error {
				job, err := store.GetByID(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}

				tracks, err := store.TracksForJob(cmd.Context(), job.ID)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %d\n", job.ID)
				for _, line := range jobDetailLines(job) {
					fmt.Fprintln(out, line)
				}

				if len(tracks) > 0 {
					fmt.Fprintln(out)
					fmt.Fprintln(out, "Tracks:")
					table := renderTable(
						[]string{"No.", "Length", "Aspect", "FPS", "Main", "Ripped", "Filename"},
						buildTrackRows(tracks),
						0, 1, 3,
					)
					fmt.Fprint(out, table)
				}
				return nil
			})
		},
	}
}

func jobDetailLines(job *jobs.Job) []string {
	lines := []string{
		renderDetailLine("Title", identification.Display(job.DisplayTitle(), job.Year)),
		renderDetailLine("Status", formatStatusLabel(string(job.Status))),
		renderDetailLine("Type", discTypeDetail(job)),
		renderDetailLine("Device", job.Device),
		renderDetailLine("Label", job.Label),
		renderDetailLine("Fingerprint", job.Fingerprint),
		renderDetailLine("Started", timestampDetail(job.StartedAt)),
	}
	if job.FinishedAt != nil {
		lines = append(lines, renderDetailLine("Finished", timestampDetail(*job.FinishedAt)))
	}
	lines = append(lines,
		renderDetailLine("Run ID", job.RunID),
		renderDetailLine("PID", fmt.Sprintf("%d", job.PID)),
		renderDetailLine("Log", logDetail(job.LogPath)),
		renderDetailLine("Nice title", yesNo(job.HasNiceTitle)),
		renderDetailLine("Overridden", yesNo(job.Overridden)),
	)
	if pending := strings.TrimSpace(job.ManualTitle); pending != "" {
		lines = append(lines, renderDetailLine("Manual title", pending+" (pending)"))
	}
	if message := strings.TrimSpace(job.ErrorMessage); message != "" {
		lines = append(lines, renderDetailLine("Error", message))
	}
	return lines
}

func discTypeDetail(job *jobs.Job) string {
	if job.VideoType == "" {
		return string(job.DiscType)
	}
	return fmt.Sprintf("%s (%s)", job.DiscType, job.VideoType)
}

func timestampDetail(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s (%s)", formatDisplayTime(value), humanize.Time(value))
}

func logDetail(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	info, err := os.Stat(path)
	if err != nil {
		return path
	}
	return fmt.Sprintf("%s (%s)", path, humanize.IBytes(uint64(info.Size())))
}
