package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"platter/internal/daemon"
	"platter/internal/jobs"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, database, and job status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			writeSectionHeader(stdout, "Daemon", colorize)
			if pid, running := daemon.Probe(cfg); running {
				fmt.Fprintln(stdout, renderStatusLine("platterd", statusOK, fmt.Sprintf("Running (pid %d)", pid), colorize))
			} else {
				fmt.Fprintln(stdout, renderStatusLine("platterd", statusInfo, "Not running", colorize))
			}
			fmt.Fprintln(stdout)

			return ctx.withStore(func(store *jobs.Store) error {
				writeSectionHeader(stdout, "Database", colorize)
				health, err := store.CheckHealth(cmd.Context())
				if err != nil {
					fmt.Fprintln(stdout, renderStatusLine("Store", statusError, err.Error(), colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Store", databaseKind(health), databaseDetail(health), colorize))
				}
				fmt.Fprintln(stdout)

				writeSectionHeader(stdout, "Jobs", colorize)
				counts, err := store.Counts(cmd.Context())
				if err != nil {
					return err
				}
				ordered := orderedCounts(counts)
				if len(ordered) == 0 {
					fmt.Fprintln(stdout, "No jobs recorded")
					return nil
				}
				for _, entry := range ordered {
					line := renderStatusLine(
						formatStatusLabel(string(entry.status)),
						jobStatusKind(entry.status),
						fmt.Sprintf("%d", entry.count),
						colorize,
					)
					fmt.Fprintln(stdout, line)
				}
				return nil
			})
		},
	}
}

func databaseKind(health jobs.DatabaseHealth) statusKind {
	switch {
	case !health.DatabaseExists, !health.DatabaseReadable, !health.TableExists:
		return statusError
	case !health.IntegrityCheck, len(health.MissingColumns) > 0:
		return statusWarn
	default:
		return statusOK
	}
}

func databaseDetail(health jobs.DatabaseHealth) string {
	switch {
	case !health.DatabaseExists:
		return fmt.Sprintf("missing at %s", health.DBPath)
	case !health.DatabaseReadable:
		return "unreadable"
	case !health.TableExists:
		return "jobs table missing"
	case len(health.MissingColumns) > 0:
		return fmt.Sprintf("schema incomplete (missing %d columns)", len(health.MissingColumns))
	case !health.IntegrityCheck:
		return "integrity check failed"
	}
	detail := fmt.Sprintf("%d jobs at %s", health.TotalJobs, health.DBPath)
	if info, err := os.Stat(health.DBPath); err == nil {
		detail += fmt.Sprintf(" (%s)", humanize.IBytes(uint64(info.Size())))
	}
	return detail
}
