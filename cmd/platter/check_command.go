package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/deps"
	"platter/internal/notifications"
	"platter/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var notify bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run environment preflight checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			results := preflight.RunAll(cmd.Context(), cfg)
			writeSectionHeader(stdout, "Environment", colorize)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			statuses := preflight.CheckBinaries(cfg)
			writeSectionHeader(stdout, "Dependencies", colorize)
			for _, line := range dependencyLines(statuses, colorize) {
				fmt.Fprintln(stdout, line)
			}

			if notify {
				fmt.Fprintln(stdout)
				writeSectionHeader(stdout, "Notifications", colorize)
				if strings.TrimSpace(cfg.Notifications.NtfyTopic) == "" {
					fmt.Fprintln(stdout, renderStatusLine("ntfy", statusInfo, "Not configured (ntfy_topic unset)", colorize))
				} else if err := notifications.NewService(cfg).Test(cmd.Context()); err != nil {
					fmt.Fprintln(stdout, renderStatusLine("ntfy", statusError, err.Error(), colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("ntfy", statusOK, "Test notification sent", colorize))
				}
			}

			if !preflight.Passed(results) || !deps.AllRequiredAvailable(statuses) {
				return errors.New("environment checks failed")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&notify, "notify", false, "Also send a test notification")
	return cmd
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	missing := make([]string, 0)
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Detail != "" {
				message = fmt.Sprintf("Ready (%s)", dep.Detail)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}

		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		if !dep.Optional {
			missing = append(missing, dep.Command)
		}
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing binaries", statusError, strings.Join(missing, ", "), colorize))
	}
	return lines
}
