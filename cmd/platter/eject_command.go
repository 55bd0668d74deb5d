package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/disc"
)

func newEjectCommand(ctx *commandContext) *cobra.Command {
	var device string

	cmd := &cobra.Command{
		Use:   "eject",
		Short: "Eject the disc tray",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(device)
			if target == "" {
				target = cfg.Drive.Device
			}
			if err := disc.NewEjector().Eject(cmd.Context(), target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ejected %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&device, "device", "d", "", "Optical drive to eject (defaults to drive.device)")
	return cmd
}
