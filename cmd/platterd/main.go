// Command platterd watches the configured optical drive and launches one
// platter rip process per inserted disc. It also runs the periodic
// reconciliation sweep so jobs abandoned by dead runners are failed instead
// of sitting active forever.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"platter/internal/config"
	"platter/internal/daemon"
	"platter/internal/jobs"
	"platter/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFlag string

	cmd := &cobra.Command{
		Use:           "platterd",
		Short:         "Platter disc detection daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), strings.TrimSpace(configFlag))
		},
	}
	cmd.Flags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	return cmd
}

// runDaemon owns the daemon lifecycle. It blocks until a signal cancels the
// context, then shuts down in order: monitor first, then the sweep loop, then
// the store. A clean signal-driven exit returns nil.
func runDaemon(parent context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, resolvedPath, _, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	store, err := jobs.Open(cfg)
	if err != nil {
		return fmt.Errorf("open job store: %w", err)
	}
	defer store.Close()

	d, err := daemon.New(cfg, resolvedPath, store, logger)
	if err != nil {
		return err
	}
	if err := d.Start(ctx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			if pid, running := daemon.Probe(cfg); running && pid > 0 {
				return fmt.Errorf("platterd already running (pid %d)", pid)
			}
		}
		return err
	}

	<-ctx.Done()
	logger.Info("platterd shutting down")
	d.Stop()
	return nil
}
