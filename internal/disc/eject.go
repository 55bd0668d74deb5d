package disc

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Ejector opens the drive tray so a finished or failed disc is never
// re-ripped on the next insert event.
type Ejector interface {
	Eject(ctx context.Context, device string) error
}

type commandEjector struct{}

// NewEjector returns an Ejector backed by the system eject command.
func NewEjector() Ejector {
	return &commandEjector{}
}

func (e *commandEjector) Eject(ctx context.Context, device string) error {
	args := []string{}
	if device != "" {
		args = append(args, device)
	}

	cmd := exec.CommandContext(ctx, "eject", args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("eject failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// NoopEjector satisfies Ejector without touching hardware. Used when tray
// control is disabled in configuration.
type NoopEjector struct{}

func (NoopEjector) Eject(ctx context.Context, device string) error { return nil }
