package ripping

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"platter/internal/jobs"
	"platter/internal/logging"
)

// tailWriter keeps the last capacity bytes written through it, for error
// reporting when the full output already streamed to the job log.
type tailWriter struct {
	buf      []byte
	capacity int
}

func newTailWriter(capacity int) *tailWriter {
	return &tailWriter{capacity: capacity}
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if len(w.buf) > w.capacity {
		w.buf = w.buf[len(w.buf)-w.capacity:]
	}
	return len(p), nil
}

func (w *tailWriter) String() string {
	return strings.TrimSpace(string(w.buf))
}

// runTool executes an external rip tool with combined output appended to the
// job's log file. A non-zero exit reports the exit code and the output tail;
// anything else about the tool's behaviour is opaque.
func (d *Dispatcher) runTool(ctx context.Context, job *jobs.Job, name string, args ...string) error {
	logger := logging.WithContext(ctx, d.logger)
	logger.Info("running rip tool",
		logging.String("tool", name),
		logging.String("args", strings.Join(args, " ")),
	)

	tail := newTailWriter(2048)
	output := io.Writer(tail)
	if path := strings.TrimSpace(job.LogPath); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("cannot open job log file; keeping tool output in memory only", logging.Error(err))
		} else {
			defer file.Close()
			output = io.MultiWriter(file, tail)
		}
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = output
	cmd.Stderr = output
	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		message := fmt.Sprintf("%s exited with code %d", name, exitErr.ExitCode())
		if tailText := tail.String(); tailText != "" {
			message += ": " + tailText
		}
		return errors.New(message)
	}
	return fmt.Errorf("run %s: %w", name, err)
}
