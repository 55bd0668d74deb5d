package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"platter/internal/logging"
	"platter/internal/services"
)

func TestConsoleLoggerOmitsCallerForInfo(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console-info.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message without caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if strings.Contains(string(content), ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", content)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console-debug.log")

	opts := logging.Options{
		Format:           "console",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	}

	logger, err := logging.New(opts)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}

	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestConsoleLoggerPromotesComponent(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "console-component.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "dispatcher").Info("disc detected", logging.String("device", "/dev/sr0"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, "dispatcher: disc detected") {
		t.Fatalf("expected component prefix in output, got %q", line)
	}
	if !strings.Contains(line, "device=/dev/sr0") {
		t.Fatalf("expected device attribute in output, got %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be promoted out of the attribute list, got %q", line)
	}
}

func TestNewJSONLogger(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "json.log")

	logger, err := logging.New(logging.Options{
		Format:           "json",
		Level:            "debug",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("json message", logging.String("k", "v"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{`"msg":"json message"`, `"level":"info"`, `"k":"v"`} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %s in json output, got %q", want, content)
		}
	}
}

func TestNewInvalidFormatFails(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "context.log")

	logger, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := context.Background()
	ctx = services.WithJobID(ctx, 123)
	ctx = services.WithDevice(ctx, "/dev/sr1")
	ctx = services.WithRunID(ctx, "run-xyz")

	logging.WithContext(ctx, logger).Info("contextual log")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	for _, want := range []string{"job_id=123", "device=/dev/sr1", "run_id=run-xyz"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in output, got %q", want, line)
		}
	}
}

func TestTeeLoggerWritesBothSinks(t *testing.T) {
	tempDir := t.TempDir()
	mainPath := filepath.Join(tempDir, "main.log")
	jobPath := filepath.Join(tempDir, "job.log")

	base, err := logging.New(logging.Options{
		Format:           "console",
		Level:            "info",
		OutputPaths:      []string{mainPath},
		ErrorOutputPaths: []string{mainPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	handler, closer, err := logging.NewFileHandler(jobPath, "info")
	if err != nil {
		t.Fatalf("NewFileHandler returned error: %v", err)
	}
	defer closer.Close()

	logging.TeeLogger(base, handler).Info("rip started")

	for _, path := range []string{mainPath, jobPath} {
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if !strings.Contains(string(content), "rip started") {
			t.Fatalf("expected message in %s, got %q", path, content)
		}
	}
}
