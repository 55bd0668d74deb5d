package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, env.configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, env.configPath, "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected refusal without --overwrite, got %v", err)
	}
	if _, _, err := runCLI(t, env.configPath, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsMissingFile(t *testing.T) {
	// Default paths expand under $HOME, so point it at a scratch directory.
	t.Setenv("HOME", t.TempDir())
	missing := filepath.Join(t.TempDir(), "absent.toml")

	out, _, err := runCLI(t, missing, "config", "validate")
	if err != nil {
		t.Fatalf("config validate with missing file: %v", err)
	}
	requireContains(t, out, "Config file did not exist; defaults were used")
	requireContains(t, out, "Configuration valid")
}

func TestConfigShowPrintsEffectiveConfig(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env.configPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "# "+env.configPath)
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.cfg.Paths.RawDir)
	requireContains(t, out, "[workflow]")
}
