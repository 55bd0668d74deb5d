package testsupport

import (
	"context"
	"testing"

	"platter/internal/config"
	"platter/internal/jobs"
)

// MustOpenStore opens a jobs.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	store, err := jobs.Open(cfg)
	if err != nil {
		t.Fatalf("jobs.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob inserts a job for tests using the provided store.
func NewJob(t testing.TB, store *jobs.Store, device, label string) *jobs.Job {
	t.Helper()

	job := &jobs.Job{Device: device, Label: label}
	if err := store.Add(context.Background(), job); err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return job
}
