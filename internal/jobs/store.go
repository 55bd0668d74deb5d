package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"platter/internal/config"
)

// Store manages job persistence backed by SQLite. It is the single write path
// to the shared database: every mutation funnels through the lock-retry
// discipline so a rip process and a concurrently running UI can share the
// store without either failing on transient writer contention.
type Store struct {
	db    *sql.DB
	path  string
	retry RetryPolicy
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

// Open initializes or connects to the job database described by cfg.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	policy := RetryPolicy{
		Attempts: cfg.Database.LockRetryAttempts,
		Interval: time.Duration(cfg.Database.LockRetryInterval) * time.Second,
	}
	return OpenPath(cfg.DatabasePath(), policy)
}

// OpenPath connects to the job database at dbPath with the given retry policy.
func OpenPath(dbPath string, policy RetryPolicy) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// busy_timeout stays zero: contention waits belong to RetryOnLocked so
	// the one-second cadence and the attempt budget are observable.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 0",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath, retry: policy.normalized()}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if _, err := RetryOnLocked(ctx, s.retry, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) execWithoutResultRetry(ctx context.Context, query string, args ...any) error {
	ctx = ensureContext(ctx)
	_, err := RetryOnLocked(ctx, s.retry, func() error {
		_, execErr := s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return err
}
