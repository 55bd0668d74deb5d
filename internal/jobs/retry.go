package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SQLite primary result codes treated as transient lock contention.
const (
	sqliteBusyCode   = 5
	sqliteLockedCode = 6
)

// RetryPolicy bounds the wait for a contended store writer. A zero value is
// normalized to the repository defaults (90 retries, one second apart).
type RetryPolicy struct {
	Attempts int
	Interval time.Duration
}

// DefaultRetryPolicy mirrors the shipped configuration defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 90, Interval: time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 90
	}
	if p.Interval <= 0 {
		p.Interval = time.Second
	}
	return p
}

// IsRetryable reports whether err is transient lock contention. The driver
// surfaces result codes through a Code accessor; anything else is permanent
// and must not be retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if !errors.As(err, &coder) {
		return false
	}
	// Extended result codes (SQLITE_BUSY_SNAPSHOT and friends) carry the
	// primary code in the low byte.
	switch coder.Code() & 0xff {
	case sqliteBusyCode, sqliteLockedCode:
		return true
	default:
		return false
	}
}

// RetryOnLocked runs op, retrying while it fails with a retryable lock error,
// sleeping policy.Interval between attempts up to policy.Attempts retries.
// It returns the number of retries performed alongside the final error:
// nil on success, the untouched permanent error on a non-lock failure, and a
// budget-exhausted wrapper (still matching the lock error) when contention
// never cleared.
func RetryOnLocked(ctx context.Context, policy RetryPolicy, op func() error) (int, error) {
	policy = policy.normalized()
	lastErr := op()
	if lastErr == nil {
		return 0, nil
	}
	retries := 0
	for IsRetryable(lastErr) {
		if retries == policy.Attempts {
			return retries, fmt.Errorf("lock retry budget exhausted after %d attempts: %w", policy.Attempts, lastErr)
		}
		select {
		case <-time.After(policy.Interval):
		case <-ctx.Done():
			return retries, ctx.Err()
		}
		retries++
		lastErr = op()
		if lastErr == nil {
			return retries, nil
		}
	}
	return retries, lastErr
}
