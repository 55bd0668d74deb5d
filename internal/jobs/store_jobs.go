package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Add inserts a new job and assigns its identifier. StartedAt and UpdatedAt
// default to now when unset, status defaults to identifying.
func (s *Store) Add(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	now := time.Now().UTC()
	if job.StartedAt.IsZero() {
		job.StartedAt = now
	}
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusIdentifying
	}
	if job.DiscType == "" {
		job.DiscType = DiscUnknown
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            device, label, fingerprint, disc_type, video_type, title, year, poster_url,
            status, error_message, pid, pid_fingerprint, run_id, log_path, manual_title,
            overridden, has_nice_title, started_at, updated_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Device,
		nullableString(job.Label),
		nullableString(job.Fingerprint),
		job.DiscType,
		nullableString(job.VideoType),
		nullableString(job.Title),
		nullableString(job.Year),
		nullableString(job.PosterURL),
		job.Status,
		nullableString(job.ErrorMessage),
		job.PID,
		nullableString(job.PIDFingerprint),
		nullableString(job.RunID),
		nullableString(job.LogPath),
		nullableString(job.ManualTitle),
		boolToInt(job.Overridden),
		boolToInt(job.HasNiceTitle),
		formatTime(job.StartedAt),
		formatTime(job.UpdatedAt),
		nullableTime(job.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	job.ID = id
	return nil
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Apply persists the populated fields of update and refreshes job from the
// stored row. A status change is validated against the allowed transitions
// before any write happens. Only the fields named by the update are written,
// so a concurrent writer touching its own fields is never clobbered. An
// empty update reduces to a reload.
func (s *Store) Apply(ctx context.Context, job *Job, update JobUpdate) error {
	ctx = ensureContext(ctx)
	if job == nil {
		return errors.New("job is nil")
	}
	if update.isEmpty() {
		return s.Rollback(ctx, job)
	}

	if update.Status != nil && *update.Status != job.Status {
		if !job.Status.CanTransition(*update.Status) {
			return fmt.Errorf("job %d: %s to %s: %w", job.ID, job.Status, *update.Status, ErrInvalidTransition)
		}
	}

	assignments, args := update.assignments()
	assignments = append(assignments, "updated_at = ?")
	args = append(args, formatTime(time.Now()))
	args = append(args, job.ID)

	query := `UPDATE jobs SET ` + strings.Join(assignments, ", ") + ` WHERE id = ?`
	if err := s.execWithoutResultRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("apply job update: %w", err)
	}
	return s.Rollback(ctx, job)
}

// Rollback reloads job from its stored row, discarding any field changes the
// caller made but never persisted.
func (s *Store) Rollback(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	stored, err := s.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if stored == nil {
		return fmt.Errorf("job %d: %w", job.ID, ErrNotFound)
	}
	*job = *stored
	return nil
}

// MarkFailed transitions the job to the failed state, recording the error
// message and the finish time.
func (s *Store) MarkFailed(ctx context.Context, job *Job, message string) error {
	return s.Apply(ctx, job, JobUpdate{
		Status:       Ptr(StatusFailed),
		ErrorMessage: Ptr(message),
		FinishedAt:   Ptr(time.Now().UTC()),
	})
}

// MarkSuccess transitions the job to the success state and records the finish time.
func (s *Store) MarkSuccess(ctx context.Context, job *Job) error {
	return s.Apply(ctx, job, JobUpdate{
		Status:     Ptr(StatusSuccess),
		FinishedAt: Ptr(time.Now().UTC()),
	})
}

// NonTerminal returns jobs that have not yet reached success or fail, oldest first.
func (s *Store) NonTerminal(ctx context.Context) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status NOT IN (?, ?) ORDER BY started_at, id`,
		StatusSuccess,
		StatusFailed,
	)
	if err != nil {
		return nil, fmt.Errorf("query non-terminal jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// RunningOnDevice returns non-terminal jobs on the device that started after
// cutoff, oldest first.
func (s *Store) RunningOnDevice(ctx context.Context, device string, cutoff time.Time) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs
         WHERE status NOT IN (?, ?) AND device = ? AND started_at > ?
         ORDER BY started_at, id`,
		StatusSuccess,
		StatusFailed,
		device,
		formatTime(cutoff),
	)
	if err != nil {
		return nil, fmt.Errorf("query running jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// PriorSuccesses returns earlier successful jobs for the fingerprint that
// carry a confirmed title, most recent start first. Ties on started_at break
// toward the higher identifier.
func (s *Store) PriorSuccesses(ctx context.Context, fingerprint string) ([]*Job, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs
         WHERE fingerprint = ? AND status = ? AND has_nice_title = 1
         ORDER BY started_at DESC, id DESC`,
		fingerprint,
		StatusSuccess,
	)
	if err != nil {
		return nil, fmt.Errorf("query prior successes: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	ctx = ensureContext(ctx)
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY started_at, id`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	return collectJobs(rows)
}

// Remove deletes a job by identifier. Tracks cascade with the job row.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearFinished removes jobs that reached a terminal state.
func (s *Store) ClearFinished(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status IN (?, ?)`, StatusSuccess, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear finished jobs: %w", err)
	}
	return res.RowsAffected()
}

func collectJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
