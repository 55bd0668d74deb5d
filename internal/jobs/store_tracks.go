package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// AddTrack inserts a track discovered on the job's disc and assigns its identifier.
func (s *Store) AddTrack(ctx context.Context, track *Track) error {
	if track == nil {
		return errors.New("track is nil")
	}
	if track.CreatedAt.IsZero() {
		track.CreatedAt = time.Now().UTC()
	}

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO tracks (
            job_id, track_number, length, aspect_ratio, fps, main_feature,
            source, basename, filename, ripped, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		track.JobID,
		track.TrackNumber,
		track.Length,
		nullableString(track.AspectRatio),
		track.FPS,
		boolToInt(track.MainFeature),
		nullableString(track.Source),
		nullableString(track.Basename),
		nullableString(track.Filename),
		boolToInt(track.Ripped),
		formatTime(track.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert track: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	track.ID = id
	return nil
}

// TracksForJob returns the tracks recorded for a job in disc order.
func (s *Store) TracksForJob(ctx context.Context, jobID int64) ([]*Track, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+trackColumns+` FROM tracks WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// MarkTrackRipped records that the track's output file landed on disk.
func (s *Store) MarkTrackRipped(ctx context.Context, trackID int64, filename string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE tracks SET ripped = 1, filename = ? WHERE id = ?`,
		nullableString(filename),
		trackID,
	); err != nil {
		return fmt.Errorf("mark track ripped: %w", err)
	}
	return nil
}
