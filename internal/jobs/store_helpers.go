package jobs

import (
	"database/sql"
	"errors"
	"time"
)

// storedTimeLayout is fixed-width, unlike RFC3339Nano, which drops trailing
// fraction zeros and makes the stored strings compare out of chronological
// order within a second ("…:05Z" sorts after "…:05.5Z"). Every timestamp
// column feeds a lexicographic ORDER BY or cutoff comparison, so the width
// must not vary.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

const jobColumns = "id, device, label, fingerprint, disc_type, video_type, title, year, poster_url, status, error_message, pid, pid_fingerprint, run_id, log_path, manual_title, overridden, has_nice_title, started_at, updated_at, finished_at"

const trackColumns = "id, job_id, track_number, length, aspect_ratio, fps, main_feature, source, basename, filename, ripped, created_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id             int64
		device         string
		label          sql.NullString
		fingerprint    sql.NullString
		discTypeStr    string
		videoType      sql.NullString
		title          sql.NullString
		year           sql.NullString
		posterURL      sql.NullString
		statusStr      string
		errorMessage   sql.NullString
		pid            sql.NullInt64
		pidFingerprint sql.NullString
		runID          sql.NullString
		logPath        sql.NullString
		manualTitle    sql.NullString
		overridden     sql.NullInt64
		hasNiceTitle   sql.NullInt64
		startedRaw     sql.NullString
		updatedRaw     sql.NullString
		finishedRaw    sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&device,
		&label,
		&fingerprint,
		&discTypeStr,
		&videoType,
		&title,
		&year,
		&posterURL,
		&statusStr,
		&errorMessage,
		&pid,
		&pidFingerprint,
		&runID,
		&logPath,
		&manualTitle,
		&overridden,
		&hasNiceTitle,
		&startedRaw,
		&updatedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		Device:         device,
		Label:          label.String,
		Fingerprint:    fingerprint.String,
		DiscType:       DiscType(discTypeStr),
		VideoType:      videoType.String,
		Title:          title.String,
		Year:           year.String,
		PosterURL:      posterURL.String,
		Status:         Status(statusStr),
		ErrorMessage:   errorMessage.String,
		PID:            int(pid.Int64),
		PIDFingerprint: pidFingerprint.String,
		RunID:          runID.String,
		LogPath:        logPath.String,
		ManualTitle:    manualTitle.String,
	}
	if overridden.Valid {
		job.Overridden = overridden.Int64 != 0
	}
	if hasNiceTitle.Valid {
		job.HasNiceTitle = hasNiceTitle.Int64 != 0
	}

	if started, err := parseTimeString(startedRaw.String); err == nil {
		job.StartedAt = started
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			job.FinishedAt = &finished
		}
	}
	return job, nil
}

func scanTrack(scanner interface{ Scan(dest ...any) error }) (*Track, error) {
	var (
		id          int64
		jobID       int64
		trackNumber string
		length      sql.NullInt64
		aspectRatio sql.NullString
		fps         sql.NullFloat64
		mainFeature sql.NullInt64
		source      sql.NullString
		basename    sql.NullString
		filename    sql.NullString
		ripped      sql.NullInt64
		createdRaw  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&jobID,
		&trackNumber,
		&length,
		&aspectRatio,
		&fps,
		&mainFeature,
		&source,
		&basename,
		&filename,
		&ripped,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	track := &Track{
		ID:          id,
		JobID:       jobID,
		TrackNumber: trackNumber,
		Length:      int(length.Int64),
		AspectRatio: aspectRatio.String,
		FPS:         fps.Float64,
		Source:      source.String,
		Basename:    basename.String,
		Filename:    filename.String,
	}
	if mainFeature.Valid {
		track.MainFeature = mainFeature.Int64 != 0
	}
	if ripped.Valid {
		track.Ripped = ripped.Int64 != 0
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		track.CreatedAt = created
	}
	return track, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	return value.UTC().Format(storedTimeLayout)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
