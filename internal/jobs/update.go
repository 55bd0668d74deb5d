package jobs

import "time"

// Ptr returns a pointer to v, for populating optional JobUpdate fields.
func Ptr[T any](v T) *T { return &v }

// JobUpdate enumerates the mutable fields of a Job. Nil fields are left
// untouched; only the populated ones are written. Unknown fields cannot be
// smuggled in: this struct is the whole mutation surface.
type JobUpdate struct {
	Status         *Status
	DiscType       *DiscType
	VideoType      *string
	Title          *string
	Year           *string
	PosterURL      *string
	ErrorMessage   *string
	Fingerprint    *string
	PID            *int
	PIDFingerprint *string
	LogPath        *string
	ManualTitle    *string
	Overridden     *bool
	HasNiceTitle   *bool
	FinishedAt     *time.Time
}

func (u JobUpdate) isEmpty() bool {
	return u.Status == nil &&
		u.DiscType == nil &&
		u.VideoType == nil &&
		u.Title == nil &&
		u.Year == nil &&
		u.PosterURL == nil &&
		u.ErrorMessage == nil &&
		u.Fingerprint == nil &&
		u.PID == nil &&
		u.PIDFingerprint == nil &&
		u.LogPath == nil &&
		u.ManualTitle == nil &&
		u.Overridden == nil &&
		u.HasNiceTitle == nil &&
		u.FinishedAt == nil
}

// assignments returns the SET fragments and bind arguments for the populated
// fields, excluding updated_at which Apply always writes.
func (u JobUpdate) assignments() ([]string, []any) {
	columns := make([]string, 0, 15)
	args := make([]any, 0, 15)
	add := func(column string, value any) {
		columns = append(columns, column+" = ?")
		args = append(args, value)
	}
	if u.Status != nil {
		add("status", string(*u.Status))
	}
	if u.DiscType != nil {
		add("disc_type", string(*u.DiscType))
	}
	if u.VideoType != nil {
		add("video_type", nullableString(*u.VideoType))
	}
	if u.Title != nil {
		add("title", nullableString(*u.Title))
	}
	if u.Year != nil {
		add("year", nullableString(*u.Year))
	}
	if u.PosterURL != nil {
		add("poster_url", nullableString(*u.PosterURL))
	}
	if u.ErrorMessage != nil {
		add("error_message", nullableString(*u.ErrorMessage))
	}
	if u.Fingerprint != nil {
		add("fingerprint", nullableString(*u.Fingerprint))
	}
	if u.PID != nil {
		add("pid", *u.PID)
	}
	if u.PIDFingerprint != nil {
		add("pid_fingerprint", nullableString(*u.PIDFingerprint))
	}
	if u.LogPath != nil {
		add("log_path", nullableString(*u.LogPath))
	}
	if u.ManualTitle != nil {
		add("manual_title", nullableString(*u.ManualTitle))
	}
	if u.Overridden != nil {
		add("overridden", boolToInt(*u.Overridden))
	}
	if u.HasNiceTitle != nil {
		add("has_nice_title", boolToInt(*u.HasNiceTitle))
	}
	if u.FinishedAt != nil {
		add("finished_at", formatTime(*u.FinishedAt))
	}
	return columns, args
}
