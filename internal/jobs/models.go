package jobs

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a rip job.
type Status string

const (
	StatusIdentifying Status = "identifying"
	StatusWaiting     Status = "waiting"
	StatusActive      Status = "active"
	StatusSuccess     Status = "success"
	StatusFailed      Status = "fail"
)

var allStatuses = []Status{
	StatusIdentifying,
	StatusWaiting,
	StatusActive,
	StatusSuccess,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// Transitions only ever move forward; terminal states admit nothing.
var allowedTransitions = map[Status][]Status{
	StatusIdentifying: {StatusWaiting, StatusActive, StatusFailed},
	StatusWaiting:     {StatusActive, StatusFailed},
	StatusActive:      {StatusSuccess, StatusFailed},
	StatusSuccess:     {},
	StatusFailed:      {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward step.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DiscType classifies the physical medium in the drive.
type DiscType string

const (
	DiscUnknown DiscType = "unknown"
	DiscDVD     DiscType = "dvd"
	DiscBluray  DiscType = "bluray"
	DiscMusic   DiscType = "music"
	DiscData    DiscType = "data"
)

// ParseDiscType converts a string into a known DiscType.
func ParseDiscType(value string) (DiscType, bool) {
	normalized := DiscType(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case DiscDVD, DiscBluray, DiscMusic, DiscData, DiscUnknown:
		return normalized, true
	default:
		return "", false
	}
}

// Video reports whether the disc type is handled by the video rip path.
func (d DiscType) Video() bool {
	return d == DiscDVD || d == DiscBluray
}

// Video types used for library placement of dvd/bluray rips.
const (
	VideoMovie  = "movie"
	VideoSeries = "series"
)

// Job is the central entity: one rip attempt of one disc.
//
// The identifier is immutable after creation and status transitions only move
// forward. The rip process owns every field except ManualTitle and Overridden,
// which a concurrently running UI or CLI may write while the job sits in
// StatusWaiting; the rip process only ever reads those two.
type Job struct {
	ID             int64
	Device         string
	Label          string
	Fingerprint    string
	DiscType       DiscType
	VideoType      string
	Title          string
	Year           string
	PosterURL      string
	Status         Status
	ErrorMessage   string
	PID            int
	PIDFingerprint string
	RunID          string
	LogPath        string
	ManualTitle    string
	Overridden     bool
	HasNiceTitle   bool
	StartedAt      time.Time
	UpdatedAt      time.Time
	FinishedAt     *time.Time
}

// DisplayTitle returns the best human-readable name for the job.
func (j *Job) DisplayTitle() string {
	if j == nil {
		return ""
	}
	if title := strings.TrimSpace(j.Title); title != "" {
		return title
	}
	return strings.TrimSpace(j.Label)
}

// Track is one ripped title/stream candidate, child of a Job. Immutable once
// written except for the Ripped flag derived at creation time.
type Track struct {
	ID          int64
	JobID       int64
	TrackNumber string
	Length      int
	AspectRatio string
	FPS         float64
	MainFeature bool
	Source      string
	Basename    string
	Filename    string
	Ripped      bool
	CreatedAt   time.Time
}

// Stats aggregates job counts per lifecycle state.
type Stats struct {
	Total       int
	Identifying int
	Waiting     int
	Active      int
	Success     int
	Failed      int
}
