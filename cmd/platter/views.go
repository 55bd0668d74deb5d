package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"platter/internal/jobs"
)

type statusCount struct {
	status jobs.Status
	count  int
}

// orderedCounts flattens a per-status count map into lifecycle order.
func orderedCounts(counts map[jobs.Status]int) []statusCount {
	if len(counts) == 0 {
		return nil
	}
	ordered := make([]statusCount, 0, len(counts))
	for _, status := range jobs.AllStatuses() {
		count, ok := counts[status]
		if !ok {
			continue
		}
		ordered = append(ordered, statusCount{status: status, count: count})
	}
	return ordered
}

func buildJobRows(items []*jobs.Job) [][]string {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]*jobs.Job, len(items))
	copy(sorted, items)

	sort.Slice(sorted, func(i, j int) bool {
		ti, tj := sorted[i].StartedAt, sorted[j].StartedAt
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})

	rows := make([][]string, 0, len(sorted))
	for _, job := range sorted {
		title := strings.TrimSpace(job.DisplayTitle())
		if title == "" {
			title = "Unknown"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", job.ID),
			title,
			string(job.DiscType),
			formatStatusLabel(string(job.Status)),
			formatRelativeTime(job.StartedAt),
			formatFingerprint(job.Fingerprint),
		})
	}
	return rows
}

func buildTrackRows(tracks []*jobs.Track) [][]string {
	rows := make([][]string, 0, len(tracks))
	for _, track := range tracks {
		rows = append(rows, []string{
			track.TrackNumber,
			formatSeconds(track.Length),
			track.AspectRatio,
			fmt.Sprintf("%.2f", track.FPS),
			yesNo(track.MainFeature),
			yesNo(track.Ripped),
			track.Filename,
		})
	}
	return rows
}

func formatStatusLabel(status string) string {
	status = strings.TrimSpace(status)
	if status == "" {
		return ""
	}
	parts := strings.Split(status, "_")
	for i, part := range parts {
		lower := strings.ToLower(part)
		if lower == "" {
			continue
		}
		parts[i] = strings.ToUpper(lower[:1]) + lower[1:]
	}
	return strings.Join(parts, " ")
}

func formatDisplayTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format("2006-01-02 15:04")
}

func formatRelativeTime(value time.Time) string {
	if value.IsZero() {
		return "-"
	}
	return humanize.Time(value)
}

func formatFingerprint(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	if len(value) > 12 {
		return value[:12]
	}
	return value
}

func formatSeconds(length int) string {
	if length <= 0 {
		return "-"
	}
	d := time.Duration(length) * time.Second
	if d >= time.Hour {
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), length%60)
}

func renderDetailLine(label, value string) string {
	if strings.TrimSpace(value) == "" {
		value = "-"
	}
	return fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", value)
}
