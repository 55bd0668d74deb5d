// Package media inspects ripped files with ffprobe. Track records store the
// probed duration, aspect ratio, and frame rate.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Probe represents the parsed output from an ffprobe inspection.
type Probe struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index              int    `json:"index"`
	CodecName          string `json:"codec_name"`
	CodecType          string `json:"codec_type"`
	Duration           string `json:"duration"`
	Width              int    `json:"width"`
	Height             int    `json:"height"`
	DisplayAspectRatio string `json:"display_aspect_ratio"`
	AvgFrameRate       string `json:"avg_frame_rate"`
	RFrameRate         string `json:"r_frame_rate"`
	Channels           int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect executes ffprobe against the provided path and decodes the JSON
// response.
func Inspect(ctx context.Context, binary string, path string) (Probe, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Probe{}, errors.New("ffprobe inspect: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Probe{}, fmt.Errorf("ffprobe inspect: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var probe Probe
	if err := json.Unmarshal(output, &probe); err != nil {
		return Probe{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return probe, nil
}

// DurationSeconds returns the container duration in seconds, falling back to
// the first video stream's duration. Zero when neither is parseable.
func (p Probe) DurationSeconds() float64 {
	if d := parseFloat(p.Format.Duration); d > 0 {
		return d
	}
	if video, ok := p.videoStream(); ok {
		return parseFloat(video.Duration)
	}
	return 0
}

// AspectRatio returns the first video stream's display aspect ratio (for
// example "16:9"), deriving one from the pixel dimensions when ffprobe does
// not report it. Empty when there is no video stream.
func (p Probe) AspectRatio() string {
	video, ok := p.videoStream()
	if !ok {
		return ""
	}
	if ratio := strings.TrimSpace(video.DisplayAspectRatio); ratio != "" {
		return ratio
	}
	if video.Width > 0 && video.Height > 0 {
		div := gcd(video.Width, video.Height)
		return fmt.Sprintf("%d:%d", video.Width/div, video.Height/div)
	}
	return ""
}

// FrameRate returns the first video stream's average frame rate in frames
// per second, or zero when unavailable.
func (p Probe) FrameRate() float64 {
	video, ok := p.videoStream()
	if !ok {
		return 0
	}
	if rate := parseRate(video.AvgFrameRate); rate > 0 {
		return rate
	}
	return parseRate(video.RFrameRate)
}

// VideoStreamCount returns the number of video streams discovered.
func (p Probe) VideoStreamCount() int {
	count := 0
	for _, stream := range p.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			count++
		}
	}
	return count
}

// AudioStreamCount returns the number of audio streams discovered.
func (p Probe) AudioStreamCount() int {
	count := 0
	for _, stream := range p.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			count++
		}
	}
	return count
}

func (p Probe) videoStream() (Stream, bool) {
	for _, stream := range p.Streams {
		if strings.EqualFold(stream.CodecType, "video") {
			return stream, true
		}
	}
	return Stream{}, false
}

// parseRate handles ffprobe's rational rate notation ("24000/1001") as well
// as plain decimals.
func parseRate(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if num, den, found := strings.Cut(cleaned, "/"); found {
		n := parseFloat(num)
		d := parseFloat(den)
		if n <= 0 || d <= 0 {
			return 0
		}
		return n / d
	}
	return parseFloat(cleaned)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
