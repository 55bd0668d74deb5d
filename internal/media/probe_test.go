package media

import (
	"math"
	"testing"
)

func TestProbeHelpers(t *testing.T) {
	probe := Probe{
		Streams: []Stream{
			{CodecType: "video", DisplayAspectRatio: "16:9", AvgFrameRate: "24000/1001"},
			{CodecType: "audio"},
			{CodecType: "audio"},
		},
		Format: Format{Duration: "123.45"},
	}
	if probe.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", probe.VideoStreamCount())
	}
	if probe.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", probe.AudioStreamCount())
	}
	if probe.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", probe.DurationSeconds())
	}
	if probe.AspectRatio() != "16:9" {
		t.Fatalf("unexpected aspect ratio: %q", probe.AspectRatio())
	}
	if fps := probe.FrameRate(); math.Abs(fps-23.976) > 0.001 {
		t.Fatalf("unexpected frame rate: %v", fps)
	}
}

func TestProbeDurationFallsBackToVideoStream(t *testing.T) {
	probe := Probe{
		Streams: []Stream{{CodecType: "video", Duration: "61.5"}},
	}
	if probe.DurationSeconds() != 61.5 {
		t.Fatalf("unexpected duration: %v", probe.DurationSeconds())
	}
}

func TestProbeAspectRatioDerivedFromDimensions(t *testing.T) {
	probe := Probe{
		Streams: []Stream{{CodecType: "video", Width: 1920, Height: 1080}},
	}
	if probe.AspectRatio() != "16:9" {
		t.Fatalf("unexpected aspect ratio: %q", probe.AspectRatio())
	}
}

func TestProbeFrameRateFallsBackToRFrameRate(t *testing.T) {
	probe := Probe{
		Streams: []Stream{{CodecType: "video", AvgFrameRate: "0/0", RFrameRate: "25/1"}},
	}
	if probe.FrameRate() != 25 {
		t.Fatalf("unexpected frame rate: %v", probe.FrameRate())
	}
}

func TestProbeHandlesInvalidNumbers(t *testing.T) {
	probe := Probe{
		Format: Format{Duration: "bad"},
	}
	if probe.DurationSeconds() != 0 {
		t.Fatalf("expected zero duration, got %v", probe.DurationSeconds())
	}
	if probe.AspectRatio() != "" {
		t.Fatalf("expected empty aspect ratio, got %q", probe.AspectRatio())
	}
	if probe.FrameRate() != 0 {
		t.Fatalf("expected zero frame rate, got %v", probe.FrameRate())
	}
}
