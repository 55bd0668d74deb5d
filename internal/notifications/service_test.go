package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"platter/internal/config"
	"platter/internal/jobs"
	"platter/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.RipFinished(context.Background(), &jobs.Job{ID: 1, Title: "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func newCaptureServer(t *testing.T, sink *captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		sink.title = r.Header.Get("Title")
		sink.tags = r.Header.Get("Tags")
		sink.priority = r.Header.Get("Priority")
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		sink.body = string(body)
		_ = r.Body.Close()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	job := &jobs.Job{ID: 12, Device: "/dev/sr0", Label: "ALPHA", Title: "Alpha (2001)", DiscType: jobs.DiscBluray}

	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name:          "rip started video",
			send:          func(svc notifications.Service) error { return svc.RipStarted(context.Background(), job) },
			expectTitle:   "platter - Rip Started",
			expectMessage: "Started ripping: Alpha (2001) (job 12)",
			expectTags:    "platter,rip,started",
		},
		{
			name: "rip started music",
			send: func(svc notifications.Service) error {
				music := &jobs.Job{ID: 3, Label: "MIX_CD", DiscType: jobs.DiscMusic}
				return svc.RipStarted(context.Background(), music)
			},
			expectTitle:   "platter - Rip Started",
			expectMessage: "Ripping audio CD: MIX_CD (job 3)",
			expectTags:    "platter,music,started",
		},
		{
			name:          "rip finished",
			send:          func(svc notifications.Service) error { return svc.RipFinished(context.Background(), job) },
			expectTitle:   "platter - Rip Complete",
			expectMessage: "💿 Rip complete: Alpha (2001) (job 12)",
			expectTags:    "platter,rip,completed",
		},
		{
			name: "rip failed",
			send: func(svc notifications.Service) error {
				return svc.RipFailed(context.Background(), job, "makemkvcon exited 1")
			},
			expectTitle:    "platter - Rip Failed",
			expectMessage:  "❌ Rip failed: Alpha (2001)\nmakemkvcon exited 1 (job 12)",
			expectTags:     "platter,rip,failed",
			expectPriority: "high",
		},
		{
			name:          "duplicate disc",
			send:          func(svc notifications.Service) error { return svc.DuplicateDisc(context.Background(), job) },
			expectTitle:   "platter - Duplicate Disc",
			expectMessage: "Disc already ripped: Alpha (2001) (job 12)",
			expectTags:    "platter,duplicate",
		},
		{
			name: "unknown disc",
			send: func(svc notifications.Service) error {
				unknown := &jobs.Job{ID: 8, Device: "/dev/sr1", DiscType: jobs.DiscUnknown}
				return svc.UnknownDisc(context.Background(), unknown)
			},
			expectTitle:    "platter - Unknown Disc",
			expectMessage:  "Could not classify disc in /dev/sr1; nothing ripped (job 8)",
			expectTags:     "platter,unknown",
			expectPriority: "high",
		},
		{
			name: "fatal error",
			send: func(svc notifications.Service) error {
				return svc.FatalError(context.Background(), job, "library unwritable")
			},
			expectTitle:    "platter - Error",
			expectMessage:  "❌ Fatal: library unwritable (job 12)",
			expectTags:     "platter,error,alert",
			expectPriority: "urgent",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got captured
			server := newCaptureServer(t, &got)

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceOmitsJobSuffixWhenDisabled(t *testing.T) {
	var got captured
	server := newCaptureServer(t, &got)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.IncludeJobID = false

	svc := notifications.NewService(&cfg)
	if err := svc.RipFinished(context.Background(), &jobs.Job{ID: 4, Title: "Beta"}); err != nil {
		t.Fatalf("notification returned error: %v", err)
	}
	if got.body != "💿 Rip complete: Beta" {
		t.Fatalf("unexpected message %q", got.body)
	}
}

func TestNtfyServiceReportsHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such topic", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.Test(context.Background()); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}
