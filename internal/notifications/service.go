package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"platter/internal/config"
	"platter/internal/jobs"
)

const userAgent = "Platter/0.1.0"

// Service defines the notification surface exposed to workflow components.
// Every send is best-effort; callers must treat a returned error as
// log-and-continue.
type Service interface {
	RipStarted(ctx context.Context, job *jobs.Job) error
	RipFinished(ctx context.Context, job *jobs.Job) error
	RipFailed(ctx context.Context, job *jobs.Job, cause string) error
	DuplicateDisc(ctx context.Context, job *jobs.Job) error
	UnknownDisc(ctx context.Context, job *jobs.Job) error
	FatalError(ctx context.Context, job *jobs.Job, message string) error
	Test(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	name := strings.TrimSpace(cfg.Notifications.Name)
	if name == "" {
		name = "platter"
	}

	return &ntfyService{
		endpoint:     topic,
		name:         name,
		includeJobID: cfg.Notifications.IncludeJobID,
		client:       &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	name         string
	includeJobID bool
	client       *http.Client
}

func (n *ntfyService) RipStarted(ctx context.Context, job *jobs.Job) error {
	var message string
	var tags []string
	switch job.DiscType {
	case jobs.DiscMusic:
		message = fmt.Sprintf("Ripping audio CD: %s", job.DisplayTitle())
		tags = []string{"platter", "music", "started"}
	case jobs.DiscData:
		message = fmt.Sprintf("Imaging data disc: %s", job.DisplayTitle())
		tags = []string{"platter", "data", "started"}
	default:
		message = fmt.Sprintf("Started ripping: %s", job.DisplayTitle())
		tags = []string{"platter", "rip", "started"}
	}
	data := payload{
		title:   n.heading("Rip Started"),
		message: n.withJob(job, message),
		tags:    tags,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) RipFinished(ctx context.Context, job *jobs.Job) error {
	data := payload{
		title:   n.heading("Rip Complete"),
		message: n.withJob(job, fmt.Sprintf("💿 Rip complete: %s", job.DisplayTitle())),
		tags:    []string{"platter", "rip", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) RipFailed(ctx context.Context, job *jobs.Job, cause string) error {
	cause = strings.TrimSpace(cause)
	if cause == "" {
		cause = "unknown error"
	}
	data := payload{
		title:    n.heading("Rip Failed"),
		message:  n.withJob(job, fmt.Sprintf("❌ Rip failed: %s\n%s", job.DisplayTitle(), cause)),
		tags:     []string{"platter", "rip", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) DuplicateDisc(ctx context.Context, job *jobs.Job) error {
	data := payload{
		title:   n.heading("Duplicate Disc"),
		message: n.withJob(job, fmt.Sprintf("Disc already ripped: %s", job.DisplayTitle())),
		tags:    []string{"platter", "duplicate"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) UnknownDisc(ctx context.Context, job *jobs.Job) error {
	data := payload{
		title:    n.heading("Unknown Disc"),
		message:  n.withJob(job, fmt.Sprintf("Could not classify disc in %s; nothing ripped", job.Device)),
		tags:     []string{"platter", "unknown"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) FatalError(ctx context.Context, job *jobs.Job, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown"
	}
	data := payload{
		title:    n.heading("Error"),
		message:  n.withJob(job, fmt.Sprintf("❌ Fatal: %s", message)),
		tags:     []string{"platter", "error", "alert"},
		priority: "urgent",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) Test(ctx context.Context) error {
	data := payload{
		title:    n.heading("Test"),
		message:  "Notification test",
		tags:     []string{"platter", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) heading(event string) string {
	return n.name + " - " + event
}

func (n *ntfyService) withJob(job *jobs.Job, message string) string {
	if !n.includeJobID || job == nil || job.ID == 0 {
		return message
	}
	return fmt.Sprintf("%s (job %d)", message, job.ID)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) RipStarted(context.Context, *jobs.Job) error         { return nil }
func (noopService) RipFinished(context.Context, *jobs.Job) error        { return nil }
func (noopService) RipFailed(context.Context, *jobs.Job, string) error  { return nil }
func (noopService) DuplicateDisc(context.Context, *jobs.Job) error      { return nil }
func (noopService) UnknownDisc(context.Context, *jobs.Job) error        { return nil }
func (noopService) FatalError(context.Context, *jobs.Job, string) error { return nil }
func (noopService) Test(context.Context) error                          { return nil }
