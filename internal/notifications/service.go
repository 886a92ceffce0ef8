package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podcastforge/internal/config"
)

const userAgent = "podcastforge/0.1.0"

// Event names a notification kind.
type Event string

const (
	EventTaskCompleted   Event = "task_completed"
	EventTaskFailed      Event = "task_failed"
	EventHighlightsReady Event = "highlights_ready"
	EventTest            Event = "test"
)

// Payload carries event fields. Keys used: title, taskId, owner, message,
// errorKind, count, failed.
type Payload map[string]any

// Service publishes task lifecycle notifications.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a noop when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
		enabled: map[Event]bool{
			EventTaskCompleted:   cfg.Notifications.TaskCompleted,
			EventTaskFailed:      cfg.Notifications.TaskFailed,
			EventHighlightsReady: cfg.Notifications.Highlights,
			EventTest:            true,
		},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	enabled  map[Event]bool
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if n == nil || !n.enabled[event] {
		return nil
	}
	msg, ok := format(event, payload)
	if !ok {
		return fmt.Errorf("unknown notification event %q", event)
	}
	return n.send(ctx, msg)
}

func format(event Event, payload Payload) (message, bool) {
	title := payload.text("title")
	if title == "" {
		title = "Untitled podcast"
	}
	switch event {
	case EventTaskCompleted:
		return message{
			title: "podcastforge - Podcast Ready",
			body:  fmt.Sprintf("🎙️ Podcast ready: %s", title),
			tags:  []string{"podcastforge", "task", "completed"},
		}, true
	case EventTaskFailed:
		body := fmt.Sprintf("❌ Podcast failed: %s", title)
		if reason := payload.text("message"); reason != "" {
			body += "\n" + reason
		}
		tags := []string{"podcastforge", "task", "failed"}
		if kind := payload.text("errorKind"); kind != "" {
			tags = append(tags, kind)
		}
		return message{title: "podcastforge - Task Failed", body: body, tags: tags, priority: "high"}, true
	case EventHighlightsReady:
		body := fmt.Sprintf("✂️ %s highlight(s) ready: %s", payload.text("count"), title)
		if failed := payload.text("failed"); failed != "" && failed != "0" {
			body += fmt.Sprintf(" (%s skipped)", failed)
		}
		return message{
			title: "podcastforge - Highlights Ready",
			body:  body,
			tags:  []string{"podcastforge", "highlights"},
		}, true
	case EventTest:
		return message{
			title:    "podcastforge - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"podcastforge", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func (p Payload) text(key string) string {
	if p == nil {
		return ""
	}
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
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

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
