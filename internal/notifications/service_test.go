package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podcastforge/internal/config"
	"podcastforge/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTaskCompleted, notifications.Payload{"title": "Example"}); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

type captured struct {
	title, body, tags, priority string
}

func newServer(t *testing.T) (*httptest.Server, *[]captured) {
	t.Helper()
	var got []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, captured{
			title:    r.Header.Get("Title"),
			body:     string(body),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
		})
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		event          notifications.Event
		payload        notifications.Payload
		expectTitle    string
		expectBody     string
		expectTags     string
		expectPriority string
	}{
		{
			name:        "completed",
			event:       notifications.EventTaskCompleted,
			payload:     notifications.Payload{"title": "Tea Through The Ages"},
			expectTitle: "podcastforge - Podcast Ready",
			expectBody:  "🎙️ Podcast ready: Tea Through The Ages",
			expectTags:  "podcastforge,task,completed",
		},
		{
			name:           "failed",
			event:          notifications.EventTaskFailed,
			payload:        notifications.Payload{"title": "", "message": "We could not retrieve the source content.", "errorKind": "source_fetch_failed"},
			expectTitle:    "podcastforge - Task Failed",
			expectBody:     "❌ Podcast failed: Untitled podcast\nWe could not retrieve the source content.",
			expectTags:     "podcastforge,task,failed,source_fetch_failed",
			expectPriority: "high",
		},
		{
			name:        "highlights",
			event:       notifications.EventHighlightsReady,
			payload:     notifications.Payload{"title": "Tea", "count": 2, "failed": 1},
			expectTitle: "podcastforge - Highlights Ready",
			expectBody:  "✂️ 2 highlight(s) ready: Tea (1 skipped)",
			expectTags:  "podcastforge,highlights",
		},
		{
			name:           "test",
			event:          notifications.EventTest,
			expectTitle:    "podcastforge - Test",
			expectBody:     "🧪 Notification system test",
			expectTags:     "podcastforge,test",
			expectPriority: "low",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv, got := newServer(t)
			cfg := config.Default()
			cfg.Notifications.NtfyTopic = srv.URL
			svc := notifications.NewService(&cfg)
			if err := svc.Publish(context.Background(), tc.event, tc.payload); err != nil {
				t.Fatalf("Publish: %v", err)
			}
			if len(*got) != 1 {
				t.Fatalf("expected one request, got %d", len(*got))
			}
			req := (*got)[0]
			if req.title != tc.expectTitle || req.body != tc.expectBody || req.tags != tc.expectTags || req.priority != tc.expectPriority {
				t.Fatalf("unexpected request %+v", req)
			}
		})
	}
}

func TestNtfyServiceRespectsToggles(t *testing.T) {
	srv, got := newServer(t)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.TaskCompleted = false
	svc := notifications.NewService(&cfg)
	if err := svc.Publish(context.Background(), notifications.EventTaskCompleted, notifications.Payload{"title": "x"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("disabled event should not be sent, got %d requests", len(*got))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic blocked", http.StatusForbidden)
	}))
	defer srv.Close()
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	err := notifications.NewService(&cfg).Publish(context.Background(), notifications.EventTest, nil)
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
