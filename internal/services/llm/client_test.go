package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"podcastforge/internal/retry"
	"podcastforge/internal/services"
)

func writeCompletion(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	payload := map[string]any{"choices": []any{choice}}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func fastRetry() Option {
	return WithRetry(retry.Config{
		MaxRetries:  2,
		InitialWait: time.Millisecond,
		MaxWait:     time.Millisecond,
		Multiplier:  1,
		Retryable:   isRetryable,
	})
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected auth header %q", got)
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Models: []string{"demo-model"}})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := NewClient(Config{Models: []string{"demo"}})
	_, err := client.Complete(context.Background(), Request{User: "hello"})
	if !errors.Is(err, services.ErrConfigurationMissing) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, services.ErrConfigurationMissing) {
		t.Fatalf("expected configuration error from health check, got %v", err)
	}
}

func TestClientFallsBackToNextModel(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		mu.Lock()
		seen = append(seen, req.Model)
		mu.Unlock()
		if req.Model == "primary" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"model unavailable"}}`))
			return
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": `{"title":"ok"}`}})
	}))
	defer server.Close()

	var attempts []string
	observer := WithAttemptObserver(func(model, outcome string) {
		attempts = append(attempts, model+"="+outcome)
	})
	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Models: []string{"primary", "secondary"}}, fastRetry(), observer)
	resp, err := client.Complete(context.Background(), Request{System: "sys", User: "hello", JSON: true})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Model != "secondary" {
		t.Fatalf("expected secondary model, got %q", resp.Model)
	}
	if strings.Join(seen, ",") != "primary,secondary" {
		t.Fatalf("unexpected model order %v", seen)
	}
	if strings.Join(attempts, ",") != "primary=error,secondary=ok" {
		t.Fatalf("unexpected observed attempts %v", attempts)
	}
}

func TestClientAllModelsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Models: []string{"a", "b"}}, fastRetry())
	_, err := client.Complete(context.Background(), Request{User: "hello"})
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}
	var status *StatusError
	if !errors.As(err, &status) || status.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 status error, got %v", err)
	}
	if len(exhausted.Attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(exhausted.Attempts))
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeCompletion(t, w, map[string]any{"message": map[string]any{"content": "hi"}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Models: []string{"only"}}, fastRetry())
	resp, err := client.Complete(context.Background(), Request{User: "hello"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "hi" || calls != 2 {
		t.Fatalf("unexpected response %q after %d calls", resp.Content, calls)
	}
}

func TestClientRetriesOnEmptyContent(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "finally"
		}
		writeCompletion(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Models: []string{"only"}}, fastRetry())
	resp, err := client.Complete(context.Background(), Request{User: "hello"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "finally" || calls != 3 {
		t.Fatalf("unexpected response %q after %d calls", resp.Content, calls)
	}
}

func TestExtractCompletionPayloadVariants(t *testing.T) {
	tests := []struct {
		name   string
		choice string
		want   string
	}{
		{"message", `{"message":{"content":"a"}}`, "a"},
		{"delta", `{"delta":{"content":"b"}}`, "b"},
		{"legacy text", `{"text":"c"}`, "c"},
		{"tool call", `{"message":{"tool_calls":[{"function":{"name":"x","arguments":"{\"d\":1}"}}]}}`, `{"d":1}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var completion chatCompletionResponse
			if err := json.Unmarshal([]byte(`{"choices":[`+tc.choice+`]}`), &completion); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			got, _ := extractCompletionPayload(completion)
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("unexpected %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("soon"); ok {
		t.Fatal("expected invalid value to be rejected")
	}
}
