package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"podcastforge/internal/retry"
	"podcastforge/internal/services"
)

func TestTranscribeReturnsSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/transcriptions" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload["audio_url"] != "https://cdn.example.com/a.mp3" || payload["language"] != "en" {
			t.Fatalf("unexpected payload %v", payload)
		}
		_, _ = w.Write([]byte(`{"task":"transcribe","language":"en","duration":12.5,"text":"hello there","segments":[{"id":0,"start":0,"end":1.5,"text":"hello"},{"id":1,"start":1.5,"end":3,"text":"there"}]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key", Language: "en"}, srv.Client(), nil)
	result, err := client.Transcribe(context.Background(), Request{AudioURL: "https://cdn.example.com/a.mp3"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "hello there" || result.DurationSeconds != 12.5 || len(result.Segments) != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Segments[1].Start != 1.5 {
		t.Fatalf("unexpected segment %+v", result.Segments[1])
	}
}

func TestTranscribeTypedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"Transcription failed","code":"TRANSCRIPTION_FAILED","details":"no speech"}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key"}, srv.Client(), nil)
	_, err := client.Transcribe(context.Background(), Request{AudioURL: "https://x/a.mp3"})
	if !errors.Is(err, services.ErrTranscriptionFailed) {
		t.Fatalf("expected transcription failure, got %v", err)
	}
	var gatewayErr *Error
	if !errors.As(err, &gatewayErr) || gatewayErr.Code != "TRANSCRIPTION_FAILED" {
		t.Fatalf("expected typed gateway error, got %v", err)
	}
}

func TestTranscribeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"language":"en","duration":1,"text":"ok","segments":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key"}, srv.Client(), nil)
	client.retryCfg = retry.Config{MaxRetries: 2, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1, Retryable: isRetryable}
	result, err := client.Transcribe(context.Background(), Request{AudioURL: "https://x/a.mp3"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if result.Text != "ok" || calls.Load() != 2 {
		t.Fatalf("unexpected result %+v after %d calls", result, calls.Load())
	}
}

func TestTranscribeRequiresConfiguration(t *testing.T) {
	client := NewClient(Config{}, nil, nil)
	_, err := client.Transcribe(context.Background(), Request{AudioURL: "https://x/a.mp3"})
	if services.Normalize(err) != services.KindConfigurationMissing {
		t.Fatalf("expected configuration missing, got %v", err)
	}
}

func TestTranscribeEmptyTextFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"language":"en","duration":1,"text":"  ","segments":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, APIKey: "key"}, srv.Client(), nil)
	_, err := client.Transcribe(context.Background(), Request{AudioURL: "https://x/a.mp3"})
	if services.Normalize(err) != services.KindTranscriptionFailed {
		t.Fatalf("expected transcription failure, got %v", err)
	}
}
