package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"podcastforge/internal/services/llm"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/storage"
	"podcastforge/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckLLM_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	client := llm.NewClient(llm.Config{APIKey: "good-key", BaseURL: srv.URL, Models: []string{"m"}})
	result := CheckLLM(context.Background(), "LLM", client)
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckLLM_BadKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	client := llm.NewClient(llm.Config{APIKey: "bad-key", BaseURL: srv.URL, Models: []string{"m"}})
	result := CheckLLM(context.Background(), "LLM", client)
	if result.Passed {
		t.Fatal("expected failure for rejected key")
	}
}

type voicesStub struct {
	voices []tts.Voice
	err    error
}

func (s voicesStub) Voices(context.Context) ([]tts.Voice, error) { return s.voices, s.err }

func TestCheckVoices(t *testing.T) {
	if r := CheckVoices(context.Background(), "TTS", voicesStub{voices: []tts.Voice{{SpeakerID: "a"}}}); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckVoices(context.Background(), "TTS", voicesStub{}); r.Passed {
		t.Fatal("expected failure for empty catalog")
	}
	if r := CheckVoices(context.Background(), "TTS", voicesStub{err: errors.New("refused")}); r.Passed || r.Detail != "refused" {
		t.Fatalf("expected failure with detail, got %+v", r)
	}
}

func TestCheckStorageRoundTrip(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	result := CheckStorage(context.Background(), store)
	if !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}
	if _, err := store.Open(context.Background(), probeKey); err == nil {
		t.Fatal("expected probe object to be removed")
	}
}

func TestRunAllReportsMissingBinaries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.FFmpegBinary = "definitely-not-ffmpeg"
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(context.Background(), cfg, Targets{})
	var sawFFmpeg bool
	for _, r := range Failed(results) {
		if r.Name == "FFmpeg" {
			sawFFmpeg = true
		}
		if r.Name == "Data directory" {
			t.Fatalf("data directory should pass: %s", r.Detail)
		}
	}
	if !sawFFmpeg {
		t.Fatalf("expected FFmpeg failure in %+v", results)
	}
}
