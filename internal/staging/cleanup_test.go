package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"podcastforge/internal/logging"
)

func mkdirAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	if age > 0 {
		stamp := time.Now().Add(-age)
		if err := os.Chtimes(path, stamp, stamp); err != nil {
			t.Fatalf("set time: %v", err)
		}
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldWorkDirectories(t *testing.T) {
	tmpDir := t.TempDir()

	oldDir := filepath.Join(tmpDir, "episode-123")
	mkdirAged(t, oldDir, 48*time.Hour)
	recentDir := filepath.Join(tmpDir, "clip-456")
	mkdirAged(t, recentDir, 0)
	foreign := filepath.Join(tmpDir, "keep-me")
	mkdirAged(t, foreign, 48*time.Hour)

	result := CleanStale(context.Background(), tmpDir, 24*time.Hour, logging.NewNop())

	if len(result.Removed) != 1 || result.Removed[0] != oldDir {
		t.Fatalf("expected only %s removed, got %v", oldDir, result.Removed)
	}
	if _, err := os.Stat(oldDir); !os.IsNotExist(err) {
		t.Error("old work directory should have been removed")
	}
	if _, err := os.Stat(recentDir); err != nil {
		t.Error("recent work directory should still exist")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Error("directories without a work prefix must be left alone")
	}
}

func TestCleanStaleIgnoresFiles(t *testing.T) {
	tmpDir := t.TempDir()
	file := filepath.Join(tmpDir, "video-notes.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	stamp := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(file, stamp, stamp); err != nil {
		t.Fatalf("set time: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, logging.NewNop())
	if len(result.Removed) != 0 {
		t.Fatalf("files must not be removed, got %v", result.Removed)
	}
}

func TestListDirectoriesInvalidPaths(t *testing.T) {
	for _, path := range []string{"", "/nonexistent/path/12345"} {
		dirs, err := ListDirectories(path)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", path, err)
		}
		if dirs != nil {
			t.Errorf("expected nil for path %q, got %v", path, dirs)
		}
	}
}

func TestSummarize(t *testing.T) {
	tmpDir := t.TempDir()
	older := filepath.Join(tmpDir, "video-abc")
	mkdirAged(t, older, 2*time.Hour)
	newer := filepath.Join(tmpDir, "episode-def")
	mkdirAged(t, newer, 0)
	if err := os.WriteFile(filepath.Join(newer, "turn-0.mp3"), []byte("12345"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "stray.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	usage, err := Summarize(tmpDir)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if usage.Directories != 2 || usage.Bytes != 5 {
		t.Fatalf("unexpected usage %+v", usage)
	}
	info, err := os.Stat(older)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !usage.Oldest.Equal(info.ModTime()) {
		t.Fatalf("expected oldest %v, got %v", info.ModTime(), usage.Oldest)
	}
}
