package audioclip

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"podcastforge/internal/media/ffmpeg"
	"podcastforge/internal/services"
	"podcastforge/internal/storage"
)

type recordingCutter struct {
	input    string
	start    float64
	duration float64
	bitrate  string
	err      error
}

func (c *recordingCutter) Cut(_ context.Context, input, output string, start, duration float64, bitrate string) error {
	c.input, c.start, c.duration, c.bitrate = input, start, duration, bitrate
	if c.err != nil {
		return c.err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}
	return os.WriteFile(output, append([]byte("clip:"), data...), 0o644)
}

func newService(t *testing.T, cutter Cutter) (*Service, *storage.Local, string) {
	t.Helper()
	store, err := storage.NewLocal(filepath.Join(t.TempDir(), "objects"), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	tmp := t.TempDir()
	svc := New(Config{TempDir: tmp}, store, cutter, nil, nil)
	svc.now = func() time.Time { return time.UnixMilli(1700000000123) }
	return svc, store, tmp
}

var clipKey = regexp.MustCompile(`^podcast-highlights/alice/task-1/highlight_1700000000123_[a-z0-9]{6}\.mp3$`)

func TestClipFromStorage(t *testing.T) {
	cutter := &recordingCutter{}
	svc, store, tmp := newService(t, cutter)
	ctx := context.Background()
	sourceURL, err := store.Put(ctx, "podcast-episodes/alice/ep.mp3", []byte("episode"), "audio/mpeg")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	clip, err := svc.Clip(ctx, ClipRequest{SourceURL: sourceURL, Start: 6, Duration: 40, OwnerID: "alice", TaskID: "task-1"})
	if err != nil {
		t.Fatalf("Clip: %v", err)
	}
	if !clipKey.MatchString(clip.Key) {
		t.Fatalf("unexpected key %q", clip.Key)
	}
	if cutter.start != 6 || cutter.duration != 40 || cutter.bitrate != ffmpeg.DefaultClipBitrate {
		t.Fatalf("unexpected cut %+v", cutter)
	}
	data, err := storage.ReadAll(ctx, store, clip.Key)
	if err != nil || string(data) != "clip:episode" {
		t.Fatalf("unexpected clip %q err=%v", data, err)
	}
	if entries, _ := os.ReadDir(tmp); len(entries) != 0 {
		t.Fatalf("expected temp dir cleanup, found %d entries", len(entries))
	}
}

func TestClipFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/episode.mp3" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("remote"))
	}))
	defer srv.Close()

	svc, store, _ := newService(t, &recordingCutter{})
	clip, err := svc.Clip(context.Background(), ClipRequest{SourceURL: srv.URL + "/episode.mp3", Duration: 20, OwnerID: "alice", TaskID: "task-1"})
	if err != nil {
		t.Fatalf("Clip: %v", err)
	}
	data, _ := storage.ReadAll(context.Background(), store, clip.Key)
	if string(data) != "clip:remote" {
		t.Fatalf("unexpected clip %q", data)
	}

	_, err = svc.Clip(context.Background(), ClipRequest{SourceURL: srv.URL + "/missing.mp3", Duration: 20})
	if services.Normalize(err) != services.KindSourceFetchFailed {
		t.Fatalf("expected source fetch failure, got %v", err)
	}
}

type brokenStore struct{ storage.Store }

func (brokenStore) Put(context.Context, string, []byte, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestClipFailureKinds(t *testing.T) {
	ctx := context.Background()
	cutter := &recordingCutter{err: errors.New("exit status 1")}
	svc, store, tmp := newService(t, cutter)
	if _, err := store.Put(ctx, "ep.mp3", []byte("x"), "audio/mpeg"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := svc.Clip(ctx, ClipRequest{SourceKey: "ep.mp3", Duration: 20}); services.Normalize(err) != services.KindSynthesisFailed {
		t.Fatalf("expected cut failure to be synthesis failed, got %v", err)
	}
	if _, err := svc.Clip(ctx, ClipRequest{SourceKey: "missing.mp3", Duration: 20}); services.Normalize(err) != services.KindSourceFetchFailed {
		t.Fatalf("expected source fetch failure, got %v", err)
	}
	if _, err := svc.Clip(ctx, ClipRequest{SourceKey: "ep.mp3"}); services.Normalize(err) != services.KindInvalidInput {
		t.Fatalf("expected invalid input for zero duration, got %v", err)
	}

	cutter.err = nil
	svc.store = brokenStore{store}
	if _, err := svc.Clip(ctx, ClipRequest{SourceKey: "ep.mp3", Duration: 20}); services.Normalize(err) != services.KindStorageFailed {
		t.Fatalf("expected storage failure, got %v", err)
	}
	if entries, _ := os.ReadDir(tmp); len(entries) != 0 {
		t.Fatalf("expected temp dirs removed after failures, found %d", len(entries))
	}
}
