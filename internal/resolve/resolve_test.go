package resolve_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"podcastforge/internal/progress"
	"podcastforge/internal/resolve"
	"podcastforge/internal/services"
	"podcastforge/internal/services/transcribe"
	"podcastforge/internal/storage"
)

func TestVideoID(t *testing.T) {
	tests := []struct {
		ref  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?feature=share&v=dQw4w9WgXcQ&t=10", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://example.com/watch?v=dQw4w9WgXcQ", ""},
		{"https://youtu.be/short", ""},
		{"", ""},
	}
	for _, tc := range tests {
		if got := resolve.VideoID(tc.ref); got != tc.want {
			t.Fatalf("VideoID(%q) = %q, want %q", tc.ref, got, tc.want)
		}
	}
	if !resolve.SameVideo("https://youtu.be/dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ") {
		t.Fatal("expected equivalent references to match")
	}
	if resolve.SameVideo("https://youtu.be/dQw4w9WgXcQ", "https://youtu.be/aaaaaaaaaaa") {
		t.Fatal("different videos should not match")
	}
	if resolve.SameVideo("", "") {
		t.Fatal("empty references should not match")
	}
}

func TestTextResolver(t *testing.T) {
	content, err := resolve.Text{}.Resolve(context.Background(), "  hello world \n", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if content.Text != "hello world" {
		t.Fatalf("unexpected text %q", content.Text)
	}
	if _, err := (resolve.Text{}).Resolve(context.Background(), "   ", nil); services.Normalize(err) != services.KindInvalidInput {
		t.Fatalf("expected invalid input for blank text, got %v", err)
	}
}

const articleHTML = `<!doctype html>
<html><head><title>Why Tea Matters</title></head>
<body>
<nav>Home | About</nav>
<article>
<h1>Why Tea Matters</h1>
<p>Tea has been cultivated for thousands of years and remains one of the most widely consumed drinks in the world today.</p>
<p>Its history spans trade routes, ceremonies, and the daily routines of billions of people across every continent.</p>
<p>This article explores where tea comes from and why it continues to matter to so many cultures.</p>
</article>
<script>var tracking = true;</script>
</body></html>`

func TestArticleResolver(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	var updates []progress.Update
	reporter := progress.ReporterFunc(func(_ context.Context, u progress.Update) error {
		updates = append(updates, u)
		return nil
	})

	content, err := resolve.NewArticle(srv.Client(), 0, nil).Resolve(context.Background(), srv.URL+"/tea", reporter)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.Contains(content.Title, "Tea") {
		t.Fatalf("unexpected title %q", content.Title)
	}
	if !strings.Contains(content.Text, "cultivated for thousands of years") {
		t.Fatalf("expected article body, got %q", content.Text)
	}
	if strings.Contains(content.Text, "tracking") {
		t.Fatalf("script content leaked into text: %q", content.Text)
	}
	if !strings.Contains(userAgent, "Mozilla") {
		t.Fatalf("expected browser user agent, got %q", userAgent)
	}
	if len(updates) == 0 || updates[0].Percent != progress.PercentArticleDownloading {
		t.Fatalf("expected initial download checkpoint, got %#v", updates)
	}
}

func TestArticleResolverFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/short":
			_, _ = w.Write([]byte("<html><body><p>Subscribe to read.</p></body></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	resolver := resolve.NewArticle(srv.Client(), 0, nil)
	ctx := context.Background()

	if _, err := resolver.Resolve(ctx, "ftp://example.com/a", nil); services.Normalize(err) != services.KindInvalidInput {
		t.Fatalf("expected invalid input for non-http url, got %v", err)
	}
	if _, err := resolver.Resolve(ctx, srv.URL+"/missing", nil); services.Normalize(err) != services.KindSourceFetchFailed {
		t.Fatalf("expected fetch failure for 404, got %v", err)
	}
	if _, err := resolver.Resolve(ctx, srv.URL+"/short", nil); services.Normalize(err) != services.KindSourceFetchFailed {
		t.Fatalf("expected fetch failure for thin page, got %v", err)
	}
}

func TestExtractArticleFallsBackToOGTitle(t *testing.T) {
	page, _ := url.Parse("https://example.com/p")
	html := `<html><head><meta property="og:title" content="Social Title"></head><body><main>` +
		strings.Repeat("Plain body text that keeps going. ", 10) + `</main></body></html>`
	title, text := resolve.ExtractArticle(html, page)
	if title == "" {
		t.Fatal("expected a title")
	}
	if !strings.Contains(text, "Plain body text") {
		t.Fatalf("unexpected text %q", text)
	}
}

type fakeTranscriber struct {
	req    transcribe.Request
	result transcribe.Result
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req transcribe.Request) (transcribe.Result, error) {
	f.req = req
	return f.result, f.err
}

// fakeYtDlp answers --dump-json with metadata and writes size bytes of audio
// for download calls.
func fakeYtDlp(t *testing.T, size int, metaErr error) resolve.CommandOutput {
	t.Helper()
	return func(_ context.Context, _ string, args ...string) ([]byte, error) {
		for i, arg := range args {
			if arg == "--dump-json" {
				if metaErr != nil {
					return nil, metaErr
				}
				return []byte(`{"id":"dQw4w9WgXcQ","title":"Never Gonna","duration":212,"uploader":"Rick"}` + "\n"), nil
			}
			if arg == "--output" {
				path := strings.Replace(args[i+1], "%(ext)s", "mp3", 1)
				if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
					t.Fatalf("write fake audio: %v", err)
				}
				return nil, nil
			}
		}
		t.Fatalf("unexpected yt-dlp args %v", args)
		return nil, nil
	}
}

func newVideo(t *testing.T, maxBytes int64, tr resolve.Transcriber) (*resolve.Video, *storage.Local) {
	t.Helper()
	store, err := storage.NewLocal(filepath.Join(t.TempDir(), "objects"), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	tmp := t.TempDir()
	v := resolve.NewVideo(resolve.VideoConfig{TempDir: tmp, MaxAudioBytes: maxBytes}, store, tr, nil)
	return v, store
}

func TestVideoResolver(t *testing.T) {
	tr := &fakeTranscriber{result: transcribe.Result{
		Text:     " transcript text ",
		Language: "en",
		Segments: []transcribe.Segment{{ID: 0, Start: 0, End: 4, Text: "transcript text"}},
	}}
	video, store := newVideo(t, 1<<20, tr)
	video = video.WithCommandOutput(fakeYtDlp(t, 4096, nil))

	var stages []string
	reporter := progress.ReporterFunc(func(_ context.Context, u progress.Update) error {
		stages = append(stages, string(u.Stage))
		return nil
	})
	content, err := video.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", reporter)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if content.Title != "Never Gonna" || content.Text != "transcript text" {
		t.Fatalf("unexpected content %#v", content)
	}
	if content.DurationSeconds != 212 || len(content.Segments) != 1 {
		t.Fatalf("expected metadata duration and segments, got %#v", content)
	}
	if !strings.HasPrefix(content.RawAudioKey, "podcast-audio/dQw4w9WgXcQ-") || !strings.HasSuffix(content.RawAudioKey, ".mp3") {
		t.Fatalf("unexpected audio key %q", content.RawAudioKey)
	}
	if tr.req.AudioURL != content.RawAudioURL {
		t.Fatalf("transcriber got %q, want %q", tr.req.AudioURL, content.RawAudioURL)
	}
	data, err := storage.ReadAll(context.Background(), store, content.RawAudioKey)
	if err != nil || len(data) != 4096 {
		t.Fatalf("expected uploaded audio, got %d bytes err=%v", len(data), err)
	}
	if stages[0] != "downloading" || stages[len(stages)-1] != "transcribing" {
		t.Fatalf("unexpected stage sequence %v", stages)
	}
}

func TestVideoResolverFailureKinds(t *testing.T) {
	ctx := context.Background()

	video, _ := newVideo(t, 1<<20, &fakeTranscriber{})
	if _, err := video.Resolve(ctx, "https://example.com/nope", nil); services.Normalize(err) != services.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}

	metaFail := video.WithCommandOutput(fakeYtDlp(t, 4096, errors.New("exit status 1")))
	if _, err := metaFail.Resolve(ctx, "https://youtu.be/dQw4w9WgXcQ", nil); services.Normalize(err) != services.KindSourceFetchFailed {
		t.Fatalf("expected source fetch failure, got %v", err)
	}

	small, _ := newVideo(t, 2048, &fakeTranscriber{})
	tooBig := small.WithCommandOutput(fakeYtDlp(t, 4096, nil))
	if _, err := tooBig.Resolve(ctx, "https://youtu.be/dQw4w9WgXcQ", nil); services.Normalize(err) != services.KindSourceFetchFailed {
		t.Fatalf("expected oversized audio to fail fetch, got %v", err)
	}

	broken, _ := newVideo(t, 1<<20, &fakeTranscriber{err: errors.New("upstream 500")})
	broken = broken.WithCommandOutput(fakeYtDlp(t, 4096, nil))
	if _, err := broken.Resolve(ctx, "https://youtu.be/dQw4w9WgXcQ", nil); services.Normalize(err) != services.KindTranscriptionFailed {
		t.Fatalf("expected transcription failure, got %v", err)
	}
}

func TestVideoResolverCleansTempDir(t *testing.T) {
	tmp := t.TempDir()
	store, err := storage.NewLocal(filepath.Join(t.TempDir(), "objects"), "")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	tr := &fakeTranscriber{result: transcribe.Result{Text: "ok"}}
	video := resolve.NewVideo(resolve.VideoConfig{TempDir: tmp}, store, tr, nil).WithCommandOutput(fakeYtDlp(t, 4096, nil))
	if _, err := video.Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ", nil); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Fatalf("expected temp dir to be cleaned, found %d entries", len(entries))
	}
}
