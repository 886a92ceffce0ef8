package resolve

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"podcastforge/internal/language"
	"podcastforge/internal/logging"
	"podcastforge/internal/progress"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
	"podcastforge/internal/services/transcribe"
	"podcastforge/internal/storage"
)

const sourceAudioPrefix = "podcast-audio"

var videoIDPattern = regexp.MustCompile(`(?:youtube\.com/(?:watch\?(?:[^#]*&)?v=|embed/|shorts/|live/)|youtu\.be/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)

// VideoID extracts the 11 character video id from a watch, short, embed or
// youtu.be URL. It returns "" when none is present.
func VideoID(ref string) string {
	match := videoIDPattern.FindStringSubmatch(strings.TrimSpace(ref))
	if len(match) < 2 {
		return ""
	}
	return match[1]
}

// SameVideo reports whether two references name the same video.
func SameVideo(a, b string) bool {
	idA, idB := VideoID(a), VideoID(b)
	return idA != "" && idA == idB
}

// VideoMetadata is the subset of yt-dlp --dump-json the pipeline uses.
type VideoMetadata struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration"`
	Uploader        string  `json:"uploader"`
	Language        string  `json:"language"`
}

// CommandOutput runs a binary and returns its stdout.
type CommandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)

// Transcriber converts an uploaded audio URL into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req transcribe.Request) (transcribe.Result, error)
}

// VideoConfig holds video resolver settings.
type VideoConfig struct {
	YtDlpBinary   string
	TempDir       string
	MaxAudioBytes int64
	Language      string
}

// Video downloads a video's audio, uploads it, and transcribes it.
type Video struct {
	cfg         VideoConfig
	store       storage.Store
	transcriber Transcriber
	run         CommandOutput
	logger      *slog.Logger
}

// NewVideo builds a video resolver.
func NewVideo(cfg VideoConfig, store storage.Store, transcriber Transcriber, logger *slog.Logger) *Video {
	if strings.TrimSpace(cfg.YtDlpBinary) == "" {
		cfg.YtDlpBinary = "yt-dlp"
	}
	return &Video{
		cfg:         cfg,
		store:       store,
		transcriber: transcriber,
		run:         defaultCommandOutput,
		logger:      logging.NewComponentLogger(logger, "resolve.video"),
	}
}

// WithCommandOutput returns a copy of v that runs yt-dlp through run.
func (v *Video) WithCommandOutput(run CommandOutput) *Video {
	clone := *v
	clone.run = run
	return &clone
}

// Metadata fetches the ground-truth title and duration for ref.
func (v *Video) Metadata(ctx context.Context, ref string) (VideoMetadata, error) {
	if VideoID(ref) == "" {
		return VideoMetadata{}, services.Wrap(services.ErrInvalidInput, "downloading", "video metadata", "not a recognized video url", nil)
	}
	out, err := v.run(ctx, v.cfg.YtDlpBinary, "--dump-json", "--no-warnings", "--no-playlist", "--skip-download", ref)
	if err != nil {
		return VideoMetadata{}, services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp metadata", "", err)
	}
	var meta VideoMetadata
	if err := json.Unmarshal(firstJSONLine(out), &meta); err != nil {
		return VideoMetadata{}, services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp metadata", "decode", err)
	}
	if strings.TrimSpace(meta.Title) == "" {
		return VideoMetadata{}, services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp metadata", "video has no title", nil)
	}
	return meta, nil
}

// Resolve implements Resolver.
func (v *Video) Resolve(ctx context.Context, ref string, reporter progress.Reporter) (Content, error) {
	id := VideoID(ref)
	if id == "" {
		return Content{}, services.Wrap(services.ErrInvalidInput, "downloading", "resolve video", "not a recognized video url", nil)
	}
	report(ctx, reporter, progress.Update{Stage: queue.StageDownloading, Percent: progress.PercentVideoDownloading, Message: "Fetching video information"})
	meta, err := v.Metadata(ctx, ref)
	if err != nil {
		return Content{}, err
	}

	workDir, err := os.MkdirTemp(v.cfg.TempDir, "video-"+id+"-")
	if err != nil {
		return Content{}, services.Wrap(services.ErrInternal, "downloading", "resolve video", "create temp dir", err)
	}
	defer os.RemoveAll(workDir)

	report(ctx, reporter, progress.Update{Stage: queue.StageDownloading, Percent: progress.PercentVideoDownloading + 5, Message: "Downloading audio"})
	audioPath, err := v.download(ctx, ref, id, workDir)
	if err != nil {
		return Content{}, err
	}
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return Content{}, services.Wrap(services.ErrSourceFetchFailed, "downloading", "read audio", "", err)
	}

	report(ctx, reporter, progress.Update{Stage: queue.StageDownloading, Percent: progress.PercentVideoDownloading + 10, Message: "Uploading audio"})
	key := storage.JoinKey(sourceAudioPrefix, fmt.Sprintf("%s-%s.mp3", id, randomHex(4)))
	audioURL, err := v.store.Put(ctx, key, data, "audio/mpeg")
	if err != nil {
		return Content{}, services.Wrap(services.ErrStorageFailed, "downloading", "upload source audio", "", err)
	}

	report(ctx, reporter, progress.Update{Stage: queue.StageTranscribing, Percent: progress.PercentVideoTranscribing, Message: "Transcribing audio"})
	lang := language.ToISO2(meta.Language)
	if lang == "" {
		lang = v.cfg.Language
	}
	result, err := v.transcriber.Transcribe(ctx, transcribe.Request{AudioURL: audioURL, Language: lang})
	if err != nil {
		if services.Normalize(err) == services.KindConfigurationMissing {
			return Content{}, err
		}
		return Content{}, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "transcribe video", "", err)
	}

	duration := meta.DurationSeconds
	if duration <= 0 {
		duration = result.DurationSeconds
	}
	v.logger.Info("video resolved",
		logging.String("video_id", id),
		logging.Int("bytes", len(data)),
		logging.Int("transcript_chars", len([]rune(result.Text))),
		logging.String(logging.FieldEventType, "video_resolved"),
	)
	return Content{
		Title:           meta.Title,
		Text:            strings.TrimSpace(result.Text),
		RawAudioURL:     audioURL,
		RawAudioKey:     key,
		DurationSeconds: duration,
		Language:        result.Language,
		Segments:        result.Segments,
	}, nil
}

func (v *Video) download(ctx context.Context, ref, id, workDir string) (string, error) {
	template := filepath.Join(workDir, id+".%(ext)s")
	_, runErr := v.run(ctx, v.cfg.YtDlpBinary,
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--no-playlist",
		"--no-warnings",
		"--output", template,
		ref,
	)
	// yt-dlp can exit non-zero after writing a usable file (post-processing
	// warnings), so look for output before giving up.
	audioPath, findErr := findAudio(workDir, id)
	if findErr != nil {
		if runErr != nil {
			return "", services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp download", "", runErr)
		}
		return "", services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp download", "", findErr)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp download", "", err)
	}
	if info.Size() < 1024 {
		return "", services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp download", "downloaded audio is too small", nil)
	}
	if v.cfg.MaxAudioBytes > 0 && info.Size() > v.cfg.MaxAudioBytes {
		return "", services.Wrap(services.ErrSourceFetchFailed, "downloading", "yt-dlp download",
			fmt.Sprintf("audio is %d MB, limit is %d MB", info.Size()>>20, v.cfg.MaxAudioBytes>>20), nil)
	}
	return audioPath, nil
}

var audioExtensions = []string{".mp3", ".m4a", ".webm", ".opus", ".ogg"}

func findAudio(dir, id string) (string, error) {
	preferred := filepath.Join(dir, id+".mp3")
	if _, err := os.Stat(preferred); err == nil {
		return preferred, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".part") {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		for _, candidate := range audioExtensions {
			if ext == candidate {
				return filepath.Join(dir, name), nil
			}
		}
	}
	return "", errors.New("no audio file produced")
}

func firstJSONLine(out []byte) []byte {
	for _, line := range bytes.Split(out, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) > 0 && line[0] == '{' {
			return line
		}
	}
	return bytes.TrimSpace(out)
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "0000"
	}
	return hex.EncodeToString(buf)
}

func defaultCommandOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}
