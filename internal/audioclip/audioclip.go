// Package audioclip cuts a time window out of stored episode audio and
// uploads it as a standalone highlight clip.
package audioclip

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"podcastforge/internal/fileutil"
	"podcastforge/internal/logging"
	"podcastforge/internal/media/ffmpeg"
	"podcastforge/internal/services"
	"podcastforge/internal/storage"
)

const (
	clipPrefix       = "podcast-highlights"
	maxSourceBytes   = 512 << 20
	suffixAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength     = 6
	defaultFetchWait = 2 * time.Minute
)

// Cutter extracts a window of audio. *ffmpeg.Runner satisfies it.
type Cutter interface {
	Cut(ctx context.Context, input, output string, start, duration float64, bitrate string) error
}

// Config holds clip settings.
type Config struct {
	TempDir string
	Bitrate string
}

// ClipRequest names the source audio and the window to cut.
type ClipRequest struct {
	SourceURL string
	// SourceKey reads the source straight from storage when set.
	SourceKey string
	Start     float64
	Duration  float64
	OwnerID   string
	TaskID    string
}

// Clip is an uploaded highlight clip.
type Clip struct {
	URL string
	Key string
}

// Service produces clips.
type Service struct {
	cfg    Config
	store  storage.Store
	cutter Cutter
	client *http.Client
	now    func() time.Time
	logger *slog.Logger
}

// New builds a clip service. A nil client uses one with a two minute timeout.
func New(cfg Config, store storage.Store, cutter Cutter, client *http.Client, logger *slog.Logger) *Service {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchWait}
	}
	if strings.TrimSpace(cfg.Bitrate) == "" {
		cfg.Bitrate = ffmpeg.DefaultClipBitrate
	}
	return &Service{
		cfg:    cfg,
		store:  store,
		cutter: cutter,
		client: client,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "audioclip"),
	}
}

// Clip downloads the source, cuts [Start, Start+Duration) and uploads the
// result under podcast-highlights/{owner}/{task}/. Temporary files are
// removed on every path.
func (s *Service) Clip(ctx context.Context, req ClipRequest) (Clip, error) {
	if req.Duration <= 0 {
		return Clip{}, services.Wrap(services.ErrInvalidInput, "highlights", "clip", "duration must be positive", nil)
	}
	if strings.TrimSpace(req.SourceURL) == "" && strings.TrimSpace(req.SourceKey) == "" {
		return Clip{}, services.Wrap(services.ErrInvalidInput, "highlights", "clip", "source audio missing", nil)
	}

	workDir, err := os.MkdirTemp(s.cfg.TempDir, "clip-")
	if err != nil {
		return Clip{}, services.Wrap(services.ErrInternal, "highlights", "clip", "create temp dir", err)
	}
	defer os.RemoveAll(workDir)

	input := filepath.Join(workDir, "source.mp3")
	size, err := s.fetch(ctx, req, input)
	if err != nil {
		return Clip{}, services.Wrap(services.ErrSourceFetchFailed, "highlights", "download source audio", "", err)
	}

	output := filepath.Join(workDir, "clip.mp3")
	if err := s.cutter.Cut(ctx, input, output, req.Start, req.Duration, s.cfg.Bitrate); err != nil {
		return Clip{}, services.Wrap(services.ErrSynthesisFailed, "highlights", "cut clip", "", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		return Clip{}, services.Wrap(services.ErrSynthesisFailed, "highlights", "read clip", "", err)
	}

	name := fmt.Sprintf("highlight_%d_%s.mp3", s.now().UnixMilli(), randomSuffix())
	key := storage.JoinKey(clipPrefix, storage.Segment(req.OwnerID, "anonymous"), storage.Segment(req.TaskID, "unknown"), name)
	url, err := s.store.Put(ctx, key, data, "audio/mpeg")
	if err != nil {
		return Clip{}, services.Wrap(services.ErrStorageFailed, "highlights", "upload clip", "", err)
	}
	s.logger.Info("clip uploaded",
		logging.String(logging.FieldTaskID, req.TaskID),
		logging.String("key", key),
		logging.Int64("source_bytes", size),
		logging.Int("clip_bytes", len(data)),
		logging.Float64("start", req.Start),
		logging.Float64("duration", req.Duration),
		logging.String(logging.FieldEventType, "clip_uploaded"),
	)
	return Clip{URL: url, Key: key}, nil
}

func (s *Service) fetch(ctx context.Context, req ClipRequest, dst string) (int64, error) {
	key := strings.TrimSpace(req.SourceKey)
	if key == "" {
		key, _ = s.store.KeyForURL(req.SourceURL)
	}
	if key != "" {
		rc, err := s.store.Open(ctx, key)
		if err != nil {
			return 0, err
		}
		defer rc.Close()
		return fileutil.CopyToFile(rc, dst, maxSourceBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.SourceURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, fmt.Errorf("http %d", resp.StatusCode)
	}
	return fileutil.CopyToFile(resp.Body, dst, maxSourceBytes)
}

func randomSuffix() string {
	var b strings.Builder
	max := big.NewInt(int64(len(suffixAlphabet)))
	for i := 0; i < suffixLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			b.WriteByte('0')
			continue
		}
		b.WriteByte(suffixAlphabet[n.Int64()])
	}
	return b.String()
}
