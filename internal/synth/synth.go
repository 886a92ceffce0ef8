package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"podcastforge/internal/fileutil"
	"podcastforge/internal/logging"
	"podcastforge/internal/media/ffprobe"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/storage"
)

const episodePrefix = "podcast-episodes"

// Speech is the TTS collaborator. *tts.Client satisfies it.
type Speech interface {
	Voices(ctx context.Context) ([]tts.Voice, error)
	Synthesize(ctx context.Context, req tts.SynthesizeRequest) ([]byte, error)
}

// Concatenator joins audio files losslessly. *ffmpeg.Runner satisfies it.
type Concatenator interface {
	Concat(ctx context.Context, inputs []string, output, workDir string) error
}

// DurationProbe measures an audio file in seconds.
type DurationProbe func(ctx context.Context, path string) (float64, error)

// Config holds synthesizer settings.
type Config struct {
	TempDir       string
	FFprobeBinary string
}

// Request describes one episode to render.
type Request struct {
	// Summary is the script (or summary) text to voice.
	Summary string
	Title   string
	Mode    queue.Mode
	// Host1 and Host2 default to the first male and first female catalog voices.
	Host1   *tts.Voice
	Host2   *tts.Voice
	OwnerID string
	TaskID  string
}

// Episode is the rendered and stored result.
type Episode struct {
	ID              string
	AudioURL        string
	AudioKey        string
	Title           string
	Turns           []Turn
	DurationSeconds float64
}

// ScriptJSON encodes the episode turns for persistence.
func (e Episode) ScriptJSON() string {
	data, err := json.Marshal(e.Turns)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// Synthesizer renders episodes.
type Synthesizer struct {
	cfg    Config
	speech Speech
	concat Concatenator
	store  storage.Store
	probe  DurationProbe
	now    func() time.Time
	logger *slog.Logger
}

// New builds a synthesizer.
func New(cfg Config, speech Speech, concat Concatenator, store storage.Store, logger *slog.Logger) *Synthesizer {
	binary := strings.TrimSpace(cfg.FFprobeBinary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Synthesizer{
		cfg:    cfg,
		speech: speech,
		concat: concat,
		store:  store,
		probe: func(ctx context.Context, path string) (float64, error) {
			return ffprobe.Duration(ctx, binary, path)
		},
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "synth"),
	}
}

// WithDurationProbe returns a copy of s that measures audio through probe.
func (s *Synthesizer) WithDurationProbe(probe DurationProbe) *Synthesizer {
	clone := *s
	clone.probe = probe
	return &clone
}

// Voices picks the host pair for req, consulting the catalog only when a
// voice is missing.
func (s *Synthesizer) Voices(ctx context.Context, host1, host2 *tts.Voice) (tts.Voice, tts.Voice, error) {
	if host1 != nil && host2 != nil {
		return *host1, *host2, nil
	}
	catalog, err := s.speech.Voices(ctx)
	if err != nil {
		if services.Normalize(err) == services.KindConfigurationMissing {
			return tts.Voice{}, tts.Voice{}, err
		}
		return tts.Voice{}, tts.Voice{}, services.Wrap(services.ErrSynthesisFailed, "generating", "voice catalog", "", err)
	}
	male, female, err := tts.DefaultPair(catalog)
	if err != nil {
		return tts.Voice{}, tts.Voice{}, services.Wrap(services.ErrSynthesisFailed, "generating", "voice catalog", "", err)
	}
	if host1 != nil {
		male = *host1
	}
	if host2 != nil {
		female = *host2
	}
	return male, female, nil
}

// Synthesize voices every turn of req.Summary, joins the audio, uploads it
// and returns the episode.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (Episode, error) {
	host1, host2, err := s.Voices(ctx, req.Host1, req.Host2)
	if err != nil {
		return Episode{}, err
	}
	turns := SplitTurns(req.Summary, host1.Name, host2.Name)
	if len(turns) == 0 {
		return Episode{}, services.Wrap(services.ErrSynthesisFailed, "generating", "split turns", "script is empty", nil)
	}

	workDir, err := os.MkdirTemp(s.cfg.TempDir, "episode-")
	if err != nil {
		return Episode{}, services.Wrap(services.ErrInternal, "generating", "synthesize", "create temp dir", err)
	}
	defer os.RemoveAll(workDir)

	started := s.now()
	parts := make([]string, 0, len(turns))
	for i := range turns {
		voice := host1
		if turns[i].Host == 2 {
			voice = host2
		}
		turns[i].SpeakerID = voice.SpeakerID
		turns[i].SpeakerName = voice.Name
		audio, err := s.speech.Synthesize(ctx, tts.SynthesizeRequest{Text: turns[i].Content, Voice: voice, Mode: string(req.Mode)})
		if err != nil {
			if services.Normalize(err) == services.KindConfigurationMissing {
				return Episode{}, err
			}
			return Episode{}, services.Wrap(services.ErrSynthesisFailed, "generating", "synthesize turn", fmt.Sprintf("turn %d of %d", i+1, len(turns)), err)
		}
		part := filepath.Join(workDir, fmt.Sprintf("turn_%03d.mp3", i))
		if err := fileutil.WriteFileAtomic(part, audio, 0o644); err != nil {
			return Episode{}, services.Wrap(services.ErrSynthesisFailed, "generating", "write turn audio", "", err)
		}
		parts = append(parts, part)
	}

	output := filepath.Join(workDir, "episode.mp3")
	if err := s.concat.Concat(ctx, parts, output, workDir); err != nil {
		return Episode{}, services.Wrap(services.ErrSynthesisFailed, "generating", "concat turns", "", err)
	}
	duration, err := s.probe(ctx, output)
	if err != nil {
		logging.WarnWithContext(s.logger, "episode duration unavailable", "episode_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "episode duration recorded as 0"),
		)
		duration = 0
	}
	data, err := os.ReadFile(output)
	if err != nil {
		return Episode{}, services.Wrap(services.ErrSynthesisFailed, "generating", "read episode", "", err)
	}

	episodeID := uuid.NewString()
	key := storage.JoinKey(episodePrefix, storage.Segment(req.OwnerID, "anonymous"), episodeID+".mp3")
	audioURL, err := s.store.Put(ctx, key, data, "audio/mpeg")
	if err != nil {
		return Episode{}, services.Wrap(services.ErrStorageFailed, "generating", "upload episode", "", err)
	}

	s.logger.Info("episode synthesized",
		logging.String(logging.FieldTaskID, req.TaskID),
		logging.String("episode_id", episodeID),
		logging.Int("turns", len(turns)),
		logging.Float64("duration_seconds", duration),
		logging.Duration("elapsed", s.now().Sub(started)),
		logging.String(logging.FieldEventType, "episode_synthesized"),
	)
	return Episode{
		ID:              episodeID,
		AudioURL:        audioURL,
		AudioKey:        key,
		Title:           req.Title,
		Turns:           turns,
		DurationSeconds: duration,
	}, nil
}
