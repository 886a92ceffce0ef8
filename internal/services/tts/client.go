package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"podcastforge/internal/logging"
	"podcastforge/internal/retry"
	"podcastforge/internal/services"
)

const (
	defaultTimeout = 2 * time.Minute
	maxAudioBytes  = 64 << 20
)

// Config holds gateway connection settings.
type Config struct {
	BaseURL           string
	APIKey            string
	Locale            string
	TimeoutSeconds    int
	RequestsPerMinute int
}

// SynthesizeRequest is one turn to voice.
type SynthesizeRequest struct {
	Text  string
	Voice Voice
	// Mode is forwarded as a pacing hint.
	Mode string
}

// StatusError reports a non-2xx gateway response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("tts gateway: http %d: %s", e.StatusCode, body)
}

// Client calls the TTS gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
	logger     *slog.Logger

	mu     sync.Mutex
	voices []Voice
}

// NewClient builds a client. A nil httpClient uses one with the configured timeout.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if httpClient == nil {
		timeout := defaultTimeout
		if cfg.TimeoutSeconds > 0 {
			timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	c := &Client{
		cfg:        cfg,
		httpClient: httpClient,
		retryCfg: retry.Config{
			MaxRetries:  3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
			Retryable:   isRetryable,
		},
		logger: logging.NewComponentLogger(logger, "tts"),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c
}

// Configured reports whether the gateway can be called.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.BaseURL != "" && c.cfg.APIKey != ""
}

// Voices returns the catalog for the configured locale. The first successful
// response is cached for the life of the client.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfigurationMissing, "generating", "tts voices", "tts gateway not configured", nil)
	}
	c.mu.Lock()
	cached := c.voices
	c.mu.Unlock()
	if cached != nil {
		return append([]Voice(nil), cached...), nil
	}

	endpoint := c.cfg.BaseURL + "/v1/voices"
	if c.cfg.Locale != "" {
		endpoint += "?locale=" + url.QueryEscape(c.cfg.Locale)
	}
	voices, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) ([]Voice, error) {
		raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		var payload struct {
			Voices []Voice `json:"voices"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("tts voices: decode: %w", err)
		}
		return payload.Voices, nil
	})
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesisFailed, "generating", "tts voices", "", err)
	}
	c.mu.Lock()
	c.voices = voices
	c.mu.Unlock()
	return append([]Voice(nil), voices...), nil
}

// Synthesize voices one turn and returns MP3 bytes.
func (c *Client) Synthesize(ctx context.Context, req SynthesizeRequest) ([]byte, error) {
	if !c.Configured() {
		return nil, services.Wrap(services.ErrConfigurationMissing, "generating", "tts synthesize", "tts gateway not configured", nil)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, services.Wrap(services.ErrSynthesisFailed, "generating", "tts synthesize", "empty text", nil)
	}
	locale := req.Voice.Locale
	if locale == "" {
		locale = c.cfg.Locale
	}
	body, err := json.Marshal(map[string]string{
		"text":       text,
		"speaker_id": req.Voice.SpeakerID,
		"locale":     locale,
		"mode":       req.Mode,
		"format":     "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("tts synthesize: encode: %w", err)
	}
	audio, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) ([]byte, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/synthesize", body)
	})
	if err != nil {
		return nil, services.Wrap(services.ErrSynthesisFailed, "generating", "tts synthesize", req.Voice.SpeakerID, err)
	}
	if len(audio) == 0 {
		return nil, services.Wrap(services.ErrSynthesisFailed, "generating", "tts synthesize", "empty audio", nil)
	}
	return audio, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

func isRetryable(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return retry.IsTransient(err)
}
