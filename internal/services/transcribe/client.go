package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"podcastforge/internal/logging"
	"podcastforge/internal/retry"
	"podcastforge/internal/services"
)

const (
	defaultTimeout = 10 * time.Minute
	transcribePath = "/v1/transcriptions"
)

// Config holds gateway connection settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	Language       string
	TimeoutSeconds int
}

// Segment is one timestamped stretch of speech.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the verbose transcript returned by the gateway.
type Result struct {
	Text            string    `json:"text"`
	Language        string    `json:"language"`
	DurationSeconds float64   `json:"duration"`
	Segments        []Segment `json:"segments"`
}

// Request describes one transcription.
type Request struct {
	AudioURL string
	Language string
	Prompt   string
}

// Error is the typed failure reported by the gateway.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Details string `json:"details"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "transcription failed"
	}
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Code != "" {
		return fmt.Sprintf("transcription %s: %s", strings.ToLower(e.Code), msg)
	}
	return "transcription: " + msg
}

// ErrorKind classifies gateway failures.
func (e *Error) ErrorKind() services.Kind {
	switch strings.ToUpper(e.Code) {
	case "FILE_TOO_LARGE", "INVALID_FORMAT":
		return services.KindInvalidInput
	}
	return services.KindTranscriptionFailed
}

// Client calls the transcription gateway.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retryCfg   retry.Config
	logger     *slog.Logger
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
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		retryCfg: retry.Config{
			MaxRetries:  2,
			InitialWait: 2 * time.Second,
			MaxWait:     15 * time.Second,
			Multiplier:  2,
			Retryable:   isRetryable,
		},
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Configured reports whether the gateway can be called.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.BaseURL != "" && c.cfg.APIKey != ""
}

// Transcribe converts the audio at req.AudioURL into text.
func (c *Client) Transcribe(ctx context.Context, req Request) (Result, error) {
	if !c.Configured() {
		return Result{}, services.Wrap(services.ErrConfigurationMissing, "transcribing", "transcribe", "transcription gateway not configured", nil)
	}
	if strings.TrimSpace(req.AudioURL) == "" {
		return Result{}, services.Wrap(services.ErrInvalidInput, "transcribing", "transcribe", "audio url required", nil)
	}
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = c.cfg.Language
	}
	payload := map[string]string{"audio_url": req.AudioURL}
	if language != "" {
		payload["language"] = language
	}
	if c.cfg.Model != "" {
		payload["model"] = c.cfg.Model
	}
	if req.Prompt != "" {
		payload["prompt"] = req.Prompt
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("transcription: encode request: %w", err)
	}

	start := time.Now()
	result, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (Result, error) {
		return c.post(ctx, body)
	})
	if err != nil {
		return Result{}, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "transcribe", "", err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return Result{}, services.Wrap(services.ErrTranscriptionFailed, "transcribing", "transcribe", "empty transcript", nil)
	}
	c.logger.Info("transcription complete",
		logging.String("language", result.Language),
		logging.Int("segments", len(result.Segments)),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "transcription_complete"),
	)
	return result, nil
}

func (c *Client) post(ctx context.Context, body []byte) (Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+transcribePath, bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return Result{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gatewayErr := &Error{Status: resp.StatusCode}
		if json.Unmarshal(raw, gatewayErr) != nil || gatewayErr.Message == "" {
			gatewayErr.Message = fmt.Sprintf("http %d", resp.StatusCode)
			gatewayErr.Details = strings.TrimSpace(string(raw))
		}
		return Result{}, gatewayErr
	}
	var result Result
	if err := json.Unmarshal(raw, &result); err != nil {
		return Result{}, fmt.Errorf("transcription: decode response: %w", err)
	}
	return result, nil
}

func isRetryable(err error) bool {
	var gatewayErr *Error
	if errors.As(err, &gatewayErr) {
		return gatewayErr.Status == http.StatusTooManyRequests || gatewayErr.Status >= 500
	}
	return retry.IsTransient(err)
}
