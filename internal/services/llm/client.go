package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"podcastforge/internal/logging"
	"podcastforge/internal/retry"
	"podcastforge/internal/services"
)

const (
	defaultBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultHTTPTimeout = 90 * time.Second
	jsonResponseType   = "json_object"
)

// Config captures the runtime settings required to talk to the provider.
type Config struct {
	APIKey            string
	BaseURL           string
	Models            []string
	Referer           string
	Title             string
	TimeoutSeconds    int
	RequestsPerMinute int
}

// Client wraps an OpenRouter-compatible chat completion API and falls back
// across the configured models in order.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
	logger     *slog.Logger
	observe    AttemptObserver
}

// AttemptObserver receives the outcome ("ok" or "error") of each model tried.
type AttemptObserver func(model, outcome string)

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides per-model retry behavior.
func WithRetry(cfg retry.Config) Option {
	return func(c *Client) {
		c.retryCfg = cfg
	}
}

// WithLimiter replaces the request rate limiter. Nil disables limiting.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithLogger attaches a logger for fallback diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithAttemptObserver reports every per-model attempt to observe.
func WithAttemptObserver(observe AttemptObserver) Option {
	return func(c *Client) {
		c.observe = observe
	}
}

// NewClient constructs a client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	models := make([]string, 0, len(cfg.Models))
	for _, model := range cfg.Models {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	client := &Client{
		cfg: Config{
			APIKey:            strings.TrimSpace(cfg.APIKey),
			BaseURL:           strings.TrimSpace(cfg.BaseURL),
			Models:            models,
			Referer:           strings.TrimSpace(cfg.Referer),
			Title:             strings.TrimSpace(cfg.Title),
			TimeoutSeconds:    cfg.TimeoutSeconds,
			RequestsPerMinute: cfg.RequestsPerMinute,
		},
		httpClient: &http.Client{Timeout: timeout},
		retryCfg: retry.Config{
			MaxRetries:  2,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
			Retryable:   isRetryable,
			DelayHint:   retryAfterHint,
		},
	}
	if cfg.RequestsPerMinute > 0 {
		client.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.retryCfg.Retryable == nil {
		client.retryCfg.Retryable = isRetryable
	}
	client.logger = logging.NewComponentLogger(client.logger, "llm")
	return client
}

// Models returns the fallback order in use.
func (c *Client) Models() []string {
	return append([]string(nil), c.cfg.Models...)
}

// Request is a single system+user prompt exchange.
type Request struct {
	System      string
	User        string
	JSON        bool
	Temperature float64
}

// Response holds the model output and the model that produced it.
type Response struct {
	Content string
	Model   string
}

// Complete sends req to each configured model in order until one returns
// non-empty content.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	req.System = strings.TrimSpace(req.System)
	req.User = strings.TrimSpace(req.User)
	if req.User == "" {
		return Response{}, errors.New("llm complete: user prompt required")
	}
	if c.cfg.APIKey == "" {
		return Response{}, services.Wrap(services.ErrConfigurationMissing, "", "llm complete", "api key not configured", nil)
	}
	if len(c.cfg.Models) == 0 {
		return Response{}, services.Wrap(services.ErrConfigurationMissing, "", "llm complete", "no models configured", nil)
	}

	content, model, err := retry.TryInOrder(ctx, c.cfg.Models, func(ctx context.Context, model string) (string, error) {
		content, err := retry.Do(ctx, c.retryCfg, func(ctx context.Context) (string, error) {
			return c.completeOnce(ctx, model, req)
		})
		c.observeAttempt(model, err)
		if err != nil && ctx.Err() == nil {
			logging.WarnWithContext(c.logger, "model failed; trying next", "llm_model_fallback",
				logging.String("model", model),
				logging.Error(err),
				logging.String(logging.FieldImpact, "request falls through to the next configured model"),
			)
		}
		return content, err
	})
	if err != nil {
		return Response{}, fmt.Errorf("llm complete: %w", err)
	}
	return Response{Content: content, Model: model}, nil
}

func (c *Client) observeAttempt(model string, err error) {
	if c.observe == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.observe(model, outcome)
}

// CompleteJSON issues a JSON-mode request and returns the raw payload.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.Complete(ctx, Request{System: systemPrompt, User: userPrompt, JSON: true, Temperature: 0.7})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// HealthCheck issues a fast ping to verify the API key and first model.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfigurationMissing, "", "llm health", "api key not configured", nil)
	}
	if len(c.cfg.Models) == 0 {
		return services.Wrap(services.ErrConfigurationMissing, "", "llm health", "no models configured", nil)
	}
	content, err := c.completeOnce(ctx, c.cfg.Models[0], Request{
		System: "You must respond with JSON only.",
		User:   `Respond with {"ok":true}`,
		JSON:   true,
	})
	if err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

func (c *Client) completeOnce(ctx context.Context, model string, req Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})
	payload := chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
	}
	if req.JSON {
		payload.ResponseFormat = map[string]string{"type": jsonResponseType}
	}

	completion, body, err := c.send(ctx, payload)
	if err != nil {
		return "", err
	}
	content, finishReason := extractCompletionPayload(completion)
	if content != "" {
		return content, nil
	}
	if len(completion.Choices) == 0 {
		return "", &emptyContentError{Model: model, Snippet: summarizePayloadSnippet(string(body))}
	}
	return "", &emptyContentError{
		Model:        model,
		FinishReason: finishReason,
		Refusal:      extractCompletionRefusal(completion),
		Snippet:      summarizePayloadSnippet(string(body)),
	}
}
