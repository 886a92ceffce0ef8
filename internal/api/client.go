package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Error is a non-2xx API response.
type Error struct {
	StatusCode int
	Message    string
	Kind       string
	TaskID     string
}

func (e *Error) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%s, http %d)", e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s (http %d)", e.Message, e.StatusCode)
}

// IsStatus reports whether err is an API error with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client calls the daemon HTTP API.
type Client struct {
	baseURL string
	token   string
	owner   string
	http    *http.Client
}

// NewClient builds a client for the API at bind (host:port or a full URL).
func NewClient(bind, token, owner string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: strings.TrimRight(base, "/"),
		token:   strings.TrimSpace(token),
		owner:   strings.TrimSpace(owner),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit creates a task. A duplicate returns an *Error with status 409 and
// the active task id.
func (c *Client) Submit(ctx context.Context, req SubmitTaskRequest) (SubmitTaskResponse, error) {
	var resp SubmitTaskResponse
	err := c.do(ctx, http.MethodPost, "/api/tasks", req, &resp)
	return resp, err
}

// Tasks lists the caller's tasks, newest first.
func (c *Client) Tasks(ctx context.Context, limit int) ([]Task, error) {
	path := "/api/tasks"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp TaskListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// Task returns one task with its transcript and script.
func (c *Client) Task(ctx context.Context, id string) (Task, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &resp)
	return resp.Task, err
}

// Progress returns the task's progress only.
func (c *Client) Progress(ctx context.Context, id string) (TaskProgress, error) {
	var resp TaskProgress
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/progress", nil, &resp)
	return resp, err
}

// DeleteTask removes a task and its stored audio.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil)
}

// GenerateHighlights cuts one highlight per duration. Empty durations use
// the daemon defaults.
func (c *Client) GenerateHighlights(ctx context.Context, id string, durations []int) ([]Highlight, error) {
	var resp HighlightListResponse
	err := c.do(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/highlights", HighlightsRequest{Durations: durations}, &resp)
	return resp.Highlights, err
}

// Highlights lists a task's highlights.
func (c *Client) Highlights(ctx context.Context, id string) ([]Highlight, error) {
	var resp HighlightListResponse
	err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id)+"/highlights", nil, &resp)
	return resp.Highlights, err
}

// DeleteHighlight removes a highlight and its clip.
func (c *Client) DeleteHighlight(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/highlights/"+url.PathEscape(id), nil, nil)
}

// Voices lists the TTS catalog.
func (c *Client) Voices(ctx context.Context) ([]Voice, error) {
	var resp VoiceListResponse
	err := c.do(ctx, http.MethodGet, "/api/voices", nil, &resp)
	return resp.Voices, err
}

// VoicePreference returns the caller's saved voices, or nil.
func (c *Client) VoicePreference(ctx context.Context) (*VoicePreference, error) {
	var resp VoicePreference
	if err := c.do(ctx, http.MethodGet, "/api/voice-preference", nil, &resp); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resp, nil
}

// SaveVoicePreference stores the caller's default voices.
func (c *Client) SaveVoicePreference(ctx context.Context, pref VoicePreference) error {
	return c.do(ctx, http.MethodPut, "/api/voice-preference", pref, nil)
}

// Health runs the daemon preflight checks.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.do(ctx, http.MethodGet, "/api/health", nil, &resp)
	if IsStatus(err, http.StatusServiceUnavailable) {
		// unhealthy still carries the check list
		return resp, nil
	}
	return resp, err
}

// Status returns daemon and workflow diagnostics.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var resp DaemonStatus
	err := c.do(ctx, http.MethodGet, "/api/status", nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.baseURL == "" {
		return errors.New("api address is not configured")
	}
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.owner != "" {
		req.Header.Set(OwnerHeader, c.owner)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := &Error{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var decoded ErrorResponse
		if json.Unmarshal(payload, &decoded) == nil && decoded.Error != "" {
			apiErr.Message = decoded.Error
			apiErr.Kind = decoded.Kind
			apiErr.TaskID = decoded.TaskID
		}
		if out != nil && resp.StatusCode == http.StatusServiceUnavailable {
			_ = json.Unmarshal(payload, out)
		}
		return apiErr
	}
	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
