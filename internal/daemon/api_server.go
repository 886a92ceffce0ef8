package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"podcastforge/internal/api"
	"podcastforge/internal/config"
	"podcastforge/internal/logging"
	"podcastforge/internal/queue"
	"podcastforge/internal/services"
	"podcastforge/internal/workflow"
)

const (
	maxRequestBody  = 2 << 20
	maxListLimit    = 500
	requestIDHeader = "X-Request-ID"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	token := strings.TrimSpace(cfg.Paths.APIToken)
	route := func(h http.HandlerFunc) http.Handler {
		return srv.withRequest(authMiddleware(token, h))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/tasks", route(srv.handleSubmit))
	mux.Handle("GET /api/tasks", route(srv.handleListTasks))
	mux.Handle("GET /api/tasks/{id}", route(srv.handleGetTask))
	mux.Handle("GET /api/tasks/{id}/progress", route(srv.handleProgress))
	mux.Handle("DELETE /api/tasks/{id}", route(srv.handleDeleteTask))
	mux.Handle("POST /api/tasks/{id}/highlights", route(srv.handleGenerateHighlights))
	mux.Handle("GET /api/tasks/{id}/highlights", route(srv.handleListHighlights))
	mux.Handle("DELETE /api/highlights/{id}", route(srv.handleDeleteHighlight))
	mux.Handle("GET /api/voices", route(srv.handleVoices))
	mux.Handle("GET /api/voice-preference", route(srv.handleGetVoicePreference))
	mux.Handle("PUT /api/voice-preference", route(srv.handlePutVoicePreference))
	mux.Handle("GET /api/health", route(srv.handleHealth))
	mux.Handle("GET /api/status", route(srv.handleStatus))
	if cfg.Metrics.Enabled && d.metrics != nil {
		mux.Handle("GET /metrics", d.metrics.Handler())
	}
	srv.handler = mux
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api server disabled; no bind address configured")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server error", "api_server_failed", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		_ = server.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// withRequest attaches the request id and owner to the request context.
func (s *apiServer) withRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := services.WithRequestID(r.Context(), requestID)
		ctx = services.WithOwnerID(ctx, ownerOf(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerOf(r *http.Request) string {
	if owner := strings.TrimSpace(r.Header.Get(api.OwnerHeader)); owner != "" {
		return owner
	}
	return api.DefaultOwner
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req api.SubmitTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, services.KindInvalidInput, err.Error())
		return
	}
	task, err := s.daemon.workflow.Submit(r.Context(), workflow.SubmitRequest{
		OwnerID:         ownerOf(r),
		InputType:       req.InputType,
		SourceReference: req.SourceReference,
		Mode:            req.Mode,
		Style:           req.Style,
		Host1VoiceID:    req.Host1VoiceID,
		Host2VoiceID:    req.Host2VoiceID,
	})
	if err != nil {
		if errors.Is(err, workflow.ErrDuplicateTask) && task != nil {
			s.writeJSON(w, http.StatusConflict, api.ErrorResponse{
				Error:  "an active task already exists for this source",
				Kind:   string(services.KindInvalidInput),
				TaskID: task.ID,
			})
			return
		}
		if task == nil {
			s.writeServiceError(w, r, err)
			return
		}
		// persisted but not dispatched; the next start picks it up
		logging.WarnWithContext(logging.WithContext(r.Context(), s.logger), "task accepted without dispatch", "task_dispatch_deferred",
			logging.Error(err),
			logging.String(logging.FieldImpact, "task waits for the next workflow start"),
		)
	}
	s.writeJSON(w, http.StatusAccepted, api.SubmitTaskResponse{TaskID: task.ID, Status: string(task.Status)})
}

func (s *apiServer) handleListTasks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, services.KindInvalidInput, "limit must be a non-negative integer")
			return
		}
		limit = min(parsed, maxListLimit)
	}
	tasks, err := s.daemon.workflow.Tasks(r.Context(), ownerOf(r), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskListResponse{Tasks: api.FromTasks(tasks)})
}

func (s *apiServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.daemon.workflow.Task(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.TaskResponse{
		Task: api.FromTask(task, api.TaskOptions{IncludeTranscript: true, IncludeScript: true}),
	})
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	task, err := s.daemon.workflow.Task(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromTask(task, api.TaskOptions{}).Progress)
}

func (s *apiServer) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.workflow.Delete(r.Context(), ownerOf(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleGenerateHighlights(w http.ResponseWriter, r *http.Request) {
	var req api.HighlightsRequest
	if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, services.KindInvalidInput, err.Error())
		return
	}
	list, err := s.daemon.workflow.GenerateHighlights(r.Context(), workflow.HighlightRequest{
		TaskID:    r.PathValue("id"),
		OwnerID:   ownerOf(r),
		Durations: req.Durations,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HighlightListResponse{Highlights: api.FromHighlights(list)})
}

func (s *apiServer) handleListHighlights(w http.ResponseWriter, r *http.Request) {
	list, err := s.daemon.workflow.Highlights(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HighlightListResponse{Highlights: api.FromHighlights(list)})
}

func (s *apiServer) handleDeleteHighlight(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.workflow.DeleteHighlight(r.Context(), ownerOf(r), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.daemon.workflow.Voices(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.VoiceListResponse{Voices: api.FromVoices(voices)})
}

func (s *apiServer) handleGetVoicePreference(w http.ResponseWriter, r *http.Request) {
	pref, err := s.daemon.workflow.VoicePreference(r.Context(), ownerOf(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if pref == nil {
		s.writeError(w, http.StatusNotFound, services.KindNotFound, "no voice preference saved")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromVoicePreference(pref))
}

func (s *apiServer) handlePutVoicePreference(w http.ResponseWriter, r *http.Request) {
	var req api.VoicePreference
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, services.KindInvalidInput, err.Error())
		return
	}
	owner := ownerOf(r)
	if err := s.daemon.workflow.SaveVoicePreference(r.Context(), queue.VoicePreference{
		OwnerID:      owner,
		Host1VoiceID: req.Host1VoiceID,
		Host2VoiceID: req.Host2VoiceID,
	}); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	pref, err := s.daemon.workflow.VoicePreference(r.Context(), owner)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromVoicePreference(pref))
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := s.daemon.Health(r.Context())
	status := http.StatusOK
	if !health.Healthy {
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, health)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required: %w", err)
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusForKind maps an error kind to its HTTP status.
func statusForKind(kind services.Kind) int {
	switch kind {
	case services.KindInvalidInput:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConfigurationMissing:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.Normalize(err)
	status := statusForKind(kind)
	logger := logging.WithContext(r.Context(), s.logger)
	if status >= http.StatusInternalServerError {
		logging.WarnWithContext(logger, "api request failed", "api_request_failed",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "client received an error response"),
		)
	} else {
		logger.Debug("api request rejected",
			logging.String("path", r.URL.Path),
			logging.String(logging.FieldErrorKind, string(kind)),
			logging.Error(err),
		)
	}
	s.writeJSON(w, status, api.ErrorResponse{Error: services.UserMessage(kind), Kind: string(kind)})
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, kind services.Kind, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: string(kind)})
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}
