package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"podcastforge/internal/config"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/testsupport"
	"podcastforge/internal/workflow"
)

type fakeVoices struct{}

func (fakeVoices) Voices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{SpeakerID: "m1", Name: "Alex", Gender: "male"},
		{SpeakerID: "f1", Name: "Blair", Gender: "female"},
	}, nil
}

// newTestDaemon builds a daemon whose workflow is never started, so
// submitted tasks stay pending.
func newTestDaemon(t *testing.T, mutate ...func(*config.Config)) *Daemon {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	for _, fn := range mutate {
		fn(cfg)
	}
	store := testsupport.MustOpenStore(t, cfg)
	mgr := workflow.NewManager(cfg, store, workflow.Collaborators{Voices: fakeVoices{}}, nil)
	d, err := New(cfg, store, mgr, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(d.Stop)
	return d
}

func newAuthedRequest(method, path, token string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}
