package daemon

import (
	"context"
	"net/http"
	"testing"

	"podcastforge/internal/api"
	"podcastforge/internal/config"
	"podcastforge/internal/testsupport"
	"podcastforge/internal/workflow"
)

func TestDaemonStartStop(t *testing.T) {
	d := newTestDaemon(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !d.Running() || d.Addr() == "" {
		t.Fatalf("expected a running daemon with a listener, addr=%q", d.Addr())
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	client := api.NewClient(d.Addr(), "", "alice")
	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || !status.Workflow.Running || status.PID == 0 {
		t.Fatalf("unexpected status %+v", status)
	}

	d.Stop()
	if d.Running() || d.Addr() != "" {
		t.Fatal("expected daemon to be stopped")
	}
	if _, err := client.Status(ctx); err == nil {
		t.Fatal("expected the api to be closed after Stop")
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	first := newTestDaemon(t)
	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	cfg := *first.cfg
	cfg.Paths.APIBind = ""
	store := testsupport.MustOpenStore(t, &cfg)
	second, err := New(&cfg, store, workflow.NewManager(&cfg, store, workflow.Collaborators{}, nil), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("expected the lock to block a second daemon")
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("expected start after the lock was released: %v", err)
	}
	second.Stop()
}

func TestAPIRequiresToken(t *testing.T) {
	d := newTestDaemon(t, func(c *config.Config) { c.Paths.APIToken = "s3cret" })
	h := d.Handler()

	if w := doRequest(t, h, http.MethodGet, "/api/status", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a token, got %d", w.Code)
	}

	req := newAuthedRequest(http.MethodGet, "/api/status", "wrong")
	w := serve(h, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a wrong token, got %d", w.Code)
	}

	w = serve(h, newAuthedRequest(http.MethodGet, "/api/status", "s3cret"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with the token, got %d", w.Code)
	}
}

func TestMetricsRouteOnlyWhenEnabled(t *testing.T) {
	d := newTestDaemon(t)
	if w := doRequest(t, d.Handler(), http.MethodGet, "/metrics", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected no metrics route without collectors, got %d", w.Code)
	}
}
