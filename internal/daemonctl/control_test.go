package daemonctl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"podcastforge/internal/api"
)

type scriptedStatus struct {
	mu        sync.Mutex
	responses []statusResponse
	calls     int
}

type statusResponse struct {
	status api.DaemonStatus
	err    error
}

// Status replays responses in order and repeats the last one.
func (s *scriptedStatus) Status(context.Context) (api.DaemonStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := min(s.calls, len(s.responses)-1)
	s.calls++
	r := s.responses[idx]
	return r.status, r.err
}

func TestWaitForAPIReturnsOnceRunning(t *testing.T) {
	client := &scriptedStatus{responses: []statusResponse{
		{err: errors.New("connection refused")},
		{status: api.DaemonStatus{Running: false}},
		{status: api.DaemonStatus{Running: true, PID: 42}},
	}}
	status, err := WaitForAPI(context.Background(), client, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitForAPI: %v", err)
	}
	if status.PID != 42 || client.calls != 3 {
		t.Fatalf("unexpected status %+v after %d calls", status, client.calls)
	}
}

func TestWaitForAPITimesOut(t *testing.T) {
	client := &scriptedStatus{responses: []statusResponse{{err: errors.New("connection refused")}}}
	if _, err := WaitForAPI(context.Background(), client, 300*time.Millisecond); err == nil {
		t.Fatal("expected a timeout")
	}
}

func TestEnsureStartedSkipsLaunchWhenRunning(t *testing.T) {
	client := &scriptedStatus{responses: []statusResponse{{status: api.DaemonStatus{Running: true}}}}
	result, err := EnsureStarted(context.Background(), client, "", LaunchOptions{}, time.Second)
	if err != nil {
		t.Fatalf("EnsureStarted: %v", err)
	}
	if result.State != StartStateAlreadyRunning {
		t.Fatalf("unexpected state %s", result.State)
	}
}

func TestLaunchRequiresExecutable(t *testing.T) {
	if err := Launch("  ", LaunchOptions{}); err == nil {
		t.Fatal("expected an error for an empty executable path")
	}
}

func TestWaitForShutdown(t *testing.T) {
	client := &scriptedStatus{responses: []statusResponse{
		{status: api.DaemonStatus{Running: true}},
		{err: errors.New("connection refused")},
	}}
	if err := WaitForShutdown(context.Background(), client, 5*time.Second); err != nil {
		t.Fatalf("WaitForShutdown: %v", err)
	}

	stuck := &scriptedStatus{responses: []statusResponse{{status: api.DaemonStatus{Running: true}}}}
	if err := WaitForShutdown(context.Background(), stuck, 300*time.Millisecond); err == nil {
		t.Fatal("expected an error while the daemon keeps answering")
	}
}

func TestReadPID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "podcastforge.pid")

	if pid, err := ReadPID(path, 7); err != nil || pid != 7 {
		t.Fatalf("missing file should use fallback, got %d %v", pid, err)
	}
	if err := os.WriteFile(path, []byte("1234\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if pid, err := ReadPID(path, 7); err != nil || pid != 1234 {
		t.Fatalf("expected 1234, got %d %v", pid, err)
	}
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if pid, _ := ReadPID(path, 7); pid != 7 {
		t.Fatalf("unparseable file should use fallback, got %d", pid)
	}
}

func TestSignalRefusesCurrentProcess(t *testing.T) {
	if err := Signal(os.Getpid(), syscall.SIGTERM); err == nil {
		t.Fatal("expected refusal for the current pid")
	}
	if err := Signal(0, syscall.SIGTERM); err == nil {
		t.Fatal("expected an error for pid 0")
	}
}

func TestStopWhenNotRunning(t *testing.T) {
	client := &scriptedStatus{responses: []statusResponse{{err: errors.New("connection refused")}}}
	_, err := StopAndTerminate(context.Background(), client, filepath.Join(t.TempDir(), "x.pid"), time.Second)
	if !errors.Is(err, ErrDaemonNotRunning) {
		t.Fatalf("expected ErrDaemonNotRunning, got %v", err)
	}
}
