package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"podcastforge/internal/services/tts"
	"podcastforge/internal/storage"
)

// HealthChecker pings a remote service. *llm.Client satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// VoiceLister lists the TTS voice catalog. *tts.Client satisfies it.
type VoiceLister interface {
	Voices(ctx context.Context) ([]tts.Voice, error)
}

const probeKey = "preflight/probe.txt"

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt.
func CheckLLM(ctx context.Context, name string, checker HealthChecker) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := checker.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "API reachable"}
}

// CheckVoices verifies that the TTS catalog is reachable and non-empty.
func CheckVoices(ctx context.Context, name string, lister VoiceLister) Result {
	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	voices, err := lister.Voices(checkCtx)
	if err != nil {
		return Result{Name: name, Detail: summarizeRemoteError(err)}
	}
	if len(voices) == 0 {
		return Result{Name: name, Detail: "voice catalog is empty"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d voices available", len(voices))}
}

// CheckStorage writes and removes a probe object.
func CheckStorage(ctx context.Context, store storage.Store) Result {
	name := "Object storage (" + store.Name() + ")"
	checkCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if _, err := store.Put(checkCtx, probeKey, []byte("ok"), "text/plain"); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("write failed (%s)", summarizeRemoteError(err))}
	}
	if err := store.Delete(checkCtx, probeKey); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("delete failed (%s)", summarizeRemoteError(err))}
	}
	return Result{Name: name, Passed: true, Detail: "read/write ok"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// summarizeRemoteError produces a human-readable summary for remote check failures.
func summarizeRemoteError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (service unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (service unreachable)"
	}
	return err.Error()
}
