package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podcastforge/internal/config"
	"podcastforge/internal/daemon"
	"podcastforge/internal/logging"
	"podcastforge/internal/services/tts"
	"podcastforge/internal/testsupport"
	"podcastforge/internal/workflow"
)

type fakeVoices struct{}

func (fakeVoices) Voices(context.Context) ([]tts.Voice, error) {
	return []tts.Voice{
		{SpeakerID: "m1", Name: "Alex", Gender: "male", Locale: "en-US"},
		{SpeakerID: "f1", Name: "Blair", Gender: "female", Locale: "en-US"},
	}, nil
}

type cliTestEnv struct {
	cfg        *config.Config
	daemon     *daemon.Daemon
	server     *httptest.Server
	configPath string
}

// setupCLITestEnv serves a daemon API whose workflow never starts, so
// submitted tasks stay pending.
func setupCLITestEnv(t *testing.T, mutate ...func(*config.Config)) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv(ownerEnv, "")

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	for _, fn := range mutate {
		fn(cfg)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	configPath := filepath.Join(homeDir, ".config", "podcastforge", "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, workflow.Collaborators{Voices: fakeVoices{}}, logger)
	d, err := daemon.New(cfg, store, mgr, logger)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.Handler())

	t.Cleanup(func() {
		srv.Close()
		d.Stop()
	})

	return &cliTestEnv{cfg: cfg, daemon: d, server: srv, configPath: configPath}
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runCLI(t, args, env.server.URL, env.configPath)
	return out, err
}

func runCLI(t *testing.T, args []string, server, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(""))
	var flags []string
	if server != "" {
		flags = append(flags, "--server", server)
	}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
