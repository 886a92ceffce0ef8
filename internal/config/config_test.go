package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podcastforge/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENROUTER_API_KEY", "test-key")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "podcastforge")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.APIBind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Database.Driver != config.DatabaseDriverSQLite {
		t.Fatalf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.Storage.Backend != config.StorageBackendLocal {
		t.Fatalf("expected local storage backend, got %q", cfg.Storage.Backend)
	}
	if cfg.Highlights.SecondsPerChar != 0.3 {
		t.Fatalf("expected 0.3 seconds per char, got %v", cfg.Highlights.SecondsPerChar)
	}
	if cfg.Highlights.MaxDurationSeconds != 60 {
		t.Fatalf("expected 60s ceiling, got %d", cfg.Highlights.MaxDurationSeconds)
	}
	if cfg.Analysis.MaxSourceChars != 8000 {
		t.Fatalf("expected 8000 char cap, got %d", cfg.Analysis.MaxSourceChars)
	}
	if got := cfg.SQLitePath(); got != filepath.Join(wantData, "podcastforge.db") {
		t.Fatalf("unexpected sqlite path %q", got)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := struct {
		Paths      map[string]any `toml:"paths"`
		LLM        map[string]any `toml:"llm"`
		Highlights map[string]any `toml:"highlights"`
		Logging    map[string]any `toml:"logging"`
	}{
		Paths: map[string]any{
			"data_dir": "~/forge",
			"api_bind": "0.0.0.0:9000",
		},
		LLM: map[string]any{
			"models": []string{" model-a ", "model-b"},
		},
		Highlights: map[string]any{
			"seconds_per_char":  0.25,
			"default_durations": []int{15, 30},
		},
		Logging: map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected existing config at %q, got %q (exists=%v)", configPath, resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "forge") {
		t.Fatalf("unexpected data dir %q", cfg.Paths.DataDir)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind %q", cfg.Paths.APIBind)
	}
	models := cfg.GetLLM().Models
	if len(models) != 2 || models[0] != "model-a" {
		t.Fatalf("unexpected models %v", models)
	}
	if cfg.Highlights.SecondsPerChar != 0.25 {
		t.Fatalf("unexpected seconds per char %v", cfg.Highlights.SecondsPerChar)
	}
	if len(cfg.Highlights.DefaultDurations) != 2 {
		t.Fatalf("unexpected durations %v", cfg.Highlights.DefaultDurations)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadAppliesDotEnvWithoutOverridingEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("TTS_API_KEY=from-dotenv\nOPENROUTER_API_KEY=ignored\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("OPENROUTER_API_KEY", "from-env")
	t.Setenv("TTS_API_KEY", "")
	os.Unsetenv("TTS_API_KEY")
	t.Cleanup(func() { os.Unsetenv("TTS_API_KEY") })

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TTS.APIKey != "from-dotenv" {
		t.Fatalf("expected TTS key from .env, got %q", cfg.TTS.APIKey)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Fatalf("expected existing env to win, got %q", cfg.LLM.APIKey)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "postgres without dsn",
			mutate: func(c *config.Config) { c.Database.Driver = config.DatabaseDriverPostgres },
			want:   "database.dsn",
		},
		{
			name:   "s3 without bucket",
			mutate: func(c *config.Config) { c.Storage.Backend = config.StorageBackendS3 },
			want:   "storage.bucket",
		},
		{
			name:   "ceiling above sixty",
			mutate: func(c *config.Config) { c.Highlights.MaxDurationSeconds = 90 },
			want:   "highlights.max_duration_seconds",
		},
		{
			name:   "zero seconds per char",
			mutate: func(c *config.Config) { c.Highlights.SecondsPerChar = 0 },
			want:   "highlights.seconds_per_char",
		},
		{
			name:   "similarity out of range",
			mutate: func(c *config.Config) { c.Analysis.TitleSimilarity = 1.5 },
			want:   "analysis.title_similarity",
		},
		{
			name:   "no models",
			mutate: func(c *config.Config) { c.LLM.Models = []string{" "} },
			want:   "llm.models",
		},
		{
			name:   "heartbeat timeout too small",
			mutate: func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval },
			want:   "workflow.heartbeat_timeout",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleWritesLoadableConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("expected sample to load, exists=%v err=%v", exists, err)
	}
}
