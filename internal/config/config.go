package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	TempDir  string `toml:"temp_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Database selects the task store backend.
type Database struct {
	Driver       string `toml:"driver"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

// LLM contains chat-completion connection settings. Models are tried in order
// when a provider rejects or rate-limits a request.
type LLM struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Models            []string `toml:"models"`
	Referer           string   `toml:"referer"`
	Title             string   `toml:"title"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
	RequestsPerMinute int      `toml:"requests_per_minute"`
}

// Transcription contains speech-to-text gateway settings.
type Transcription struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// TTS contains text-to-speech gateway settings.
type TTS struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	Locale            string `toml:"locale"`
	Host1Voice        string `toml:"host1_voice"`
	Host2Voice        string `toml:"host2_voice"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

// Storage selects and configures the object storage backend.
type Storage struct {
	Backend              string `toml:"backend"`
	LocalDir             string `toml:"local_dir"`
	PublicBaseURL        string `toml:"public_base_url"`
	Bucket               string `toml:"bucket"`
	Region               string `toml:"region"`
	Endpoint             string `toml:"endpoint"`
	AccessKeyID          string `toml:"access_key_id"`
	SecretAccessKey      string `toml:"secret_access_key"`
	UsePathStyle         bool   `toml:"use_path_style"`
	PresignExpirySeconds int    `toml:"presign_expiry_seconds"`
	MaxRetries           int    `toml:"max_retries"`
	TimeoutSeconds       int    `toml:"timeout_seconds"`
}

// Workflow contains task execution settings and external tool names.
type Workflow struct {
	MaxConcurrentTasks  int    `toml:"max_concurrent_tasks"`
	HeartbeatInterval   int    `toml:"heartbeat_interval"`
	HeartbeatTimeout    int    `toml:"heartbeat_timeout"`
	FFmpegBinary        string `toml:"ffmpeg_binary"`
	FFprobeBinary       string `toml:"ffprobe_binary"`
	YtDlpBinary         string `toml:"ytdlp_binary"`
	MaxAudioMB          int    `toml:"max_audio_mb"`
	FetchTimeoutSeconds int    `toml:"fetch_timeout_seconds"`
	TempRetentionHours  int    `toml:"temp_retention_hours"`
}

// Analysis contains content analyzer settings.
type Analysis struct {
	MaxSourceChars  int     `toml:"max_source_chars"`
	MaxTitleChars   int     `toml:"max_title_chars"`
	FastPath        bool    `toml:"fast_path"`
	TitleSimilarity float64 `toml:"title_similarity"`
}

// Highlights contains highlight extraction and clipping settings.
type Highlights struct {
	// SecondsPerChar is the empirical speech-rate estimate used to map
	// script characters onto audio time.
	SecondsPerChar     float64 `toml:"seconds_per_char"`
	MaxDurationSeconds int     `toml:"max_duration_seconds"`
	DefaultDurations   []int   `toml:"default_durations"`
	ExtendThreshold    float64 `toml:"extend_threshold"`
	ClipBitrate        string  `toml:"clip_bitrate"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	TaskCompleted  bool   `toml:"task_completed"`
	TaskFailed     bool   `toml:"task_failed"`
	Highlights     bool   `toml:"highlights"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Metrics controls the Prometheus endpoint.
type Metrics struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Config encapsulates all configuration values for podcastforge.
//
// Configuration sections by subsystem:
//   - Paths: data, log and temp directories plus the API bind address
//   - Database: task store driver (sqlite or postgres)
//   - LLM: chat-completion provider and ordered model fallback list
//   - Transcription: speech-to-text gateway
//   - TTS: text-to-speech gateway and default host voices
//   - Storage: object storage backend (local or s3)
//   - Workflow: worker pool, heartbeat and external tool settings
//   - Analysis: truncation and fast-path verification thresholds
//   - Highlights: duration estimation and clip encoding
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
//   - Metrics: Prometheus exposition
type Config struct {
	Paths         Paths         `toml:"paths"`
	Database      Database      `toml:"database"`
	LLM           LLM           `toml:"llm"`
	Transcription Transcription `toml:"transcription"`
	TTS           TTS           `toml:"tts"`
	Storage       Storage       `toml:"storage"`
	Workflow      Workflow      `toml:"workflow"`
	Analysis      Analysis      `toml:"analysis"`
	Highlights    Highlights    `toml:"highlights"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. Environment files (.env) next to the
// working directory and the config file are applied before env fallbacks are read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadEnvFiles(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadEnvFiles applies .env files without overriding variables already set.
func loadEnvFiles(configPath string) error {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("load env file %s: %w", abs, err)
		}
	}
	return nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("podcastforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.TempDir}
	if c.Storage.Backend == StorageBackendLocal {
		dirs = append(dirs, c.Storage.LocalDir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "podcastforge.lock")
}

// SQLitePath returns the default SQLite database file.
func (c *Config) SQLitePath() string {
	return filepath.Join(c.Paths.DataDir, "podcastforge.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// LLMConfig contains the LLM settings handed to the client.
type LLMConfig struct {
	APIKey            string
	BaseURL           string
	Models            []string
	Referer           string
	Title             string
	TimeoutSeconds    int
	RequestsPerMinute int
}

// GetLLM returns the LLM connection settings with whitespace trimmed.
func (c *Config) GetLLM() LLMConfig {
	models := make([]string, 0, len(c.LLM.Models))
	for _, model := range c.LLM.Models {
		if trimmed := strings.TrimSpace(model); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	return LLMConfig{
		APIKey:            strings.TrimSpace(c.LLM.APIKey),
		BaseURL:           strings.TrimSpace(c.LLM.BaseURL),
		Models:            models,
		Referer:           strings.TrimSpace(c.LLM.Referer),
		Title:             strings.TrimSpace(c.LLM.Title),
		TimeoutSeconds:    c.LLM.TimeoutSeconds,
		RequestsPerMinute: c.LLM.RequestsPerMinute,
	}
}
