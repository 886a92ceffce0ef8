package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateHighlights(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		return nil
	case DatabaseDriverPostgres:
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required when database.driver is postgres (or set DATABASE_URL)")
		}
		return nil
	default:
		return fmt.Errorf("database.driver must be %q or %q", DatabaseDriverSQLite, DatabaseDriverPostgres)
	}
}

func (c *Config) validateLLM() error {
	if len(c.GetLLM().Models) == 0 {
		return errors.New("llm.models must list at least one model")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.New("llm.requests_per_minute must be >= 0")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageBackendLocal:
		return nil
	case StorageBackendS3:
		if strings.TrimSpace(c.Storage.Bucket) == "" {
			return errors.New("storage.bucket is required when storage.backend is s3 (or set S3_BUCKET)")
		}
		if c.Storage.MaxRetries < 0 {
			return errors.New("storage.max_retries must be >= 0")
		}
		return nil
	default:
		return fmt.Errorf("storage.backend must be %q or %q", StorageBackendLocal, StorageBackendS3)
	}
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.MaxConcurrentTasks <= 0 {
		return errors.New("workflow.max_concurrent_tasks must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.MaxAudioMB <= 0 {
		return errors.New("workflow.max_audio_mb must be positive")
	}
	if c.Workflow.TempRetentionHours < 0 {
		return errors.New("workflow.temp_retention_hours must be >= 0")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.MaxSourceChars <= 0 {
		return errors.New("analysis.max_source_chars must be positive")
	}
	if c.Analysis.MaxTitleChars <= 0 {
		return errors.New("analysis.max_title_chars must be positive")
	}
	if c.Analysis.TitleSimilarity <= 0 || c.Analysis.TitleSimilarity > 1 {
		return errors.New("analysis.title_similarity must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateHighlights() error {
	if c.Highlights.SecondsPerChar <= 0 {
		return errors.New("highlights.seconds_per_char must be positive")
	}
	if c.Highlights.MaxDurationSeconds <= 0 || c.Highlights.MaxDurationSeconds > 60 {
		return errors.New("highlights.max_duration_seconds must be between 1 and 60")
	}
	if c.Highlights.ExtendThreshold <= 0 || c.Highlights.ExtendThreshold > 1 {
		return errors.New("highlights.extend_threshold must be in (0, 1]")
	}
	for _, target := range c.Highlights.DefaultDurations {
		if target <= 0 {
			return fmt.Errorf("highlights.default_durations: %d must be positive", target)
		}
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout < 0 {
		return errors.New("notifications.request_timeout must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
