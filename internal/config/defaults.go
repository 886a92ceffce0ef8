package config

// Storage backend and database driver names.
const (
	StorageBackendLocal = "local"
	StorageBackendS3    = "s3"

	DatabaseDriverSQLite   = "sqlite"
	DatabaseDriverPostgres = "postgres"
)

const (
	defaultConfigPath               = "~/.config/podcastforge/config.toml"
	defaultDataDir                  = "~/.local/share/podcastforge"
	defaultLogDir                   = "~/.local/share/podcastforge/logs"
	defaultTempDir                  = "~/.local/share/podcastforge/tmp"
	defaultStorageLocalDir          = "~/.local/share/podcastforge/objects"
	defaultAPIBind                  = "127.0.0.1:7488"
	defaultDatabaseMaxOpenConns     = 4
	defaultLLMBaseURL               = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMTitle                 = "Podcastforge"
	defaultLLMTimeoutSeconds        = 90
	defaultLLMRequestsPerMinute     = 60
	defaultTranscriptionBaseURL     = "http://127.0.0.1:9000/v1/transcriptions"
	defaultTranscriptionModel       = "whisper-1"
	defaultTranscriptionTimeout     = 600
	defaultTTSBaseURL               = "http://127.0.0.1:5500"
	defaultTTSLocale                = "zh-CN"
	defaultTTSTimeoutSeconds        = 120
	defaultTTSRequestsPerMinute     = 120
	defaultStorageRegion            = "us-east-1"
	defaultStoragePresignExpiry     = 3600
	defaultStorageMaxRetries        = 3
	defaultStorageTimeoutSeconds    = 60
	defaultMaxConcurrentTasks       = 2
	defaultHeartbeatInterval        = 15
	defaultHeartbeatTimeout         = 300
	defaultFFmpegBinary             = "ffmpeg"
	defaultFFprobeBinary            = "ffprobe"
	defaultYtDlpBinary              = "yt-dlp"
	defaultMaxAudioMB               = 50
	defaultFetchTimeoutSeconds      = 30
	defaultTempRetentionHours       = 24
	defaultMaxSourceChars           = 8000
	defaultMaxTitleChars            = 30
	defaultTitleSimilarity          = 0.9
	defaultSecondsPerChar           = 0.3
	defaultMaxHighlightSeconds      = 60
	defaultHighlightExtendThreshold = 0.8
	defaultClipBitrate              = "192k"
	defaultNotifyRequestTimeout     = 10
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 30
	defaultMetricsNamespace         = "podcastforge"
)

var (
	defaultLLMModels        = []string{"google/gemini-2.5-flash", "openai/gpt-4o-mini", "meta-llama/llama-3.3-70b-instruct"}
	defaultHighlightTargets = []int{20, 40, 60}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			TempDir: defaultTempDir,
			APIBind: defaultAPIBind,
		},
		Database: Database{
			Driver:       DatabaseDriverSQLite,
			MaxOpenConns: defaultDatabaseMaxOpenConns,
		},
		LLM: LLM{
			BaseURL:           defaultLLMBaseURL,
			Models:            append([]string(nil), defaultLLMModels...),
			Title:             defaultLLMTitle,
			TimeoutSeconds:    defaultLLMTimeoutSeconds,
			RequestsPerMinute: defaultLLMRequestsPerMinute,
		},
		Transcription: Transcription{
			BaseURL:        defaultTranscriptionBaseURL,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		TTS: TTS{
			BaseURL:           defaultTTSBaseURL,
			Locale:            defaultTTSLocale,
			TimeoutSeconds:    defaultTTSTimeoutSeconds,
			RequestsPerMinute: defaultTTSRequestsPerMinute,
		},
		Storage: Storage{
			Backend:              StorageBackendLocal,
			LocalDir:             defaultStorageLocalDir,
			Region:               defaultStorageRegion,
			PresignExpirySeconds: defaultStoragePresignExpiry,
			MaxRetries:           defaultStorageMaxRetries,
			TimeoutSeconds:       defaultStorageTimeoutSeconds,
		},
		Workflow: Workflow{
			MaxConcurrentTasks:  defaultMaxConcurrentTasks,
			HeartbeatInterval:   defaultHeartbeatInterval,
			HeartbeatTimeout:    defaultHeartbeatTimeout,
			FFmpegBinary:        defaultFFmpegBinary,
			FFprobeBinary:       defaultFFprobeBinary,
			YtDlpBinary:         defaultYtDlpBinary,
			MaxAudioMB:          defaultMaxAudioMB,
			FetchTimeoutSeconds: defaultFetchTimeoutSeconds,
			TempRetentionHours:  defaultTempRetentionHours,
		},
		Analysis: Analysis{
			MaxSourceChars:  defaultMaxSourceChars,
			MaxTitleChars:   defaultMaxTitleChars,
			FastPath:        true,
			TitleSimilarity: defaultTitleSimilarity,
		},
		Highlights: Highlights{
			SecondsPerChar:     defaultSecondsPerChar,
			MaxDurationSeconds: defaultMaxHighlightSeconds,
			DefaultDurations:   append([]int(nil), defaultHighlightTargets...),
			ExtendThreshold:    defaultHighlightExtendThreshold,
			ClipBitrate:        defaultClipBitrate,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			TaskCompleted:  true,
			TaskFailed:     true,
			Highlights:     true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: defaultMetricsNamespace,
		},
	}
}
