package config

const (
	defaultDataDir      = "~/.local/share/clipbook"
	defaultOutputDir    = "~/Documents/clipbook"
	defaultLogDir       = "~/.local/share/clipbook/logs"
	defaultTemplatesDir = "~/.config/clipbook/templates"

	defaultWordsPerChapter = 3000
	minWordsPerChapter     = 100
	defaultStyleTemplate   = "default"
	defaultAuthor          = "Clipbook"
	defaultLanguage        = "en"

	defaultHTMLTagThreshold         = 3
	defaultMarkdownPatternThreshold = 2

	defaultCacheMaxMiB = 100

	defaultHistoryPath          = "~/.local/share/clipbook/history.db"
	defaultHistoryRetentionDays = 365

	defaultMaxConcurrent       = 4
	defaultWorkerPoolSize      = 2
	defaultSyncTimeoutSeconds  = 300
	defaultAccumulatorMaxClips = 50

	defaultLLMProvider       = "openrouter"
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
	defaultAnthropicBaseURL  = "https://api.anthropic.com/v1/messages"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMMaxTokens      = 4096
	defaultLLMTemperature    = 0.3
	defaultLLMTimeoutSeconds = 120
	defaultLLMRetryCount     = 3
	defaultLLMReferer        = "https://github.com/clipbook/clipbook"
	defaultLLMTitle          = "Clipbook Rewriter"

	defaultYtdlpBinary        = "yt-dlp"
	defaultToolTimeoutSeconds = 120

	defaultNotifyRequestTimeout = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			OutputDir:    defaultOutputDir,
			LogDir:       defaultLogDir,
			TemplatesDir: defaultTemplatesDir,
		},
		Conversion: Conversion{
			WordsPerChapter: defaultWordsPerChapter,
			StyleTemplate:   defaultStyleTemplate,
			DefaultAuthor:   defaultAuthor,
			DefaultLanguage: defaultLanguage,
		},
		Detection: Detection{
			HTMLTagThreshold:         defaultHTMLTagThreshold,
			MarkdownPatternThreshold: defaultMarkdownPatternThreshold,
		},
		Cache: Cache{
			Enabled: true,
			Dir:     defaultCacheDir(),
			MaxMiB:  defaultCacheMaxMiB,
		},
		History: History{
			Enabled:       true,
			Path:          defaultHistoryPath,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Workflow: Workflow{
			MaxConcurrent:       defaultMaxConcurrent,
			WorkerPoolSize:      defaultWorkerPoolSize,
			SyncTimeoutSeconds:  defaultSyncTimeoutSeconds,
			AccumulatorMaxClips: defaultAccumulatorMaxClips,
		},
		LLM: LLM{
			Provider:       defaultLLMProvider,
			BaseURL:        defaultOpenRouterBaseURL,
			Model:          defaultLLMModel,
			MaxTokens:      defaultLLMMaxTokens,
			Temperature:    defaultLLMTemperature,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
			RetryCount:     defaultLLMRetryCount,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
		},
		Video: Video{
			Enabled:            true,
			Languages:          []string{"en"},
			PreferNative:       true,
			YtdlpBinary:        defaultYtdlpBinary,
			ToolTimeoutSeconds: defaultToolTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
