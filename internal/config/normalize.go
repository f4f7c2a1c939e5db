package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeConversion()
	c.normalizeDetection()
	if err := c.normalizeCache(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.normalizeWorkflow()
	c.normalizeLLM()
	c.normalizeVideo()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TemplatesDir) == "" {
		c.Paths.TemplatesDir = defaultTemplatesDir
	}
	if c.Paths.TemplatesDir, err = expandPath(c.Paths.TemplatesDir); err != nil {
		return fmt.Errorf("paths.templates_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeConversion() {
	if c.Conversion.WordsPerChapter <= 0 {
		c.Conversion.WordsPerChapter = defaultWordsPerChapter
	}
	if c.Conversion.WordsPerChapter < minWordsPerChapter {
		c.Conversion.WordsPerChapter = minWordsPerChapter
	}
	c.Conversion.StyleTemplate = strings.ToLower(strings.TrimSpace(c.Conversion.StyleTemplate))
	if c.Conversion.StyleTemplate == "" {
		c.Conversion.StyleTemplate = defaultStyleTemplate
	}
	c.Conversion.DefaultAuthor = strings.TrimSpace(c.Conversion.DefaultAuthor)
	if c.Conversion.DefaultAuthor == "" {
		c.Conversion.DefaultAuthor = defaultAuthor
	}
	c.Conversion.DefaultLanguage = strings.ToLower(strings.TrimSpace(c.Conversion.DefaultLanguage))
	if c.Conversion.DefaultLanguage == "" {
		c.Conversion.DefaultLanguage = defaultLanguage
	}
}

func (c *Config) normalizeDetection() {
	if c.Detection.HTMLTagThreshold <= 0 {
		c.Detection.HTMLTagThreshold = defaultHTMLTagThreshold
	}
	if c.Detection.MarkdownPatternThreshold <= 0 {
		c.Detection.MarkdownPatternThreshold = defaultMarkdownPatternThreshold
	}
}

func (c *Config) normalizeCache() error {
	var err error
	if strings.TrimSpace(c.Cache.Dir) == "" {
		c.Cache.Dir = defaultCacheDir()
	}
	if c.Cache.Dir, err = expandPath(c.Cache.Dir); err != nil {
		return fmt.Errorf("cache.dir: %w", err)
	}
	if c.Cache.MaxMiB <= 0 {
		c.Cache.MaxMiB = defaultCacheMaxMiB
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	var err error
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	if c.History.Path, err = expandPath(c.History.Path); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if c.History.RetentionDays < 0 {
		c.History.RetentionDays = 0
	}
	return nil
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.MaxConcurrent <= 0 {
		c.Workflow.MaxConcurrent = defaultMaxConcurrent
	}
	if c.Workflow.WorkerPoolSize <= 0 {
		c.Workflow.WorkerPoolSize = defaultWorkerPoolSize
	}
	if c.Workflow.SyncTimeoutSeconds <= 0 {
		c.Workflow.SyncTimeoutSeconds = defaultSyncTimeoutSeconds
	}
	if c.Workflow.AccumulatorMaxClips <= 0 {
		c.Workflow.AccumulatorMaxClips = defaultAccumulatorMaxClips
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.LLM.Provider == "" {
		c.LLM.Provider = defaultLLMProvider
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		switch c.LLM.Provider {
		case "anthropic":
			c.LLM.BaseURL = defaultAnthropicBaseURL
		default:
			c.LLM.BaseURL = defaultOpenRouterBaseURL
		}
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = defaultLLMMaxTokens
	}
	if c.LLM.Temperature < 0 {
		c.LLM.Temperature = defaultLLMTemperature
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
	if c.LLM.RetryCount < 0 {
		c.LLM.RetryCount = defaultLLMRetryCount
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	if c.LLM.Referer == "" {
		c.LLM.Referer = defaultLLMReferer
	}
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.Title == "" {
		c.LLM.Title = defaultLLMTitle
	}
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "anthropic":
			if value, ok := os.LookupEnv("ANTHROPIC_API_KEY"); ok {
				c.LLM.APIKey = strings.TrimSpace(value)
			}
		default:
			if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
				c.LLM.APIKey = strings.TrimSpace(value)
			}
		}
	}
}

func (c *Config) normalizeVideo() {
	c.Video.YtdlpBinary = strings.TrimSpace(c.Video.YtdlpBinary)
	if c.Video.YtdlpBinary == "" {
		c.Video.YtdlpBinary = defaultYtdlpBinary
	}
	if c.Video.ToolTimeoutSeconds <= 0 {
		c.Video.ToolTimeoutSeconds = defaultToolTimeoutSeconds
	}
	if len(c.Video.Languages) == 0 {
		c.Video.Languages = []string{"en"}
		return
	}
	langs := make([]string, 0, len(c.Video.Languages))
	seen := make(map[string]struct{}, len(c.Video.Languages))
	for _, lang := range c.Video.Languages {
		normalized := strings.ToLower(strings.TrimSpace(lang))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		langs = append(langs, normalized)
	}
	if len(langs) == 0 {
		langs = []string{"en"}
	}
	c.Video.Languages = langs
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
