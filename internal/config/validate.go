package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateConversion() error {
	if c.Conversion.WordsPerChapter <= 0 {
		return errors.New("conversion.words_per_chapter must be positive")
	}
	if c.Conversion.StyleTemplate == "" {
		return errors.New("conversion.style_template must be set")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if c.Detection.HTMLTagThreshold <= 0 {
		return errors.New("detection.html_tag_threshold must be positive")
	}
	if c.Detection.MarkdownPatternThreshold <= 0 {
		return errors.New("detection.markdown_pattern_threshold must be positive")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Enabled {
		if strings.TrimSpace(c.Cache.Dir) == "" {
			return errors.New("cache.dir must be set when cache.enabled is true")
		}
		if c.Cache.MaxMiB <= 0 {
			return errors.New("cache.max_mib must be positive when cache.enabled is true")
		}
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	return ensurePositiveMap(map[string]int{
		"workflow.max_concurrent":        c.Workflow.MaxConcurrent,
		"workflow.worker_pool_size":      c.Workflow.WorkerPoolSize,
		"workflow.sync_timeout_seconds":  c.Workflow.SyncTimeoutSeconds,
		"workflow.accumulator_max_clips": c.Workflow.AccumulatorMaxClips,
	})
}

func (c *Config) validateLLM() error {
	switch c.LLM.Provider {
	case "openrouter", "anthropic":
	default:
		return fmt.Errorf("llm.provider must be \"openrouter\" or \"anthropic\", got %q", c.LLM.Provider)
	}
	if c.LLM.Enabled && strings.TrimSpace(c.LLM.APIKey) == "" {
		return errors.New("llm.api_key must be set when llm.enabled is true (or set OPENROUTER_API_KEY / ANTHROPIC_API_KEY)")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return errors.New("llm.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if !c.Video.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Video.YtdlpBinary) == "" {
		return errors.New("video.ytdlp_binary must be set when video.enabled is true")
	}
	if len(c.Video.Languages) == 0 {
		return errors.New("video.languages must include at least one language when video.enabled is true")
	}
	if c.Video.ToolTimeoutSeconds <= 0 {
		return errors.New("video.tool_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
