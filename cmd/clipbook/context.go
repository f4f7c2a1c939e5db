package main

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"clipbook/internal/article"
	"clipbook/internal/assembly"
	"clipbook/internal/cache"
	"clipbook/internal/config"
	"clipbook/internal/convert"
	"clipbook/internal/history"
	"clipbook/internal/logging"
	"clipbook/internal/notifications"
	"clipbook/internal/services/llm"
	"clipbook/internal/styles"
	"clipbook/internal/subtitles"
	"clipbook/internal/workflow"
)

const articleFetchTimeout = 30 * time.Second

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// app bundles the wired subsystems for one CLI invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	cache    *cache.Cache
	history  *history.Store
	notifier notifications.Service
	manager  *workflow.Manager
}

// withApp wires the full pipeline, runs fn, and tears everything down.
func (c *commandContext) withApp(fn func(*app) error) error {
	a, err := c.buildApp()
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}

func (c *commandContext) buildApp() (*app, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	styleProvider := styles.NewProvider(cfg.Paths.TemplatesDir)
	deps := workflow.Deps{
		Converter: convert.New(article.NewClient(articleFetchTimeout), styleProvider, logger),
		Styles:    styleProvider,
		Assembler: assembly.NewBundleWriter(cfg.Paths.OutputDir, logger),
		Notifier:  notifications.NewService(cfg),
	}
	a.notifier = deps.Notifier

	if cfg.Cache.Enabled {
		store, err := cache.New(cfg.Cache.Dir, cfg.Cache.MaxMiB, logger)
		if err != nil {
			return nil, err
		}
		a.cache = store
		deps.Cache = store
	}

	if cfg.History.Enabled {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		a.history = store
		deps.History = store
	}

	if cfg.Video.Enabled {
		deps.Subtitles = subtitles.NewService(subtitles.Options{
			Languages:    cfg.Video.Languages,
			PreferNative: cfg.Video.PreferNative,
			Binary:       cfg.Video.YtdlpBinary,
			ToolTimeout:  time.Duration(cfg.Video.ToolTimeoutSeconds) * time.Second,
		}, logger)
	}

	if cfg.LLM.Enabled {
		provider, err := llm.NewProvider(cfg.LLM.Provider, llm.Options{
			APIKey:       cfg.LLM.APIKey,
			BaseURL:      cfg.LLM.BaseURL,
			Model:        cfg.LLM.Model,
			SystemPrompt: cfg.LLM.SystemPrompt,
			MaxTokens:    cfg.LLM.MaxTokens,
			Temperature:  cfg.LLM.Temperature,
			Timeout:      time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
			Referer:      cfg.LLM.Referer,
			Title:        cfg.LLM.Title,
		})
		if err != nil {
			return nil, err
		}
		deps.Rewriter = llm.NewRewriter(provider, cfg.LLM.RetryCount, logger)
	}

	a.manager = workflow.NewManager(cfg, deps, logger)
	return a, nil
}

func (a *app) close() {
	if a.manager != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := a.manager.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown did not settle", logging.Error(err))
		}
	}
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("close history", logging.Error(err))
		}
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
