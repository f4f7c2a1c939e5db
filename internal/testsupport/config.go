// Package testsupport provides shared helpers for package tests.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipbook/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.TemplatesDir = filepath.Join(base, "templates")
	cfgVal.Cache.Dir = filepath.Join(base, "cache")
	cfgVal.History.Path = filepath.Join(base, "history.db")
	cfgVal.LLM.Enabled = false
	cfgVal.Video.Enabled = false
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithLLM enables the rewriter with test credentials.
func WithLLM(provider, apiKey, baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.LLM.Enabled = true
		b.cfg.LLM.Provider = provider
		b.cfg.LLM.APIKey = apiKey
		b.cfg.LLM.BaseURL = baseURL
	}
}

// WithVideo enables the subtitle pipeline.
func WithVideo(languages ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Video.Enabled = true
		if len(languages) > 0 {
			b.cfg.Video.Languages = languages
		}
	}
}

// WithWorkflow sizes the orchestrator.
func WithWorkflow(maxConcurrent, workerPoolSize int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Workflow.MaxConcurrent = maxConcurrent
		b.cfg.Workflow.WorkerPoolSize = workerPoolSize
	}
}

// WriteFile creates a file under the test base directory and returns its
// path.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
