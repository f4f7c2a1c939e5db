package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"clipbook/internal/cache"
	"clipbook/internal/convert"
	"clipbook/internal/detect"
	"clipbook/internal/logging"
	"clipbook/internal/styles"
	"clipbook/internal/testsupport"
)

func TestCacheKeyIndependentOfDetectedKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	logger := logging.NewNop()
	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.MaxMiB, logger)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	styleProvider := styles.NewProvider("")
	m := NewManager(cfg, Deps{
		Converter: convert.New(nil, styleProvider, logger),
		Styles:    styleProvider,
		Cache:     store,
	}, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.Shutdown(ctx)
	})

	req := Request{}
	content := "# Heading\n\nSome **markdown** body."

	result, hit, err := m.convertThroughCache(context.Background(), content, "", req)
	if err != nil || hit {
		t.Fatalf("first build = (hit=%v, err=%v)", hit, err)
	}
	if result.Metadata.Kind != detect.KindMarkdown {
		t.Fatalf("kind = %s", result.Metadata.Kind)
	}

	// The key must be computable without running detection, so the stored
	// entry is addressable from content and options alone.
	opts := m.cacheOptions("", req)
	if !strings.Contains(opts, "kind=auto") {
		t.Fatalf("options = %q", opts)
	}
	if _, ok := store.Get(cache.Key(content, opts)); !ok {
		t.Fatal("entry not stored under the detection-free key")
	}

	// Replaced content (video branch) keys under its pinned kind instead.
	if m.cacheOptions(detect.KindMarkdown, req) == opts {
		t.Fatal("forced kind must key separately from auto detection")
	}

	if _, hit, err = m.convertThroughCache(context.Background(), content, "", req); err != nil || !hit {
		t.Fatalf("second build = (hit=%v, err=%v)", hit, err)
	}
}
