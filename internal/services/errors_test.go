package services_test

import (
	"errors"
	"strings"
	"testing"

	"clipbook/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	inner := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "subtitles", "invoke yt-dlp", "tool exited nonzero", inner)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected ErrExternalTool marker, got %v", err)
	}
	if !errors.Is(err, inner) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
	if !strings.Contains(err.Error(), "subtitles: invoke yt-dlp: tool exited nonzero") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected ErrTransient default, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected generic detail, got %v", err)
	}
}

func TestClassificationHelpers(t *testing.T) {
	fatal := services.Wrap(services.ErrConfiguration, "llm", "auth", "api key rejected", nil)
	if !services.IsFatal(fatal) {
		t.Fatal("configuration errors must classify as fatal")
	}
	if services.IsRecoverable(fatal) {
		t.Fatal("configuration errors must not classify as recoverable")
	}

	transient := services.Wrap(services.ErrTransient, "llm", "request", "http 503", nil)
	if !services.IsRecoverable(transient) {
		t.Fatal("transient errors must classify as recoverable")
	}

	exhausted := services.Wrap(services.ErrRetriesExhausted, "llm", "request", "budget spent", nil)
	if services.IsRecoverable(exhausted) {
		t.Fatal("exhausted retries must not classify as recoverable")
	}
}
