package subtitles

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipbook/internal/logging"
	"clipbook/internal/services"
)

const sampleVTT = `WEBVTT

00:00:01.000 --> 00:00:03.000
Hello there

00:00:03.000 --> 00:00:05.000
General Kenobi
`

type call struct {
	mode string
	lang string
}

func parseCall(args []string) call {
	var c call
	for i, arg := range args {
		switch arg {
		case "--write-subs", "--write-auto-subs":
			c.mode = arg
		case "--sub-langs":
			c.lang = args[i+1]
		}
	}
	return c
}

func TestFetchPrefersNativeOrder(t *testing.T) {
	svc := NewService(Options{
		Languages:    []string{"en-US", "pt"},
		PreferNative: true,
	}, logging.NewNop())

	var calls []call
	svc.run = func(ctx context.Context, dir, name string, args ...string) error {
		c := parseCall(args)
		calls = append(calls, c)
		// Only the auto-generated Portuguese track exists.
		if c.mode == "--write-auto-subs" && c.lang == "pt" {
			path := filepath.Join(dir, "video.pt.vtt")
			if err := os.WriteFile(path, []byte(sampleVTT), 0o644); err != nil {
				t.Fatalf("write track: %v", err)
			}
		}
		return nil
	}

	text, err := svc.Fetch(context.Background(), "https://youtu.be/abc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if text != "Hello there General Kenobi" {
		t.Fatalf("text = %q", text)
	}

	want := []call{
		{"--write-subs", "en"},
		{"--write-auto-subs", "en"},
		{"--write-subs", "pt"},
		{"--write-auto-subs", "pt"},
	}
	if len(calls) != len(want) {
		t.Fatalf("calls = %+v", calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("call %d = %+v, want %+v", i, calls[i], want[i])
		}
	}
}

func TestFetchAutoFirstWhenNativeNotPreferred(t *testing.T) {
	svc := NewService(Options{Languages: []string{"en"}}, logging.NewNop())

	var first string
	svc.run = func(ctx context.Context, dir, name string, args ...string) error {
		if first == "" {
			first = parseCall(args).mode
		}
		path := filepath.Join(dir, "video.en.vtt")
		return os.WriteFile(path, []byte(sampleVTT), 0o644)
	}

	if _, err := svc.Fetch(context.Background(), "https://youtu.be/abc"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if first != "--write-auto-subs" {
		t.Fatalf("first mode = %q", first)
	}
}

func TestFetchToolFailuresAreSoft(t *testing.T) {
	svc := NewService(Options{Languages: []string{"en"}}, logging.NewNop())
	svc.run = func(ctx context.Context, dir, name string, args ...string) error {
		return services.Wrap(services.ErrExternalTool, "subtitles", "run tool", "exit status 1", nil)
	}

	_, err := svc.Fetch(context.Background(), "https://youtu.be/abc")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found after soft failures, got %v", err)
	}
}

func TestFetchMissingBinaryAbortsImmediately(t *testing.T) {
	svc := NewService(Options{Languages: []string{"en", "es"}}, logging.NewNop())
	attempts := 0
	svc.run = func(ctx context.Context, dir, name string, args ...string) error {
		attempts++
		return services.Wrap(services.ErrNotFound, "subtitles", "run tool", "yt-dlp not found", nil)
	}

	_, err := svc.Fetch(context.Background(), "https://youtu.be/abc")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("missing binary must not be retried, got %d attempts", attempts)
	}
}

func TestFetchEmptyURLIsValidationError(t *testing.T) {
	svc := NewService(Options{}, logging.NewNop())
	if _, err := svc.Fetch(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchBoundsEachInvocation(t *testing.T) {
	svc := NewService(Options{Languages: []string{"en"}, ToolTimeout: 5 * time.Millisecond}, logging.NewNop())
	svc.run = func(ctx context.Context, dir, name string, args ...string) error {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected per-invocation deadline")
		}
		if time.Until(deadline) > time.Second {
			t.Fatalf("deadline too far out: %v", deadline)
		}
		path := filepath.Join(dir, "video.en.vtt")
		return os.WriteFile(path, []byte(sampleVTT), 0o644)
	}
	if _, err := svc.Fetch(context.Background(), "https://youtu.be/abc"); err != nil {
		t.Fatalf("fetch: %v", err)
	}
}

func TestNormalizeLanguages(t *testing.T) {
	cases := []struct {
		name string
		in   []string
		want string
	}{
		{"region stripped", []string{"en-US"}, "en"},
		{"dedup", []string{"en", "EN", "en-GB"}, "en"},
		{"cap at three", []string{"en", "es", "pt", "fr"}, "en es pt"},
		{"invalid falls back", []string{"???"}, "en es pt"},
		{"empty falls back", nil, "en es pt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := strings.Join(normalizeLanguages(tc.in), " ")
			if got != tc.want {
				t.Fatalf("normalizeLanguages(%v) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
