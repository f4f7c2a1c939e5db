package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"clipbook/internal/config"
	"clipbook/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyConversionCompleted(context.Background(), "Example", "/out/example.html", 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	type captured struct {
		title    string
		tags     string
		priority string
		body     string
	}

	tests := []struct {
		name           string
		publish        func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "conversion completed",
			publish: func(svc notifications.Service) error {
				return svc.NotifyConversionCompleted(context.Background(), "Field Notes", "/out/field-notes.html", 4)
			},
			expectTitle:   "Clipbook - Complete",
			expectMessage: "Converted: Field Notes (4 chapters)\nFile: /out/field-notes.html",
			expectTags:    "clipbook,convert,completed",
		},
		{
			name: "conversion failed",
			publish: func(svc notifications.Service) error {
				return svc.NotifyConversionFailed(context.Background(), "Field Notes", errors.New("fetch failed"))
			},
			expectTitle:    "Clipbook - Error",
			expectMessage:  "Conversion failed for Field Notes: fetch failed",
			expectTags:     "clipbook,error,alert",
			expectPriority: "high",
		},
		{
			name: "subtitle fallback",
			publish: func(svc notifications.Service) error {
				return svc.NotifySubtitleFallback(context.Background(), "https://youtu.be/abc", "")
			},
			expectTitle:   "Clipbook - Fallback",
			expectMessage: "Subtitle pipeline fell back to generic conversion for https://youtu.be/abc: no subtitles available",
			expectTags:    "clipbook,subtitles,fallback",
		},
		{
			name: "test notification",
			publish: func(svc notifications.Service) error {
				return svc.TestNotification(context.Background())
			},
			expectTitle:    "Clipbook - Test",
			expectMessage:  "Notification system test",
			expectTags:     "clipbook,test",
			expectPriority: "low",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got captured
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				got.title = r.Header.Get("Title")
				got.tags = r.Header.Get("Tags")
				got.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				got.body = string(body)
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5
			cfg.Notifications.Completed = true
			cfg.Notifications.Errors = true

			svc := notifications.NewService(&cfg)
			if err := tc.publish(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if got.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, got.title)
			}
			if got.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, got.body)
			}
			if got.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, got.tags)
			}
			if got.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, got.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsEventToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for suppressed event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.Completed = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	if err := svc.NotifyConversionCompleted(context.Background(), "Example", "", 1); err != nil {
		t.Fatalf("suppressed completion must be silent, got %v", err)
	}
	if err := svc.NotifyConversionFailed(context.Background(), "Example", errors.New("x")); err != nil {
		t.Fatalf("suppressed error must be silent, got %v", err)
	}
	if err := svc.NotifySubtitleFallback(context.Background(), "https://youtu.be/abc", "none"); err != nil {
		t.Fatalf("suppressed fallback must be silent, got %v", err)
	}
}
