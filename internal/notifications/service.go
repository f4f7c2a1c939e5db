package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipbook/internal/config"
)

const userAgent = "clipbook/1.0"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyConversionCompleted(ctx context.Context, title, outputPath string, chapterCount int) error
	NotifyConversionFailed(ctx context.Context, title string, err error) error
	NotifySubtitleFallback(ctx context.Context, url, reason string) error
	NotifyCacheCleared(ctx context.Context, entries int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		sendCompleted: cfg.Notifications.Completed,
		sendErrors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	sendCompleted bool
	sendErrors    bool
}

func (n *ntfyService) NotifyConversionCompleted(ctx context.Context, title, outputPath string, chapterCount int) error {
	if !n.sendCompleted {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Converted: %s (%d chapters)", title, chapterCount)
	if outputPath = strings.TrimSpace(outputPath); outputPath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputPath)
	}
	data := payload{
		title:   "Clipbook - Complete",
		message: message,
		tags:    []string{"clipbook", "convert", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyConversionFailed(ctx context.Context, title string, err error) error {
	if !n.sendErrors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Conversion failed")
	if title = strings.TrimSpace(title); title != "" {
		builder.WriteString(" for ")
		builder.WriteString(title)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	data := payload{
		title:    "Clipbook - Error",
		message:  builder.String(),
		tags:     []string{"clipbook", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySubtitleFallback(ctx context.Context, url, reason string) error {
	if !n.sendErrors {
		return nil
	}
	url = strings.TrimSpace(url)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "no subtitles available"
	}
	data := payload{
		title:   "Clipbook - Fallback",
		message: fmt.Sprintf("Subtitle pipeline fell back to generic conversion for %s: %s", url, reason),
		tags:    []string{"clipbook", "subtitles", "fallback"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCacheCleared(ctx context.Context, entries int) error {
	data := payload{
		title:   "Clipbook - Cache Cleared",
		message: fmt.Sprintf("Removed %d cached conversions", entries),
		tags:    []string{"clipbook", "cache"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Clipbook - Test",
		message:  "Notification system test",
		tags:     []string{"clipbook", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyConversionCompleted(context.Context, string, string, int) error { return nil }
func (noopService) NotifyConversionFailed(context.Context, string, error) error          { return nil }
func (noopService) NotifySubtitleFallback(context.Context, string, string) error         { return nil }
func (noopService) NotifyCacheCleared(context.Context, int) error                        { return nil }
func (noopService) TestNotification(context.Context) error                               { return nil }
