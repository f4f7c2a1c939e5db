package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"clipbook/internal/services"
)

// DefaultAnthropicURL is the messages endpoint.
const DefaultAnthropicURL = "https://api.anthropic.com/v1/messages"

const anthropicVersion = "2023-06-01"

// Anthropic speaks the native messages API.
type Anthropic struct {
	opts       Options
	httpClient *http.Client
}

// NewAnthropic validates credentials and builds the provider.
func NewAnthropic(opts Options) (*Anthropic, error) {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "anthropic", "missing api key", nil)
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultAnthropicURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Anthropic{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Name identifies the provider in logs.
func (p *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model string `json:"model"`
}

// Rewrite sends one messages request.
func (p *Anthropic) Rewrite(ctx context.Context, req Request) (Result, error) {
	model := firstNonEmpty(req.Model, p.opts.Model)
	payload := anthropicRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: req.Text}},
		System:      firstNonEmpty(req.SystemPrompt, p.opts.SystemPrompt),
		MaxTokens:   pickMaxTokens(req.MaxTokens, p.opts.MaxTokens),
		Temperature: pickTemperature(req.Temperature, p.opts.Temperature),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "llm", "anthropic", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "llm", "anthropic", "build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.opts.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "llm", "anthropic", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp.Body)
		return Result{}, services.Wrap(classifyStatus(resp.StatusCode, detail), "llm", "anthropic",
			httpStatusDetail(resp.StatusCode, detail), nil)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "llm", "anthropic", "decode response", err)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if parsed.Model == "" {
		parsed.Model = model
	}
	return Result{Output: strings.TrimSpace(sb.String()), Model: parsed.Model}, nil
}
