package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"clipbook/internal/services"
)

// DefaultOpenRouterURL is the chat-completions endpoint.
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter speaks the OpenAI-compatible chat-completions API.
type OpenRouter struct {
	opts       Options
	httpClient *http.Client
}

// NewOpenRouter validates credentials and builds the provider.
func NewOpenRouter(opts Options) (*OpenRouter, error) {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "llm", "openrouter", "missing api key", nil)
	}
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultOpenRouterURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &OpenRouter{
		opts:       opts,
		httpClient: &http.Client{Timeout: opts.Timeout},
	}, nil
}

// Name identifies the provider in logs.
func (p *OpenRouter) Name() string { return "openrouter" }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
}

// Rewrite sends one chat-completions request.
func (p *OpenRouter) Rewrite(ctx context.Context, req Request) (Result, error) {
	model := firstNonEmpty(req.Model, p.opts.Model)
	payload := chatRequest{
		Model:       model,
		Temperature: pickTemperature(req.Temperature, p.opts.Temperature),
		MaxTokens:   pickMaxTokens(req.MaxTokens, p.opts.MaxTokens),
	}
	if prompt := firstNonEmpty(req.SystemPrompt, p.opts.SystemPrompt); prompt != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: prompt})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.Text})

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "llm", "openrouter", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return Result{}, services.Wrap(services.ErrValidation, "llm", "openrouter", "build request", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if p.opts.Referer != "" {
		httpReq.Header.Set("HTTP-Referer", p.opts.Referer)
	}
	if p.opts.Title != "" {
		httpReq.Header.Set("X-Title", p.opts.Title)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "llm", "openrouter", "execute request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := readErrorDetail(resp.Body)
		return Result{}, services.Wrap(classifyStatus(resp.StatusCode, detail), "llm", "openrouter",
			httpStatusDetail(resp.StatusCode, detail), nil)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "llm", "openrouter", "decode response", err)
	}
	if len(parsed.Choices) == 0 {
		return Result{}, services.Wrap(services.ErrTransient, "llm", "openrouter", "response carried no choices", nil)
	}
	if parsed.Model == "" {
		parsed.Model = model
	}
	return Result{Output: strings.TrimSpace(parsed.Choices[0].Message.Content), Model: parsed.Model}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func pickTemperature(requested, configured float64) float64 {
	if requested > 0 {
		return requested
	}
	return configured
}

func pickMaxTokens(requested, configured int) int {
	if requested > 0 {
		return requested
	}
	return configured
}

// readErrorDetail pulls a human-readable message out of an error body.
func readErrorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 16<<10))
	if err != nil {
		return ""
	}
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(data, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if len(envelope.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var plain string
			if json.Unmarshal(envelope.Error, &plain) == nil {
				return plain
			}
		}
	}
	return strings.TrimSpace(string(data))
}

func httpStatusDetail(status int, detail string) string {
	if detail == "" {
		return http.StatusText(status)
	}
	return http.StatusText(status) + ": " + detail
}
