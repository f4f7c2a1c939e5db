package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"clipbook/internal/logging"
	"clipbook/internal/services"
)

// Request carries the text to rewrite and per-call parameters.
type Request struct {
	Text         string
	SystemPrompt string
	Model        string
	MaxTokens    int
	Temperature  float64
}

// Result is the model output.
type Result struct {
	Output string
	Model  string
}

// Provider sends one rewrite request to a hosted model endpoint.
type Provider interface {
	Name() string
	Rewrite(ctx context.Context, req Request) (Result, error)
}

// Options configures a provider.
type Options struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	Timeout      time.Duration
	// Referer and Title are forwarded as attribution headers where the
	// provider supports them.
	Referer string
	Title   string
}

// NewProvider builds the named provider.
func NewProvider(name string, opts Options) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openrouter":
		return NewOpenRouter(opts)
	case "anthropic":
		return NewAnthropic(opts)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "llm", "new provider", "unknown provider "+name, nil)
	}
}

const (
	retryBaseDelay = 500 * time.Millisecond
	retryMaxDelay  = 10 * time.Second
)

// Rewriter wraps a provider with retry classification and backoff.
type Rewriter struct {
	provider Provider
	retries  int
	logger   *slog.Logger

	sleep  func(time.Duration)
	jitter func() float64
}

// NewRewriter builds a Rewriter allowing up to retries additional attempts
// after the first.
func NewRewriter(provider Provider, retries int, logger *slog.Logger) *Rewriter {
	if retries < 0 {
		retries = 0
	}
	return &Rewriter{
		provider: provider,
		retries:  retries,
		logger:   logging.NewComponentLogger(logger, "llm"),
		sleep:    time.Sleep,
		jitter:   rand.Float64,
	}
}

// Rewrite calls the provider, retrying recoverable failures with doubling
// backoff. Configuration and validation failures abort on the first attempt.
func (r *Rewriter) Rewrite(ctx context.Context, req Request) (Result, error) {
	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		result, err := r.provider.Rewrite(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if services.IsFatal(err) || !services.IsRecoverable(err) {
			return Result{}, err
		}
		if attempt == r.retries {
			break
		}
		delay := backoffDelay(attempt, r.jitter())
		r.logger.Warn("provider call failed, retrying",
			logging.String(logging.FieldProvider, r.provider.Name()),
			logging.Int(logging.FieldAttempt, attempt+1),
			logging.Duration("backoff", delay),
			logging.Error(err))
		r.sleep(delay)
		if ctx.Err() != nil {
			return Result{}, services.Wrap(services.ErrTimeout, "llm", "rewrite", "context cancelled during backoff", ctx.Err())
		}
	}
	return Result{}, services.Wrap(services.ErrRetriesExhausted, "llm", "rewrite",
		fmt.Sprintf("gave up after %d attempts", r.retries+1), lastErr)
}

// backoffDelay doubles from the base and caps at the maximum, plus up to 25%
// jitter.
func backoffDelay(attempt int, jitter float64) time.Duration {
	delay := retryBaseDelay << uint(attempt)
	if delay > retryMaxDelay || delay <= 0 {
		delay = retryMaxDelay
	}
	return delay + time.Duration(jitter*0.25*float64(delay))
}

// classifyStatus maps an HTTP status and error detail onto the sentinel
// error taxonomy.
func classifyStatus(status int, detail string) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.ErrConfiguration
	case status == http.StatusNotFound, looksLikeMissingModel(detail):
		return services.ErrNotFound
	case status == http.StatusRequestTimeout,
		status == http.StatusConflict,
		status == http.StatusTooEarly,
		status == http.StatusTooManyRequests,
		status >= 500:
		return services.ErrTransient
	default:
		return services.ErrValidation
	}
}

func looksLikeMissingModel(detail string) bool {
	detail = strings.ToLower(detail)
	return strings.Contains(detail, "model") &&
		strings.Contains(detail, "not") && strings.Contains(detail, "found")
}

