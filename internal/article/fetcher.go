package article

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"clipbook/internal/services"
)

// Article is the extracted content of a remote page.
type Article struct {
	Title     string
	Authors   []string
	Published string
	Text      string
}

// Fetcher retrieves and extracts remote articles. The URL converter depends
// on this interface so tests can substitute a stub.
type Fetcher interface {
	// Extract fetches url and pulls out article content.
	Extract(ctx context.Context, url string) (Article, error)
	// FetchText fetches url and returns the page title plus tag-stripped
	// body text. Used as the degraded path when Extract fails.
	FetchText(ctx context.Context, url string) (string, string, error)
}

const (
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "clipbook/1.0"
	maxBodyBytes     = 8 << 20
)

// Client is the HTTP-backed Fetcher.
type Client struct {
	httpClient *http.Client
	sanitizer  *bluemonday.Policy
	userAgent  string
}

// NewClient returns a Client with the given per-request timeout. A zero
// timeout selects the default.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		sanitizer:  bluemonday.UGCPolicy(),
		userAgent:  defaultUserAgent,
	}
}

// Extract implements Fetcher.
func (c *Client) Extract(ctx context.Context, url string) (Article, error) {
	raw, sanitized, err := c.fetchDocuments(ctx, url)
	if err != nil {
		return Article{}, err
	}

	// Metadata comes from the raw head because sanitization strips meta
	// elements; body text comes from the sanitized tree.
	art := Article{
		Title:     extractTitle(raw),
		Authors:   extractAuthors(raw),
		Published: extractPublished(raw),
		Text:      extractBodyText(sanitized),
	}
	if strings.TrimSpace(art.Text) == "" {
		return Article{}, services.Wrap(services.ErrValidation, "article", "extract", "no readable body content", nil)
	}
	return art, nil
}

// FetchText implements Fetcher.
func (c *Client) FetchText(ctx context.Context, url string) (string, string, error) {
	raw, sanitized, err := c.fetchDocuments(ctx, url)
	if err != nil {
		return "", "", err
	}
	title := strings.TrimSpace(raw.Find("title").First().Text())
	sanitized.Find("nav, footer, header").Remove()
	text := collapseLines(sanitized.Find("body").Text())
	if text == "" {
		text = collapseLines(sanitized.Text())
	}
	return title, text, nil
}

func (c *Client) fetchDocuments(ctx context.Context, url string) (*goquery.Document, *goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "article", "build request", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "article", "fetch", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, nil, services.Wrap(services.ErrTransient, "article", "fetch",
			fmt.Sprintf("%s returned status %d", url, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransient, "article", "read body", url, err)
	}

	raw, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "article", "parse", url, err)
	}
	sanitized, err := goquery.NewDocumentFromReader(strings.NewReader(string(c.sanitizer.SanitizeBytes(body))))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "article", "parse sanitized", url, err)
	}
	return raw, sanitized, nil
}

func extractTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

func extractAuthors(doc *goquery.Document) []string {
	var authors []string
	seen := map[string]struct{}{}
	add := func(value string) {
		for _, part := range strings.Split(value, ",") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			authors = append(authors, name)
		}
	}
	doc.Find(`meta[name="author"], meta[property="article:author"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok {
			add(content)
		}
	})
	return authors
}

func extractPublished(doc *goquery.Document) string {
	for _, selector := range []string{
		`meta[property="article:published_time"]`,
		`meta[name="date"]`,
		`meta[itemprop="datePublished"]`,
	} {
		if content, ok := doc.Find(selector).Attr("content"); ok && strings.TrimSpace(content) != "" {
			return strings.TrimSpace(content)
		}
	}
	if datetime, ok := doc.Find("time[datetime]").Attr("datetime"); ok {
		return strings.TrimSpace(datetime)
	}
	return ""
}

func extractBodyText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, footer, aside").Remove()

	for _, selector := range []string{"article", "main", `div[class*="article"]`, `div[class*="content"]`} {
		container := doc.Find(selector).First()
		if container.Length() == 0 {
			continue
		}
		if text := paragraphText(container); text != "" {
			return text
		}
	}
	return paragraphText(doc.Find("body"))
}

func paragraphText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n\n")
}

func collapseLines(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		trimmed := strings.Join(strings.Fields(line), " ")
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return strings.Join(kept, "\n")
}
