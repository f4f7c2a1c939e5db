package convert

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"

	"clipbook/internal/article"
	"clipbook/internal/detect"
	"clipbook/internal/htmldoc"
	"clipbook/internal/logging"
	"clipbook/internal/styles"
)

// Metadata describes how a conversion went and what was learned about the
// content along the way.
type Metadata struct {
	Kind      detect.Kind `json:"kind"`
	Title     string      `json:"title,omitempty"`
	Authors   []string    `json:"authors,omitempty"`
	Published string      `json:"published,omitempty"`
	Source    string      `json:"source,omitempty"`
	Degraded  bool        `json:"degraded,omitempty"`
	Note      string      `json:"note,omitempty"`
}

// Result is the outcome of a conversion. Markup is always a complete styled
// HTML document, even on degraded paths.
type Result struct {
	Markup   string   `json:"markup"`
	Metadata Metadata `json:"metadata"`
}

// Converter turns classified content into styled markup.
type Converter struct {
	fetcher  article.Fetcher
	styles   *styles.Provider
	markdown goldmark.Markdown
	logger   *slog.Logger
}

// New constructs a Converter. fetcher may be nil, in which case URL content
// degrades to an explanatory document.
func New(fetcher article.Fetcher, styleProvider *styles.Provider, logger *slog.Logger) *Converter {
	if styleProvider == nil {
		styleProvider = styles.NewProvider("")
	}
	return &Converter{
		fetcher: fetcher,
		styles:  styleProvider,
		markdown: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
				extension.Typographer,
			),
			goldmark.WithRendererOptions(
				ghtml.WithXHTML(),
			),
		),
		logger: logging.NewComponentLogger(logger, "convert"),
	}
}

// Convert produces styled markup for content of the given kind. It never
// fails: every branch degrades to best-effort markup and records the reason
// in metadata.
func (c *Converter) Convert(ctx context.Context, content string, kind detect.Kind, styleName string) Result {
	var fragment string
	var meta Metadata

	switch kind {
	case detect.KindURL:
		fragment, meta = c.convertURL(ctx, strings.TrimSpace(content))
	case detect.KindMarkdown:
		fragment, meta = c.convertMarkdown(content)
	case detect.KindHTML:
		fragment, meta = c.convertHTML(content)
	case detect.KindRTF:
		fragment, meta = c.convertRTF(content)
	default:
		fragment, meta = c.convertPlain(content)
	}

	if meta.Degraded {
		logging.WarnWithContext(ctx, c.logger, "conversion degraded",
			logging.String(logging.FieldKind, string(meta.Kind)),
			logging.String("note", meta.Note))
	}

	return Result{
		Markup:   c.applyStyling(fragment, styleName),
		Metadata: meta,
	}
}

func (c *Converter) convertURL(ctx context.Context, url string) (string, Metadata) {
	meta := Metadata{Kind: detect.KindURL, Source: url}

	if c.fetcher == nil {
		meta.Degraded = true
		meta.Note = "no fetcher configured"
		return errorDocument(url, "article fetching is not available"), meta
	}

	art, err := c.fetcher.Extract(ctx, url)
	if err == nil {
		meta.Title = art.Title
		meta.Authors = art.Authors
		meta.Published = art.Published
		return articleDocument(url, art), meta
	}
	c.logger.Debug("article extraction failed, trying generic fetch",
		logging.String("url", url), logging.Error(err))

	title, text, fallbackErr := c.fetcher.FetchText(ctx, url)
	if fallbackErr == nil && strings.TrimSpace(text) != "" {
		if title == "" {
			title = "Web Page"
		}
		meta.Title = title
		meta.Degraded = true
		meta.Note = fmt.Sprintf("article extraction failed: %v", err)
		var sb strings.Builder
		fmt.Fprintf(&sb, "<h1>%s</h1>\n", htmldoc.EscapeText(title))
		fmt.Fprintf(&sb, `<p class="source">Source: <a href="%s">%s</a></p>`+"\n",
			htmldoc.EscapeText(url), htmldoc.EscapeText(url))
		sb.WriteString(`<div class="content">` + "\n")
		sb.WriteString(textToParagraphs(text))
		sb.WriteString("\n</div>")
		return sb.String(), meta
	}
	if fallbackErr == nil {
		fallbackErr = err
	}

	meta.Degraded = true
	meta.Note = fmt.Sprintf("fetch failed: %v", fallbackErr)
	return errorDocument(url, fallbackErr.Error()), meta
}

func articleDocument(url string, art article.Article) string {
	title := art.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled Article"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", htmldoc.EscapeText(title))
	sb.WriteString(`<div class="article-meta">` + "\n")
	fmt.Fprintf(&sb, `<p>Source: <a href="%s">%s</a></p>`+"\n",
		htmldoc.EscapeText(url), htmldoc.EscapeText(url))
	if len(art.Authors) > 0 {
		fmt.Fprintf(&sb, "<p>Authors: %s</p>\n", htmldoc.EscapeText(strings.Join(art.Authors, ", ")))
	}
	if art.Published != "" {
		fmt.Fprintf(&sb, "<p>Published: %s</p>\n", htmldoc.EscapeText(art.Published))
	}
	sb.WriteString("</div>\n")
	sb.WriteString(`<div class="article-content">` + "\n")
	sb.WriteString(textToParagraphs(art.Text))
	sb.WriteString("\n</div>")
	return sb.String()
}

func errorDocument(url, cause string) string {
	var sb strings.Builder
	sb.WriteString("<h1>Error Loading URL</h1>\n")
	fmt.Fprintf(&sb, `<p>Could not load content from: <a href="%s">%s</a></p>`+"\n",
		htmldoc.EscapeText(url), htmldoc.EscapeText(url))
	fmt.Fprintf(&sb, "<p>Error: %s</p>", htmldoc.EscapeText(cause))
	return sb.String()
}

func (c *Converter) convertMarkdown(content string) (string, Metadata) {
	meta := Metadata{Kind: detect.KindMarkdown}

	var buf bytes.Buffer
	if err := c.markdown.Convert([]byte(content), &buf); err != nil {
		meta.Degraded = true
		meta.Note = fmt.Sprintf("markdown render failed: %v", err)
		return textToParagraphs(content), meta
	}
	rendered := buf.String()

	if doc, err := htmldoc.Parse(rendered); err == nil {
		if heading := htmldoc.FirstHeading(doc); heading != nil && htmldoc.HeadingLevel(heading) == 1 {
			meta.Title = strings.TrimSpace(htmldoc.CollectText(heading))
		}
	}
	return rendered, meta
}

func (c *Converter) convertHTML(content string) (string, Metadata) {
	meta := Metadata{Kind: detect.KindHTML}

	doc, err := htmldoc.Parse(content)
	if err != nil {
		meta.Degraded = true
		meta.Note = fmt.Sprintf("html parse failed: %v", err)
		return textToParagraphs(content), meta
	}

	if title := htmldoc.Title(doc); title != "" {
		meta.Title = title
	}
	htmldoc.Scrub(doc)

	// Full documents stay whole so styling injects into the existing head;
	// fragments reduce to their body content for re-wrapping.
	if htmldoc.IsFullDocument(content) {
		return htmldoc.Render(doc), meta
	}
	if body := htmldoc.Body(doc); body != nil {
		return htmldoc.RenderChildren(body), meta
	}
	return htmldoc.Render(doc), meta
}

func (c *Converter) convertRTF(content string) (string, Metadata) {
	meta := Metadata{Kind: detect.KindRTF}

	plain, err := stripRTF(content)
	if err != nil || strings.TrimSpace(plain) == "" {
		meta.Degraded = true
		if err != nil {
			meta.Note = fmt.Sprintf("rtf strip failed: %v", err)
		} else {
			meta.Note = "rtf strip produced no text"
		}
		return textToParagraphs(content), meta
	}
	return textToParagraphs(plain), meta
}

func (c *Converter) convertPlain(content string) (string, Metadata) {
	return textToParagraphs(content), Metadata{Kind: detect.KindPlain}
}

// textToParagraphs escapes raw text and splits it on blank lines into
// paragraphs; single newlines inside a paragraph become line breaks.
func textToParagraphs(text string) string {
	escaped := htmldoc.EscapeText(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")

	var paragraphs []string
	for _, block := range strings.Split(escaped, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		block = strings.ReplaceAll(block, "\n", "<br/>")
		paragraphs = append(paragraphs, "<p>"+block+"</p>")
	}
	return strings.Join(paragraphs, "\n")
}

// applyStyling wraps fragment markup in a complete document carrying the
// named CSS template, or injects a style element into documents that are
// already complete.
func (c *Converter) applyStyling(markup, styleName string) string {
	css := c.styles.Template(styleName)

	if !htmldoc.IsFullDocument(markup) {
		var sb strings.Builder
		sb.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\"/>\n<style>\n")
		sb.WriteString(css)
		sb.WriteString("\n</style>\n</head>\n<body>\n")
		sb.WriteString(markup)
		sb.WriteString("\n</body>\n</html>")
		return sb.String()
	}

	doc, err := htmldoc.Parse(markup)
	if err != nil {
		return markup
	}
	head := htmldoc.Head(doc)
	if head == nil {
		return markup
	}
	head.AppendChild(htmldoc.NewStyleNode(css))
	return htmldoc.Render(doc)
}
