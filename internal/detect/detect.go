package detect

import (
	"net/url"
	"regexp"
	"strings"
)

// Kind identifies a supported source content format.
type Kind string

const (
	KindURL      Kind = "url"
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
	KindRTF      Kind = "rtf"
	KindPlain    Kind = "plain"
)

// Options tunes the classifier heuristics. Zero values select the defaults.
type Options struct {
	// HTMLTagThreshold is the minimum number of tag-like substrings before
	// content with no structural HTML tag still classifies as HTML.
	HTMLTagThreshold int
	// MarkdownPatternThreshold is the minimum number of distinct Markdown
	// constructs before content classifies as Markdown.
	MarkdownPatternThreshold int
}

const (
	defaultHTMLTagThreshold         = 3
	defaultMarkdownPatternThreshold = 2
)

func (o Options) withDefaults() Options {
	if o.HTMLTagThreshold <= 0 {
		o.HTMLTagThreshold = defaultHTMLTagThreshold
	}
	if o.MarkdownPatternThreshold <= 0 {
		o.MarkdownPatternThreshold = defaultMarkdownPatternThreshold
	}
	return o
}

var (
	structuralHTML = []*regexp.Regexp{
		regexp.MustCompile(`(?i)<html[^>]*>`),
		regexp.MustCompile(`(?i)<body[^>]*>`),
		regexp.MustCompile(`(?i)<div[^>]*>`),
		regexp.MustCompile(`(?i)<p[^>]*>`),
		regexp.MustCompile(`(?i)<span[^>]*>`),
		regexp.MustCompile(`(?i)<h[1-6][^>]*>`),
	}
	anyTag = regexp.MustCompile(`<[^>]+>`)

	markdownPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?m)^#{1,6}\s+`),            // headings
		regexp.MustCompile(`\*\*[^*]+\*\*`),             // bold
		regexp.MustCompile(`__[^_]+__`),                 // bold, underscore form
		regexp.MustCompile(`\*[^*]+\*`),                 // italic
		regexp.MustCompile(`_[^_]+_`),                   // italic, underscore form
		regexp.MustCompile(`(?m)^\s*[-*+]\s+`),          // unordered lists
		regexp.MustCompile(`(?m)^\s*\d+\.\s+`),          // ordered lists
		regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`),       // links
		regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`),      // images
		regexp.MustCompile("(?m)^```"),                  // fenced code
		regexp.MustCompile("`[^`]+`"),                   // inline code
		regexp.MustCompile(`(?m)^>\s+`),                 // blockquotes
	}
)

// Classify returns the Kind of content using default options.
func Classify(content string) Kind {
	return ClassifyWithOptions(content, Options{})
}

// ClassifyWithOptions returns the Kind of content. Checks run in priority
// order so mixed signals resolve deterministically: URL, then RTF, then
// HTML, then Markdown, then plain text.
func ClassifyWithOptions(content string, opts Options) Kind {
	opts = opts.withDefaults()
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return KindPlain
	}
	if isURL(trimmed) {
		return KindURL
	}
	if strings.HasPrefix(trimmed, `{\rtf`) {
		return KindRTF
	}
	if isHTML(trimmed, opts.HTMLTagThreshold) {
		return KindHTML
	}
	if isMarkdown(trimmed, opts.MarkdownPatternThreshold) {
		return KindMarkdown
	}
	return KindPlain
}

func isURL(text string) bool {
	if strings.ContainsAny(text, "\n\r") {
		return false
	}
	parsed, err := url.Parse(text)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

func isHTML(text string, tagThreshold int) bool {
	for _, re := range structuralHTML {
		if re.MatchString(text) {
			return true
		}
	}
	return len(anyTag.FindAllString(text, tagThreshold)) >= tagThreshold
}

func isMarkdown(text string, patternThreshold int) bool {
	score := 0
	for _, re := range markdownPatterns {
		if re.MatchString(text) {
			score++
			if score >= patternThreshold {
				return true
			}
		}
	}
	return false
}

var videoHosts = []string{"youtube.com", "youtu.be"}

// IsVideoURL reports whether text is a single-line URL pointing at a known
// video host. Hosts match on suffix so subdomains (www, m, music) qualify.
func IsVideoURL(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !isURL(trimmed) {
		return false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, candidate := range videoHosts {
		if host == candidate || strings.HasSuffix(host, "."+candidate) {
			return true
		}
	}
	return false
}
