package detect_test

import (
	"strings"
	"testing"

	"clipbook/internal/detect"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    detect.Kind
	}{
		{"empty", "", detect.KindPlain},
		{"blank", "   \n\t  ", detect.KindPlain},
		{"url", "https://example.com", detect.KindURL},
		{"url with path", "http://example.com/articles/42?ref=home", detect.KindURL},
		{"url scheme only", "https://", detect.KindPlain},
		{"multiline url is not a url", "https://example.com\nsecond line", detect.KindPlain},
		{"ftp is not recognized", "ftp://example.com/file", detect.KindPlain},
		{"rtf signature", `{\rtf1\ansi Hello}`, detect.KindRTF},
		{"markdown two patterns", "# H\n\n**b**", detect.KindMarkdown},
		{"markdown one pattern stays plain", "just a line with `code` inline", detect.KindPlain},
		{"full html", "<html><body><h1>x</h1><p>y</p></body></html>", detect.KindHTML},
		{"structural tag alone", "before <div class=\"c\"> after", detect.KindHTML},
		{"three generic tags", "<em>a</em> and <code>b</code>", detect.KindHTML},
		{"plain prose", "Nothing special here.\n\nJust text.", detect.KindPlain},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detect.Classify(tc.content); got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.content, got, tc.want)
			}
		})
	}
}

func TestHTMLWinsOverMarkdownOnMixedContent(t *testing.T) {
	// Markdown with enough literal tags must resolve as HTML, because the
	// priority order is part of the contract.
	content := "# Title\n\nSome **bold** text with <b>x</b> and <i>y</i> inline."
	if got := detect.Classify(content); got != detect.KindHTML {
		t.Fatalf("expected KindHTML for mixed content, got %q", got)
	}
}

func TestURLWinsOverEverything(t *testing.T) {
	if got := detect.Classify("  https://example.com/doc.md  "); got != detect.KindURL {
		t.Fatalf("expected KindURL, got %q", got)
	}
}

func TestThresholdsAreConfigurable(t *testing.T) {
	content := "line with <b>one</b> tag pair"
	strict := detect.Options{HTMLTagThreshold: 2, MarkdownPatternThreshold: 2}
	if got := detect.ClassifyWithOptions(content, strict); got != detect.KindHTML {
		t.Fatalf("expected KindHTML with lowered tag threshold, got %q", got)
	}

	md := "Some `code` words"
	lax := detect.Options{MarkdownPatternThreshold: 1}
	if got := detect.ClassifyWithOptions(md, lax); got != detect.KindMarkdown {
		t.Fatalf("expected KindMarkdown with lowered pattern threshold, got %q", got)
	}
}

func TestClassifyIsTotal(t *testing.T) {
	// Garbage input must never panic and must land on some Kind.
	inputs := []string{
		strings.Repeat("<", 100),
		"\x00\x01\x02",
		strings.Repeat("#", 10_000),
		"{\\rtf",
	}
	for _, input := range inputs {
		kind := detect.Classify(input)
		switch kind {
		case detect.KindURL, detect.KindMarkdown, detect.KindHTML, detect.KindRTF, detect.KindPlain:
		default:
			t.Fatalf("Classify returned unknown kind %q", kind)
		}
	}
}

func TestIsVideoURL(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"https://www.youtube.com/watch?v=abc123", true},
		{"https://youtu.be/abc123", true},
		{"https://music.youtube.com/watch?v=abc123", true},
		{"https://example.com/watch?v=abc123", false},
		{"https://notyoutube.com/watch", false},
		{"not a url", false},
		{"https://youtube.com/a\nhttps://youtube.com/b", false},
	}
	for _, tc := range cases {
		if got := detect.IsVideoURL(tc.input); got != tc.want {
			t.Fatalf("IsVideoURL(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
