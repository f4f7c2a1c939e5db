package subtitles

import (
	"os"
	"regexp"
	"strings"
	"unicode"
)

var (
	annotationPattern = regexp.MustCompile(`(?i)\[(?:Music|Applause|Laughter|Silence)\]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// parseTrackFile flattens a subtitle file into plain text, picking the
// format from the extension or header.
func parseTrackFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := string(data)
	if strings.HasSuffix(strings.ToLower(path), ".vtt") ||
		strings.HasPrefix(strings.ToUpper(strings.TrimSpace(content)), "WEBVTT") {
		return FlattenVTT(content), nil
	}
	return FlattenSRT(content), nil
}

// FlattenVTT extracts cue text from a WebVTT payload, dropping the header,
// timestamps, NOTE/STYLE/REGION blocks, and sound annotations.
func FlattenVTT(content string) string {
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.Trim(raw, "\uFEFF\r ")
		if line == "" {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), "WEBVTT") {
			continue
		}
		if isTimestampLine(line) {
			continue
		}
		if strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") || strings.HasPrefix(line, "REGION") {
			continue
		}
		lines = append(lines, line)
	}
	return collapse(strings.Join(lines, "\n"))
}

// FlattenSRT extracts cue text from an SRT payload, dropping cue indices and
// timestamp lines.
func FlattenSRT(content string) string {
	var lines []string
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if isDigits(line) {
			continue
		}
		if isTimestampLine(line) {
			continue
		}
		lines = append(lines, line)
	}
	return collapse(strings.Join(lines, " "))
}

func isTimestampLine(line string) bool {
	return strings.Contains(line, "-->") && strings.ContainsFunc(line, unicode.IsDigit)
}

func isDigits(line string) bool {
	for _, r := range line {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return line != ""
}

func collapse(text string) string {
	text = annotationPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
