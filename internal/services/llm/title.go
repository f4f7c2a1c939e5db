package llm

import "strings"

const maxTitleRunes = 120

// TitleFromOutput derives a document title from model output: the first
// non-blank line with Markdown heading and list markers stripped, capped at
// 120 runes. Empty output yields "Untitled".
func TitleFromOutput(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.Trim(line, "# -* \t\r")
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > maxTitleRunes {
			line = string(runes[:maxTitleRunes])
		}
		return line
	}
	return "Untitled"
}
