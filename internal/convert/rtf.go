package convert

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Destination groups whose content is formatting data, not document text.
var rtfSkippedGroups = map[string]struct{}{
	"fonttbl":    {},
	"colortbl":   {},
	"stylesheet": {},
	"info":       {},
	"pict":       {},
	"header":     {},
	"footer":     {},
	"themedata":  {},
	"listtable":  {},
}

var errNotRTF = errors.New("missing rtf signature")

// stripRTF reduces an RTF payload to its plain text. It understands the
// subset needed for clipboard content: group nesting, control words,
// hex and unicode escapes, and paragraph/line/tab controls.
func stripRTF(content string) (string, error) {
	if !strings.HasPrefix(strings.TrimSpace(content), `{\rtf`) {
		return "", errNotRTF
	}

	var out strings.Builder
	skipDepth := 0 // depth at which a skipped destination group started
	depth := 0
	// Pending low surrogate count from \uN: RTF follows a unicode escape
	// with that many fallback bytes to ignore.
	skipFallback := 0

	i := 0
	for i < len(content) {
		ch := content[i]
		switch ch {
		case '{':
			depth++
			i++
		case '}':
			if skipDepth > 0 && depth == skipDepth {
				skipDepth = 0
			}
			depth--
			i++
		case '\\':
			word, param, hasParam, next := readControl(content, i+1)
			i = next
			if skipDepth > 0 {
				continue
			}
			switch word {
			case "'":
				// Hex escape: two hex digits follow.
				if i+2 <= len(content) {
					if b, err := strconv.ParseUint(content[i:i+2], 16, 8); err == nil {
						if skipFallback > 0 {
							skipFallback--
						} else {
							out.WriteByte(byte(b))
						}
					}
					i += 2
				}
			case "u":
				if hasParam {
					code := param
					if code < 0 {
						code += 65536
					}
					out.WriteString(decodeRTFUnicode(code))
					// One fallback character follows by default.
					skipFallback = 1
				}
			case "par", "line":
				out.WriteByte('\n')
			case "sect", "page":
				out.WriteString("\n\n")
			case "tab":
				out.WriteByte('\t')
			case "emdash":
				out.WriteString("--")
			case "endash":
				out.WriteByte('-')
			case "lquote", "rquote":
				out.WriteByte('\'')
			case "ldblquote", "rdblquote":
				out.WriteByte('"')
			case "\\", "{", "}":
				out.WriteString(word)
			case "*":
				// Optional destination: skip the enclosing group.
				if skipDepth == 0 {
					skipDepth = depth
				}
			default:
				if _, skip := rtfSkippedGroups[word]; skip && skipDepth == 0 {
					skipDepth = depth
				}
			}
		case '\r', '\n':
			i++
		default:
			if skipDepth == 0 {
				if skipFallback > 0 {
					skipFallback--
				} else {
					out.WriteByte(ch)
				}
			}
			i++
		}
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", errors.New("no text content")
	}
	return text, nil
}

// readControl parses the control word or symbol starting at pos (just past
// the backslash). It returns the word, its numeric parameter if present, and
// the index of the first byte after the control.
func readControl(content string, pos int) (string, int, bool, int) {
	if pos >= len(content) {
		return "", 0, false, pos
	}

	ch := content[pos]
	if !isASCIILetter(ch) {
		// Control symbol: single non-letter character.
		return string(ch), 0, false, pos + 1
	}

	start := pos
	for pos < len(content) && isASCIILetter(content[pos]) {
		pos++
	}
	word := content[start:pos]

	numStart := pos
	if pos < len(content) && (content[pos] == '-' || isDigit(content[pos])) {
		pos++
		for pos < len(content) && isDigit(content[pos]) {
			pos++
		}
	}
	param := 0
	hasParam := numStart != pos
	if hasParam {
		param, _ = strconv.Atoi(content[numStart:pos])
	}

	// A single space after the control word is part of the control.
	if pos < len(content) && content[pos] == ' ' {
		pos++
	}
	return word, param, hasParam, pos
}

func decodeRTFUnicode(code int) string {
	r := rune(code)
	if utf16.IsSurrogate(r) {
		return ""
	}
	return string(r)
}

func isASCIILetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
