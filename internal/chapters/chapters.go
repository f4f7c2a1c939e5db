package chapters

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"clipbook/internal/htmldoc"
)

// Chapter is one ordered slice of a converted document.
type Chapter struct {
	Ordinal int    `json:"ordinal"`
	Title   string `json:"title"`
	Markup  string `json:"markup"`
}

// DefaultWordsPerChapter applies when the caller passes a non-positive
// threshold.
const DefaultWordsPerChapter = 3000

// MinWordsPerChapter is the floor positive thresholds clamp to; anything
// lower would shred documents into per-sentence chapters.
const MinWordsPerChapter = 100

// ClampWordsPerChapter maps a requested threshold onto the accepted range:
// non-positive values take the default, positive values clamp to the floor.
func ClampWordsPerChapter(words int) int {
	if words <= 0 {
		return DefaultWordsPerChapter
	}
	if words < MinWordsPerChapter {
		return MinWordsPerChapter
	}
	return words
}

// Segment splits markup into chapters. Documents with more than one
// top-level heading (h1/h2) split on those headings; everything else splits
// by cumulative word count over block elements. The final partial chapter is
// always emitted, so ordinals are 1-based and contiguous.
func Segment(markup, title string, wordsPerChapter int) []Chapter {
	wordsPerChapter = ClampWordsPerChapter(wordsPerChapter)

	doc, err := htmldoc.Parse(markup)
	if err != nil {
		return []Chapter{fallbackChapter(markup, title)}
	}
	body := htmldoc.Body(doc)
	if body == nil {
		return []Chapter{fallbackChapter(markup, title)}
	}

	blocks := topLevelNodes(body)
	headingCount := 0
	for _, node := range blocks {
		if level := htmldoc.HeadingLevel(node); level == 1 || level == 2 {
			headingCount++
		}
	}

	var result []Chapter
	if headingCount > 1 {
		result = splitByHeadings(blocks)
	} else {
		result = splitByWordCount(body, blocks, title, wordsPerChapter)
	}
	if len(result) == 0 {
		result = []Chapter{fallbackChapter(htmldoc.RenderChildren(body), title)}
	}
	return result
}

func fallbackChapter(markup, title string) Chapter {
	if strings.TrimSpace(title) == "" {
		title = "Chapter 1"
	}
	return Chapter{Ordinal: 1, Title: title, Markup: markup}
}

// topLevelNodes returns body's element children plus wrapped loose text.
func topLevelNodes(body *html.Node) []*html.Node {
	var nodes []*html.Node
	for child := body.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.ElementNode:
			nodes = append(nodes, child)
		case html.TextNode:
			if strings.TrimSpace(child.Data) != "" {
				nodes = append(nodes, child)
			}
		}
	}
	return nodes
}

func splitByHeadings(blocks []*html.Node) []Chapter {
	var result []Chapter
	var current *Chapter
	titled := false
	var buf strings.Builder

	flush := func() {
		if current != nil {
			current.Markup = buf.String()
			result = append(result, *current)
		}
		current = nil
		titled = false
		buf.Reset()
	}

	for _, node := range blocks {
		if level := htmldoc.HeadingLevel(node); level == 1 || level == 2 {
			if titled {
				flush()
			}
			title := strings.TrimSpace(htmldoc.CollectText(node))
			if current == nil {
				current = &Chapter{Ordinal: len(result) + 1}
			}
			// Content before the first heading stays in the first chapter.
			if title == "" {
				title = fmt.Sprintf("Chapter %d", current.Ordinal)
			}
			current.Title = title
			titled = true
		} else if current == nil {
			current = &Chapter{Ordinal: len(result) + 1}
		}
		buf.WriteString(htmldoc.Render(node))
		buf.WriteByte('\n')
	}
	flush()

	for i := range result {
		if result[i].Title == "" {
			result[i].Title = fmt.Sprintf("Chapter %d", result[i].Ordinal)
		}
	}
	return result
}

func splitByWordCount(body *html.Node, blocks []*html.Node, title string, wordsPerChapter int) []Chapter {
	total := htmldoc.NodeWordCount(body)
	if total <= wordsPerChapter {
		chapterTitle := strings.TrimSpace(title)
		if chapterTitle == "" {
			chapterTitle = "Chapter 1"
		}
		return []Chapter{{Ordinal: 1, Title: chapterTitle, Markup: htmldoc.RenderChildren(body)}}
	}

	var result []Chapter
	var buf strings.Builder
	words := 0

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		ordinal := len(result) + 1
		result = append(result, Chapter{
			Ordinal: ordinal,
			Title:   fmt.Sprintf("Chapter %d", ordinal),
			Markup:  buf.String(),
		})
		buf.Reset()
		words = 0
	}

	for _, node := range blocks {
		nodeWords := htmldoc.NodeWordCount(node)
		if words+nodeWords > wordsPerChapter && buf.Len() > 0 {
			flush()
		}
		buf.WriteString(htmldoc.Render(node))
		buf.WriteByte('\n')
		words += nodeWords
	}
	flush()
	return result
}

// AnchorChapters returns copies of chapters whose first heading carries a
// stable chapter_{n} id matching the ordinal. Chapters without a heading are
// wrapped whole in an anchored container.
func AnchorChapters(chapters []Chapter) []Chapter {
	anchored := make([]Chapter, len(chapters))
	for i, chapter := range chapters {
		anchored[i] = chapter
		anchorID := fmt.Sprintf("chapter_%d", chapter.Ordinal)

		nodes, err := htmldoc.ParseFragment(chapter.Markup)
		if err != nil || len(nodes) == 0 {
			anchored[i].Markup = fmt.Sprintf(`<div id="%s">%s</div>`, anchorID, chapter.Markup)
			continue
		}

		var heading *html.Node
		for _, node := range nodes {
			if found := htmldoc.FirstHeading(node); found != nil {
				heading = found
				break
			}
		}

		if heading != nil {
			htmldoc.SetAttr(heading, "id", anchorID)
			anchored[i].Markup = htmldoc.RenderNodes(nodes)
			continue
		}
		anchored[i].Markup = fmt.Sprintf(`<div id="%s">%s</div>`, anchorID, htmldoc.RenderNodes(nodes))
	}
	return anchored
}

// BuildTOC emits the table-of-contents fragment, one anchor entry per
// chapter in order.
func BuildTOC(chapters []Chapter) string {
	return BuildTOCTitled(chapters, "Table of Contents")
}

// BuildTOCTitled is BuildTOC with a custom list heading.
func BuildTOCTitled(chapters []Chapter, tocTitle string) string {
	var sb strings.Builder
	sb.WriteString(`<div class="toc">` + "\n")
	fmt.Fprintf(&sb, "<h1>%s</h1>\n<nav>\n<ul>\n", htmldoc.EscapeText(tocTitle))
	for _, chapter := range chapters {
		title := chapter.Title
		if strings.TrimSpace(title) == "" {
			title = fmt.Sprintf("Chapter %d", chapter.Ordinal)
		}
		fmt.Fprintf(&sb, `<li><a href="#chapter_%d">%s</a></li>`+"\n",
			chapter.Ordinal, htmldoc.EscapeText(title))
	}
	sb.WriteString("</ul>\n</nav>\n</div>")
	return sb.String()
}

// TotalWords sums the visible word counts of all chapters.
func TotalWords(chapters []Chapter) int {
	total := 0
	for _, chapter := range chapters {
		nodes, err := htmldoc.ParseFragment(chapter.Markup)
		if err != nil {
			total += htmldoc.WordCount(chapter.Markup)
			continue
		}
		for _, node := range nodes {
			total += htmldoc.NodeWordCount(node)
		}
	}
	return total
}
