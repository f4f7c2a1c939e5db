package htmldoc

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Parse parses markup as a full HTML document. The x/net parser is lenient,
// so malformed input still yields a tree rather than an error in practice.
func Parse(markup string) (*html.Node, error) {
	return html.Parse(strings.NewReader(markup))
}

// ParseFragment parses markup as body content and returns the top-level
// nodes. Used for chapter fragments that are not complete documents.
func ParseFragment(markup string) ([]*html.Node, error) {
	body := &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	}
	return html.ParseFragment(strings.NewReader(markup), body)
}

// Render serializes a node subtree back to markup.
func Render(node *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, node); err != nil {
		return ""
	}
	return sb.String()
}

// RenderChildren serializes the children of node, omitting the node itself.
func RenderChildren(node *html.Node) string {
	var sb strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if err := html.Render(&sb, child); err != nil {
			return sb.String()
		}
	}
	return sb.String()
}

// RenderNodes serializes a slice of sibling nodes in order.
func RenderNodes(nodes []*html.Node) string {
	var sb strings.Builder
	for _, node := range nodes {
		if err := html.Render(&sb, node); err != nil {
			return sb.String()
		}
	}
	return sb.String()
}

// Find returns the first node in the subtree matching the predicate, in
// document order.
func Find(root *html.Node, match func(*html.Node) bool) *html.Node {
	if root == nil {
		return nil
	}
	if match(root) {
		return root
	}
	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if found := Find(child, match); found != nil {
			return found
		}
	}
	return nil
}

// FindElement returns the first element with the given atom.
func FindElement(root *html.Node, a atom.Atom) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.DataAtom == a
	})
}

// Title extracts trimmed <title> text, or "" when absent.
func Title(doc *html.Node) string {
	node := FindElement(doc, atom.Title)
	if node == nil {
		return ""
	}
	return strings.TrimSpace(CollectText(node))
}

// Body returns the <body> element, or nil.
func Body(doc *html.Node) *html.Node {
	return FindElement(doc, atom.Body)
}

// Head returns the <head> element, or nil.
func Head(doc *html.Node) *html.Node {
	return FindElement(doc, atom.Head)
}

var scrubbed = map[atom.Atom]struct{}{
	atom.Script:   {},
	atom.Style:    {},
	atom.Noscript: {},
	atom.Meta:     {},
	atom.Link:     {},
}

// Scrub removes script, style, noscript, meta, and link elements in place.
func Scrub(root *html.Node) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		child := n.FirstChild
		for child != nil {
			next := child.NextSibling
			if child.Type == html.ElementNode {
				if _, drop := scrubbed[child.DataAtom]; drop {
					n.RemoveChild(child)
					child = next
					continue
				}
			}
			walk(child)
			child = next
		}
	}
	walk(root)
}

// CollectText extracts all text content from a subtree, skipping script and
// style elements, with single spaces between runs.
func CollectText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	if root != nil {
		walk(root)
	}
	return sb.String()
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// NodeWordCount counts words in the visible text of a subtree.
func NodeWordCount(node *html.Node) int {
	return WordCount(CollectText(node))
}

// HeadingLevel returns 1..6 for h1..h6 elements and 0 otherwise.
func HeadingLevel(node *html.Node) int {
	if node == nil || node.Type != html.ElementNode {
		return 0
	}
	switch node.DataAtom {
	case atom.H1:
		return 1
	case atom.H2:
		return 2
	case atom.H3:
		return 3
	case atom.H4:
		return 4
	case atom.H5:
		return 5
	case atom.H6:
		return 6
	}
	return 0
}

// FirstHeading returns the first h1-h6 element in the subtree.
func FirstHeading(root *html.Node) *html.Node {
	return Find(root, func(n *html.Node) bool {
		return HeadingLevel(n) > 0
	})
}

// SetAttr sets or replaces an attribute on an element node.
func SetAttr(node *html.Node, key, value string) {
	for i := range node.Attr {
		if node.Attr[i].Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

// GetAttr returns the attribute value and whether it is present.
func GetAttr(node *html.Node, key string) (string, bool) {
	for _, attr := range node.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// IsFullDocument reports whether markup already declares a complete HTML
// document rather than a fragment.
func IsFullDocument(markup string) bool {
	lowered := strings.ToLower(markup)
	return strings.Contains(lowered, "<html") || strings.Contains(lowered, "<!doctype html")
}

var blockAtoms = map[atom.Atom]struct{}{
	atom.P:          {},
	atom.Div:        {},
	atom.H1:         {},
	atom.H2:         {},
	atom.H3:         {},
	atom.H4:         {},
	atom.H5:         {},
	atom.H6:         {},
	atom.Blockquote: {},
	atom.Ul:         {},
	atom.Ol:         {},
	atom.Pre:        {},
	atom.Table:      {},
	atom.Section:    {},
	atom.Article:    {},
	atom.Figure:     {},
}

// IsBlock reports whether node is one of the block-level elements the
// segmenter accumulates.
func IsBlock(node *html.Node) bool {
	if node == nil || node.Type != html.ElementNode {
		return false
	}
	_, ok := blockAtoms[node.DataAtom]
	return ok
}

// EscapeText HTML-escapes raw text for safe embedding in markup.
func EscapeText(text string) string {
	return html.EscapeString(text)
}

// NewStyleNode builds a <style> element holding css, ready to append to a
// document head.
func NewStyleNode(css string) *html.Node {
	node := &html.Node{
		Type:     html.ElementNode,
		Data:     "style",
		DataAtom: atom.Style,
	}
	node.AppendChild(&html.Node{
		Type: html.TextNode,
		Data: css,
	})
	return node
}
