// Package htmldoc wraps golang.org/x/net/html with the tree operations the
// conversion pipeline needs: parsing full documents and body fragments,
// scrubbing non-content elements, locating titles and headings, counting
// words, and rendering nodes back to markup.
package htmldoc
