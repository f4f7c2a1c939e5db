// Package chapters segments converted markup into ordered chapters and
// builds the table-of-contents fragment linking to them. Splitting prefers
// natural heading boundaries and falls back to word-count accumulation when
// the document has no usable heading structure.
package chapters
