// Package detect classifies captured content into one of the supported
// source formats. Classification is pure and total: every input maps to
// exactly one Kind, falling back to KindPlain when nothing else matches.
package detect
