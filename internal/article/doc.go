// Package article fetches remote pages and extracts readable article
// content for the URL conversion path. Extraction is heuristic: metadata
// comes from standard meta tags, the body from article/main containers with
// a paragraph-harvest fallback. Fetched markup is sanitized before parsing.
package article
