// Package logging centralizes slog construction and the structured field
// vocabulary used across the conversion pipeline.
//
// Two output formats are supported: a compact console format for interactive
// use and JSON for log shipping. Helpers such as Error, String, and
// NewComponentLogger keep attribute construction uniform so log lines stay
// greppable across components.
package logging
