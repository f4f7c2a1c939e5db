// Package convert normalizes classified content into styled semantic
// markup. Each content kind has one handler and no handler returns an error
// to the caller: ideal-path failures degrade to simpler extraction and the
// degradation is recorded in the result metadata instead.
package convert
