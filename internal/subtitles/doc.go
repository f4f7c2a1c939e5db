// Package subtitles retrieves video transcripts through yt-dlp. Each
// requested language is tried with native and auto-generated tracks in the
// configured preference order, downloaded into a scratch directory, and the
// first non-empty cue text wins. Failures are soft so callers can fall back
// to generic URL conversion.
package subtitles
