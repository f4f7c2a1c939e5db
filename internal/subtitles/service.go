package subtitles

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/language"

	"clipbook/internal/logging"
	"clipbook/internal/services"
)

const (
	defaultBinary      = "yt-dlp"
	defaultToolTimeout = 120 * time.Second
	maxLanguages       = 3
)

var defaultLanguages = []string{"en", "es", "pt"}

// Options configures subtitle retrieval.
type Options struct {
	// Languages are tried in order; at most three are used. Tags are
	// normalized to their base language code, so "en-US" becomes "en".
	Languages []string
	// PreferNative tries uploader-provided tracks before auto-generated
	// captions for each language.
	PreferNative bool
	// Binary is the yt-dlp executable name or path.
	Binary string
	// ToolTimeout bounds each individual yt-dlp invocation.
	ToolTimeout time.Duration
}

// commandRunner executes an external tool inside dir.
type commandRunner func(ctx context.Context, dir, name string, args ...string) error

// Service downloads and flattens subtitle tracks.
type Service struct {
	opts   Options
	logger *slog.Logger
	run    commandRunner
}

// NewService builds a subtitle service with normalized options.
func NewService(opts Options, logger *slog.Logger) *Service {
	opts.Languages = normalizeLanguages(opts.Languages)
	if strings.TrimSpace(opts.Binary) == "" {
		opts.Binary = defaultBinary
	}
	if opts.ToolTimeout <= 0 {
		opts.ToolTimeout = defaultToolTimeout
	}
	s := &Service{
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "subtitles"),
	}
	s.run = s.defaultCommandRunner
	return s
}

// normalizeLanguages reduces tags to deduplicated base codes, capped at
// three, falling back to the defaults when nothing usable remains.
func normalizeLanguages(requested []string) []string {
	out := make([]string, 0, maxLanguages)
	seen := map[string]bool{}
	for _, candidate := range requested {
		tag, err := language.Parse(strings.TrimSpace(candidate))
		if err != nil {
			continue
		}
		base, _ := tag.Base()
		code := strings.ToLower(base.String())
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
		if len(out) >= maxLanguages {
			break
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultLanguages...)
	}
	return out
}

// Fetch downloads subtitles for a video URL and returns the flattened cue
// text. It returns ErrNotFound when no track in any requested language
// yields text, and ErrExternalTool or ErrNotFound when yt-dlp itself is
// unusable.
func (s *Service) Fetch(ctx context.Context, url string) (string, error) {
	if strings.TrimSpace(url) == "" {
		return "", services.Wrap(services.ErrValidation, "subtitles", "fetch", "empty url", nil)
	}

	workDir, err := os.MkdirTemp("", "clipbook-subs-")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "subtitles", "fetch", "create scratch directory", err)
	}
	defer os.RemoveAll(workDir)

	common := []string{
		"--skip-download",
		"--no-playlist",
		"--sub-format", "vtt,srt",
	}

	for _, lang := range s.opts.Languages {
		modes := []string{"--write-subs", "--write-auto-subs"}
		if !s.opts.PreferNative {
			modes[0], modes[1] = modes[1], modes[0]
		}
		for _, mode := range modes {
			args := append(append([]string(nil), common...), mode, "--sub-langs", lang, url)

			runCtx, cancel := context.WithTimeout(ctx, s.opts.ToolTimeout)
			runErr := s.run(runCtx, workDir, s.opts.Binary, args...)
			cancel()
			if runErr != nil {
				if errors.Is(runErr, services.ErrNotFound) {
					return "", runErr
				}
				if ctx.Err() != nil {
					return "", services.Wrap(services.ErrTimeout, "subtitles", "fetch", url, ctx.Err())
				}
				// Partial downloads may still have produced a track.
				s.logger.Warn("yt-dlp invocation failed",
					logging.String("language", lang),
					logging.Error(runErr))
			}

			path := newestTrack(workDir, lang)
			if path == "" {
				continue
			}
			text, parseErr := parseTrackFile(path)
			if parseErr != nil {
				s.logger.Warn("subtitle track unreadable",
					logging.String("path", filepath.Base(path)),
					logging.Error(parseErr))
				continue
			}
			if strings.TrimSpace(text) != "" {
				s.logger.Info("subtitles retrieved",
					logging.String("language", lang),
					logging.Int("chars", len(text)))
				return text, nil
			}
		}
	}
	return "", services.Wrap(services.ErrNotFound, "subtitles", "fetch", "no subtitle track yielded text for "+url, nil)
}

// newestTrack returns the most recently modified .vtt or .srt file in dir,
// preferring names carrying the language code.
func newestTrack(dir, lang string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	type candidate struct {
		path    string
		modTime time.Time
	}
	var preferred, rest []candidate
	marker := "." + strings.ToLower(lang) + "."
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		ext := filepath.Ext(name)
		if ext != ".vtt" && ext != ".srt" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		c := candidate{path: path, modTime: info.ModTime()}
		if strings.Contains(name, marker) {
			preferred = append(preferred, c)
		} else {
			rest = append(rest, c)
		}
	}

	pool := preferred
	if len(pool) == 0 {
		pool = rest
	}
	if len(pool) == 0 {
		return ""
	}
	sort.Slice(pool, func(i, j int) bool { return pool[i].modTime.After(pool[j].modTime) })
	return pool[0].path
}

func (s *Service) defaultCommandRunner(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	cmd.Dir = dir
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return services.Wrap(services.ErrNotFound, "subtitles", "run tool",
				name+" not found; install yt-dlp and ensure it is on PATH", err)
		}
		detail := strings.TrimSpace(stderr.String())
		if lines := strings.Split(detail, "\n"); len(lines) > 0 {
			detail = strings.TrimSpace(lines[len(lines)-1])
		}
		return services.Wrap(services.ErrExternalTool, "subtitles", "run tool", detail, err)
	}
	return nil
}
