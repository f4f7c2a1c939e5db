package assembly

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipbook/internal/chapters"
	"clipbook/internal/convert"
	"clipbook/internal/htmldoc"
	"clipbook/internal/logging"
	"clipbook/internal/services"
	"clipbook/internal/textutil"
)

// Document is the fully prepared content handed to an assembler.
type Document struct {
	Title    string
	Language string
	Authors  []string
	Metadata convert.Metadata
	// CSS is the resolved style payload embedded into the output.
	CSS string
	// Chapters are anchored and ordered; TOC links into them.
	Chapters []chapters.Chapter
	TOC      string
}

// Assembler persists a document and returns the output path.
type Assembler interface {
	Assemble(ctx context.Context, doc Document) (string, error)
}

// BundleWriter writes a single self-contained HTML file per document.
type BundleWriter struct {
	outputDir string
	logger    *slog.Logger
	now       func() time.Time
}

// NewBundleWriter builds a writer targeting outputDir.
func NewBundleWriter(outputDir string, logger *slog.Logger) *BundleWriter {
	return &BundleWriter{
		outputDir: outputDir,
		logger:    logging.NewComponentLogger(logger, "assembly"),
		now:       time.Now,
	}
}

const slugMaxLen = 60

// Assemble renders and atomically persists the document bundle.
func (w *BundleWriter) Assemble(ctx context.Context, doc Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrTimeout, "assembly", "assemble", "context done", err)
	}
	if len(doc.Chapters) == 0 {
		return "", services.Wrap(services.ErrValidation, "assembly", "assemble", "document has no chapters", nil)
	}
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "assembly", "assemble", "create output directory", err)
	}

	path := w.uniquePath(doc.Title)
	payload := renderBundle(doc)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(payload), 0o644); err != nil {
		return "", services.Wrap(services.ErrTransient, "assembly", "assemble", "write bundle", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", services.Wrap(services.ErrTransient, "assembly", "assemble", "finalize bundle", err)
	}

	w.logger.Info("document assembled",
		logging.String("path", path),
		logging.Int("chapters", len(doc.Chapters)),
		logging.Int("bytes", len(payload)))
	return path, nil
}

// uniquePath derives a slugged, timestamped filename that does not collide
// with existing output.
func (w *BundleWriter) uniquePath(title string) string {
	base := fmt.Sprintf("%s-%s", textutil.Slug(title, slugMaxLen), w.now().Format("20060102-150405"))
	path := filepath.Join(w.outputDir, base+".html")
	for i := 2; ; i++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path
		}
		path = filepath.Join(w.outputDir, fmt.Sprintf("%s-%d.html", base, i))
	}
}

func renderBundle(doc Document) string {
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = "Untitled"
	}
	lang := strings.TrimSpace(doc.Language)
	if lang == "" {
		lang = "en"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(&sb, "<html lang=\"%s\">\n<head>\n<meta charset=\"utf-8\"/>\n", htmldoc.EscapeText(lang))
	fmt.Fprintf(&sb, "<title>%s</title>\n", htmldoc.EscapeText(title))
	if author := strings.Join(doc.Authors, ", "); strings.TrimSpace(author) != "" {
		fmt.Fprintf(&sb, "<meta name=\"author\" content=\"%s\"/>\n", htmldoc.EscapeText(author))
	}
	if doc.Metadata.Source != "" {
		fmt.Fprintf(&sb, "<meta name=\"source\" content=\"%s\"/>\n", htmldoc.EscapeText(doc.Metadata.Source))
	}
	if doc.CSS != "" {
		sb.WriteString("<style>\n")
		sb.WriteString(doc.CSS)
		sb.WriteString("\n</style>\n")
	}
	sb.WriteString("</head>\n<body>\n")
	if doc.TOC != "" && len(doc.Chapters) > 1 {
		sb.WriteString(doc.TOC)
		sb.WriteString("\n")
	}
	for _, chapter := range doc.Chapters {
		fmt.Fprintf(&sb, "<section class=\"chapter\" data-ordinal=\"%d\">\n", chapter.Ordinal)
		sb.WriteString(chapter.Markup)
		if !strings.HasSuffix(chapter.Markup, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("</section>\n")
	}
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}
