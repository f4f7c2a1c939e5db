package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"clipbook/internal/assembly"
	"clipbook/internal/cache"
	"clipbook/internal/chapters"
	"clipbook/internal/config"
	"clipbook/internal/convert"
	"clipbook/internal/detect"
	"clipbook/internal/history"
	"clipbook/internal/htmldoc"
	"clipbook/internal/logging"
	"clipbook/internal/notifications"
	"clipbook/internal/services"
	"clipbook/internal/services/llm"
	"clipbook/internal/styles"
)

// EditFunc lets an interactive caller adjust content before conversion.
// Returning ok=false cancels the job: nothing is written or recorded.
type EditFunc func(ctx context.Context, content string) (edited string, ok bool)

// SubtitleFetcher retrieves a flattened transcript for a video URL.
type SubtitleFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Rewriter reshapes transcript text through a language model.
type Rewriter interface {
	Rewrite(ctx context.Context, req llm.Request) (llm.Result, error)
}

// Deps bundles the collaborators a Manager orchestrates. Cache, History,
// Subtitles, and Rewriter may be nil; the corresponding behavior is skipped.
type Deps struct {
	Converter *convert.Converter
	Styles    *styles.Provider
	Cache     *cache.Cache
	History   *history.Store
	Assembler assembly.Assembler
	Notifier  notifications.Service
	Subtitles SubtitleFetcher
	Rewriter  Rewriter
}

// Request describes one conversion submission.
type Request struct {
	Content         string
	SuggestedTitle  string
	Style           string
	WordsPerChapter int
	Author          string
	Language        string
	Tags            []string
	Edit            EditFunc
	// ImageRef short-circuits conversion: the document becomes a single
	// chapter embedding the reference.
	ImageRef string
}

var errJobCancelled = errors.New("job cancelled")

type jobRecord struct {
	job     Job
	done    chan struct{}
	cancel  context.CancelFunc
	outcome Outcome
	err     error
}

// Manager admits and runs conversion jobs.
type Manager struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	sem      *semaphore.Weighted
	capacity int
	pool     *pool

	accumulator *Accumulator

	mu     sync.Mutex
	jobs   map[string]*jobRecord
	order  []string
	active int
	queued int
	closed bool
	wg     sync.WaitGroup
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, deps Deps, logger *slog.Logger) *Manager {
	capacity := cfg.Workflow.MaxConcurrent
	if capacity <= 0 {
		capacity = 1
	}
	return &Manager{
		cfg:         cfg,
		deps:        deps,
		logger:      logging.NewComponentLogger(logger, "workflow"),
		sem:         semaphore.NewWeighted(int64(capacity)),
		capacity:    capacity,
		pool:        newPool(cfg.Workflow.WorkerPoolSize),
		accumulator: NewAccumulator(cfg.Workflow.AccumulatorMaxClips),
		jobs:        map[string]*jobRecord{},
	}
}

// Accumulator exposes the clip accumulator bound to this manager.
func (m *Manager) Accumulator() *Accumulator { return m.accumulator }

// Submit registers a job and starts it in the background. The returned id
// can be waited on or cancelled.
func (m *Manager) Submit(req Request) (string, error) {
	if strings.TrimSpace(req.Content) == "" && strings.TrimSpace(req.ImageRef) == "" {
		return "", services.Wrap(services.ErrValidation, "workflow", "submit", "empty content", nil)
	}

	// Jobs run on their own context so a synchronous caller timing out
	// orphans the work instead of corrupting it.
	jobCtx, cancel := context.WithCancel(context.Background())
	rec := &jobRecord{
		job: Job{
			ID:          uuid.NewString(),
			Title:       req.SuggestedTitle,
			State:       StateQueued,
			SubmittedAt: time.Now(),
		},
		done:   make(chan struct{}),
		cancel: cancel,
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		cancel()
		return "", services.Wrap(services.ErrValidation, "workflow", "submit", "manager is shut down", nil)
	}
	m.jobs[rec.job.ID] = rec
	m.order = append(m.order, rec.job.ID)
	m.queued++
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(jobCtx, rec, req)
	return rec.job.ID, nil
}

func (m *Manager) run(ctx context.Context, rec *jobRecord, req Request) {
	defer m.wg.Done()
	defer rec.cancel()

	if err := m.sem.Acquire(ctx, 1); err != nil {
		m.finish(rec, Outcome{}, services.Wrap(services.ErrTimeout, "workflow", "admission", "job cancelled while queued", err), true)
		return
	}
	defer m.sem.Release(1)

	m.mu.Lock()
	m.queued--
	m.active++
	rec.job.State = StateRunning
	rec.job.StartedAt = time.Now()
	m.mu.Unlock()

	ctx = services.WithJobID(ctx, rec.job.ID)
	outcome, err := m.execute(ctx, req)
	m.finish(rec, outcome, err, false)
}

func (m *Manager) finish(rec *jobRecord, outcome Outcome, err error, stillQueued bool) {
	m.mu.Lock()
	if stillQueued {
		m.queued--
	} else {
		m.active--
	}
	rec.job.FinishedAt = time.Now()
	switch {
	case err == nil:
		rec.job.State = StateSucceeded
		rec.job.Title = outcome.Title
		rec.job.Kind = outcome.Kind
		rec.job.OutputPath = outcome.OutputPath
		rec.job.ChapterCount = outcome.ChapterCount
		rec.job.CacheHit = outcome.CacheHit
		outcome.JobID = rec.job.ID
		rec.outcome = outcome
	case errors.Is(err, errJobCancelled), errors.Is(err, context.Canceled):
		rec.job.State = StateCancelled
		rec.err = err
	default:
		rec.job.State = StateFailed
		rec.job.Err = err.Error()
		rec.err = err
	}
	state := rec.job.State
	title := rec.job.Title
	m.mu.Unlock()
	close(rec.done)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	switch state {
	case StateSucceeded:
		m.logger.Info("job succeeded",
			logging.String(logging.FieldJobID, rec.job.ID),
			logging.String("path", outcome.OutputPath),
			logging.Int("chapters", outcome.ChapterCount),
			logging.Bool("cache_hit", outcome.CacheHit))
		if m.deps.Notifier != nil {
			if nerr := m.deps.Notifier.NotifyConversionCompleted(ctx, outcome.Title, outcome.OutputPath, outcome.ChapterCount); nerr != nil {
				m.logger.Warn("completion notification failed", logging.Error(nerr))
			}
		}
	case StateFailed:
		m.logger.Error("job failed",
			logging.String(logging.FieldJobID, rec.job.ID),
			logging.Error(err))
		if m.deps.Notifier != nil {
			if nerr := m.deps.Notifier.NotifyConversionFailed(ctx, title, err); nerr != nil {
				m.logger.Warn("failure notification failed", logging.Error(nerr))
			}
		}
	default:
		m.logger.Info("job cancelled", logging.String(logging.FieldJobID, rec.job.ID))
	}
}

// Wait blocks until the job reaches a terminal state or ctx ends.
func (m *Manager) Wait(ctx context.Context, jobID string) (Outcome, error) {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return Outcome{}, services.Wrap(services.ErrNotFound, "workflow", "wait", "unknown job "+jobID, nil)
	}
	select {
	case <-rec.done:
	case <-ctx.Done():
		return Outcome{}, services.Wrap(services.ErrTimeout, "workflow", "wait", jobID, ctx.Err())
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.err != nil {
		return Outcome{}, rec.err
	}
	return rec.outcome, nil
}

// ConvertSync submits a job and waits up to the configured synchronous
// timeout. On timeout the job keeps running in the background.
func (m *Manager) ConvertSync(ctx context.Context, req Request) (Outcome, error) {
	jobID, err := m.Submit(req)
	if err != nil {
		return Outcome{}, err
	}
	timeout := time.Duration(m.cfg.Workflow.SyncTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, err := m.Wait(waitCtx, jobID)
	if err != nil && errors.Is(err, services.ErrTimeout) {
		m.logger.Warn("synchronous wait expired, job continues in background",
			logging.String(logging.FieldJobID, jobID))
	}
	return outcome, err
}

// Cancel stops a job. Queued jobs never run; running jobs see their context
// end.
func (m *Manager) Cancel(jobID string) bool {
	m.mu.Lock()
	rec, ok := m.jobs[jobID]
	m.mu.Unlock()
	if !ok {
		return false
	}
	rec.cancel()
	return true
}

// Job reports a copy of the job record.
func (m *Manager) Job(jobID string) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.jobs[jobID]
	if !ok {
		return Job{}, false
	}
	return rec.job, true
}

// Jobs lists all jobs in submission order.
func (m *Manager) Jobs() []Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Job, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.jobs[id].job)
	}
	return out
}

// Snapshot reports occupancy.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{Active: m.active, Queued: m.queued, Capacity: m.capacity}
}

// Shutdown cancels outstanding jobs and waits for them to settle.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	recs := make([]*jobRecord, 0, len(m.jobs))
	for _, rec := range m.jobs {
		recs = append(recs, rec)
	}
	m.mu.Unlock()
	for _, rec := range recs {
		rec.cancel()
	}

	settled := make(chan struct{})
	go func() {
		m.wg.Wait()
		m.pool.close()
		close(settled)
	}()
	select {
	case <-settled:
		return nil
	case <-ctx.Done():
		return services.Wrap(services.ErrTimeout, "workflow", "shutdown", "jobs did not settle", ctx.Err())
	}
}

// execute runs the conversion pipeline for one admitted job. Image-typed
// items bypass every text stage, including the interactive edit.
func (m *Manager) execute(ctx context.Context, req Request) (Outcome, error) {
	if strings.TrimSpace(req.ImageRef) != "" {
		return m.assembleImage(ctx, req)
	}

	content := req.Content
	if req.Edit != nil {
		edited, ok := req.Edit(ctx, content)
		if !ok {
			return Outcome{}, errJobCancelled
		}
		content = edited
	}

	title := req.SuggestedTitle
	tags := req.Tags
	// The video branch replaces content, so the replacement's kind is pinned
	// rather than re-detected.
	var forced detect.Kind
	if m.videoEnabled() && detect.IsVideoURL(content) {
		transcript, rewritten, videoTitle, ok := m.videoTranscript(ctx, strings.TrimSpace(content))
		if ok {
			if rewritten != "" {
				content = rewritten
				forced = detect.KindMarkdown
			} else {
				content = transcript
				forced = detect.KindPlain
			}
			if title == "" {
				title = videoTitle
			}
			tags = append(tags, "video", "transcript")
		}
	}

	result, hit, err := m.convertThroughCache(ctx, content, forced, req)
	if err != nil {
		return Outcome{}, err
	}

	if title == "" {
		title = result.Metadata.Title
	}
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}

	outPath, err := m.persist(ctx, req, title, result, tags)
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{
		Title:        title,
		Kind:         result.Metadata.Kind,
		OutputPath:   outPath,
		ChapterCount: len(result.Chapters),
		CacheHit:     hit,
	}, nil
}

func (m *Manager) videoEnabled() bool {
	return m.cfg.Video.Enabled && m.deps.Subtitles != nil
}

// videoTranscript fetches subtitles and optionally rewrites them. ok=false
// means the caller should fall back to the generic URL path.
func (m *Manager) videoTranscript(ctx context.Context, url string) (transcript, rewritten, title string, ok bool) {
	var err error
	fetchErr := m.pool.do(ctx, func() error {
		transcript, err = m.deps.Subtitles.Fetch(ctx, url)
		return err
	})
	if fetchErr != nil || strings.TrimSpace(transcript) == "" {
		if fetchErr == nil {
			fetchErr = services.Wrap(services.ErrNotFound, "workflow", "video", "empty transcript", nil)
		}
		logging.WarnWithContext(ctx, m.logger, "subtitle retrieval failed, using generic conversion",
			logging.String("url", url), logging.Error(fetchErr))
		if m.deps.Notifier != nil {
			if nerr := m.deps.Notifier.NotifySubtitleFallback(ctx, url, fetchErr.Error()); nerr != nil {
				m.logger.Warn("fallback notification failed", logging.Error(nerr))
			}
		}
		return "", "", "", false
	}

	title = "Video Transcript"
	if !m.cfg.LLM.Enabled || m.deps.Rewriter == nil {
		return transcript, "", title, true
	}

	result, err := m.deps.Rewriter.Rewrite(ctx, llm.Request{Text: transcript})
	if err != nil || strings.TrimSpace(result.Output) == "" {
		// Raw transcripts still make a usable document.
		logging.WarnWithContext(ctx, m.logger, "transcript rewrite failed, using raw subtitles",
			logging.String("url", url), logging.Error(err))
		return transcript, "", title, true
	}
	return transcript, result.Output, llm.TitleFromOutput(result.Output), true
}

// convertThroughCache builds (or reuses) the conversion result for content.
// Detection runs inside the build closure so a cache hit skips the whole
// pipeline, detector included; forced overrides it for replaced content.
func (m *Manager) convertThroughCache(ctx context.Context, content string, forced detect.Kind, req Request) (cache.Result, bool, error) {
	build := func(ctx context.Context) (cache.Result, error) {
		if err := ctx.Err(); err != nil {
			return cache.Result{}, err
		}
		kind := forced
		if kind == "" {
			kind = detect.ClassifyWithOptions(content, detect.Options{
				HTMLTagThreshold:         m.cfg.Detection.HTMLTagThreshold,
				MarkdownPatternThreshold: m.cfg.Detection.MarkdownPatternThreshold,
			})
		}
		converted := m.deps.Converter.Convert(ctx, content, kind, m.styleName(req))
		segmented := chapters.Segment(converted.Markup, firstNonEmpty(req.SuggestedTitle, converted.Metadata.Title), m.wordsPerChapter(req))
		anchored := chapters.AnchorChapters(segmented)
		return cache.Result{
			Markup:   converted.Markup,
			Metadata: converted.Metadata,
			Chapters: anchored,
			TOC:      chapters.BuildTOC(anchored),
		}, nil
	}

	if m.deps.Cache == nil || !m.cfg.Cache.Enabled {
		result, err := build(ctx)
		return result, false, err
	}
	key := cache.Key(content, m.cacheOptions(forced, req))
	return m.deps.Cache.GetOrBuild(ctx, key, build)
}

// cacheOptions serializes every input that changes conversion output. The
// detected kind is derived from content and so never enters the key; only a
// forced kind does.
func (m *Manager) cacheOptions(forced detect.Kind, req Request) string {
	kind := "auto"
	if forced != "" {
		kind = string(forced)
	}
	return fmt.Sprintf("kind=%s|style=%s|wpc=%d|title=%s",
		kind, m.styleName(req), m.wordsPerChapter(req), req.SuggestedTitle)
}

func (m *Manager) styleName(req Request) string {
	return firstNonEmpty(req.Style, m.cfg.Conversion.StyleTemplate, styles.DefaultName)
}

func (m *Manager) wordsPerChapter(req Request) int {
	words := req.WordsPerChapter
	if words <= 0 {
		words = m.cfg.Conversion.WordsPerChapter
	}
	return chapters.ClampWordsPerChapter(words)
}

// persist assembles the document and records history on the worker pool.
func (m *Manager) persist(ctx context.Context, req Request, title string, result cache.Result, tags []string) (string, error) {
	authors := result.Metadata.Authors
	if author := firstNonEmpty(req.Author, m.cfg.Conversion.DefaultAuthor); author != "" && len(authors) == 0 {
		authors = []string{author}
	}
	doc := assembly.Document{
		Title:    title,
		Language: firstNonEmpty(req.Language, m.cfg.Conversion.DefaultLanguage, "en"),
		Authors:  authors,
		Metadata: result.Metadata,
		CSS:      m.deps.Styles.Template(m.styleName(req)),
		Chapters: result.Chapters,
		TOC:      result.TOC,
	}

	var outPath string
	err := m.pool.do(ctx, func() error {
		var aerr error
		outPath, aerr = m.deps.Assembler.Assemble(ctx, doc)
		return aerr
	})
	if err != nil {
		return "", err
	}

	if m.deps.History != nil && m.cfg.History.Enabled {
		entry := history.Entry{
			Path:     outPath,
			Title:    title,
			Kind:     result.Metadata.Kind,
			Chapters: len(result.Chapters),
			Author:   strings.Join(authors, ", "),
			Tags:     tags,
		}
		if herr := m.pool.do(ctx, func() error {
			_, aerr := m.deps.History.Add(ctx, entry)
			return aerr
		}); herr != nil {
			// History is advisory; the document is already on disk.
			logging.WarnWithContext(ctx, m.logger, "history record failed", logging.Error(herr))
		}
	}
	return outPath, nil
}

// assembleImage short-circuits conversion for image captures: one chapter
// embedding the reference, no cache involvement.
func (m *Manager) assembleImage(ctx context.Context, req Request) (Outcome, error) {
	title := firstNonEmpty(req.SuggestedTitle, "Captured Image")
	markup := fmt.Sprintf(
		`<figure class="captured-image"><img src="%s" alt="%s"/></figure>`,
		htmldoc.EscapeText(req.ImageRef), htmldoc.EscapeText(title))
	anchored := chapters.AnchorChapters([]chapters.Chapter{{Ordinal: 1, Title: title, Markup: markup}})

	doc := assembly.Document{
		Title:    title,
		Language: firstNonEmpty(req.Language, m.cfg.Conversion.DefaultLanguage, "en"),
		Metadata: convert.Metadata{Title: title, Source: req.ImageRef},
		CSS:      m.deps.Styles.Template(m.styleName(req)),
		Chapters: anchored,
		TOC:      chapters.BuildTOC(anchored),
	}
	var outPath string
	err := m.pool.do(ctx, func() error {
		var aerr error
		outPath, aerr = m.deps.Assembler.Assemble(ctx, doc)
		return aerr
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Title: title, OutputPath: outPath, ChapterCount: 1}, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
