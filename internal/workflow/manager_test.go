package workflow_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"clipbook/internal/assembly"
	"clipbook/internal/cache"
	"clipbook/internal/config"
	"clipbook/internal/convert"
	"clipbook/internal/detect"
	"clipbook/internal/history"
	"clipbook/internal/logging"
	"clipbook/internal/services"
	"clipbook/internal/services/llm"
	"clipbook/internal/styles"
	"clipbook/internal/testsupport"
	"clipbook/internal/workflow"
)

type fakeNotifier struct {
	mu        sync.Mutex
	completed []string
	failed    []string
	fallbacks []string
}

func (f *fakeNotifier) NotifyConversionCompleted(_ context.Context, title, _ string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, title)
	return nil
}

func (f *fakeNotifier) NotifyConversionFailed(_ context.Context, title string, _ error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, title)
	return nil
}

func (f *fakeNotifier) NotifySubtitleFallback(_ context.Context, url, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallbacks = append(f.fallbacks, url)
	return nil
}

func (f *fakeNotifier) NotifyCacheCleared(context.Context, int) error { return nil }
func (f *fakeNotifier) TestNotification(context.Context) error       { return nil }

type fakeSubtitles struct {
	transcript string
	err        error
}

func (f *fakeSubtitles) Fetch(context.Context, string) (string, error) {
	return f.transcript, f.err
}

type fakeRewriter struct {
	output string
	err    error
}

func (f *fakeRewriter) Rewrite(context.Context, llm.Request) (llm.Result, error) {
	if f.err != nil {
		return llm.Result{}, f.err
	}
	return llm.Result{Output: f.output, Model: "fake"}, nil
}

type fixture struct {
	cfg      *config.Config
	manager  *workflow.Manager
	notifier *fakeNotifier
	history  *history.Store
}

func newFixture(t *testing.T, mutate func(cfg *config.Config, deps *workflow.Deps)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)

	logger := logging.NewNop()
	styleProvider := styles.NewProvider(cfg.Paths.TemplatesDir)
	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.MaxMiB, logger)
	if err != nil {
		t.Fatalf("new cache: %v", err)
	}
	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = hist.Close() })

	notifier := &fakeNotifier{}
	deps := workflow.Deps{
		Converter: convert.New(nil, styleProvider, logger),
		Styles:    styleProvider,
		Cache:     store,
		History:   hist,
		Assembler: assembly.NewBundleWriter(cfg.Paths.OutputDir, logger),
		Notifier:  notifier,
	}
	if mutate != nil {
		mutate(cfg, &deps)
	}

	manager := workflow.NewManager(cfg, deps, logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = manager.Shutdown(ctx)
	})
	return &fixture{cfg: cfg, manager: manager, notifier: notifier, history: hist}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestConvertSyncProducesDocument(t *testing.T) {
	fx := newFixture(t, nil)

	outcome, err := fx.manager.ConvertSync(context.Background(), workflow.Request{
		Content:        "Some plain text.\n\nA second paragraph.",
		SuggestedTitle: "Plain Note",
	})
	if err != nil {
		t.Fatalf("convert sync: %v", err)
	}
	if outcome.Kind != detect.KindPlain || outcome.ChapterCount != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}
	data, err := os.ReadFile(outcome.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "A second paragraph.") {
		t.Fatalf("output missing content:\n%s", data)
	}

	entries, err := fx.history.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 1 || entries[0].Title != "Plain Note" {
		t.Fatalf("history entries = %+v", entries)
	}
	waitFor(t, "completion notification", func() bool {
		fx.notifier.mu.Lock()
		defer fx.notifier.mu.Unlock()
		return len(fx.notifier.completed) == 1
	})
}

func TestSecondIdenticalSubmissionHitsCache(t *testing.T) {
	fx := newFixture(t, nil)
	req := workflow.Request{Content: "cache me", SuggestedTitle: "Cached"}

	first, err := fx.manager.ConvertSync(context.Background(), req)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if first.CacheHit {
		t.Fatal("first conversion cannot be a hit")
	}
	second, err := fx.manager.ConvertSync(context.Background(), req)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !second.CacheHit {
		t.Fatal("second identical conversion must hit the cache")
	}
	if second.OutputPath == first.OutputPath {
		t.Fatal("each job writes its own output document")
	}
}

func TestAdmissionBoundsActiveJobs(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config, _ *workflow.Deps) {
		cfg.Workflow.MaxConcurrent = 2
	})

	gate := make(chan struct{})
	blockingEdit := func(ctx context.Context, content string) (string, bool) {
		select {
		case <-gate:
		case <-ctx.Done():
		}
		return content, true
	}

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := fx.manager.Submit(workflow.Request{Content: "job content", Edit: blockingEdit})
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	waitFor(t, "two active and one queued", func() bool {
		snap := fx.manager.Snapshot()
		return snap.Active == 2 && snap.Queued == 1
	})
	if snap := fx.manager.Snapshot(); snap.Capacity != 2 {
		t.Fatalf("capacity = %d", snap.Capacity)
	}

	close(gate)
	for _, id := range ids {
		if _, err := fx.manager.Wait(context.Background(), id); err != nil {
			t.Fatalf("wait %s: %v", id, err)
		}
	}
	if snap := fx.manager.Snapshot(); snap.Active != 0 || snap.Queued != 0 {
		t.Fatalf("occupancy after drain = %+v", snap)
	}
}

func TestEditCancellationWritesNothing(t *testing.T) {
	fx := newFixture(t, nil)

	id, err := fx.manager.Submit(workflow.Request{
		Content: "discard me",
		Edit: func(ctx context.Context, content string) (string, bool) {
			return "", false
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := fx.manager.Wait(context.Background(), id); err == nil {
		t.Fatal("cancelled job must not yield an outcome")
	}
	job, ok := fx.manager.Job(id)
	if !ok || job.State != workflow.StateCancelled {
		t.Fatalf("job state = %+v", job)
	}

	files, _ := os.ReadDir(fx.cfg.Paths.OutputDir)
	if len(files) != 0 {
		t.Fatalf("output written despite cancellation: %v", files)
	}
	entries, err := fx.history.Recent(context.Background(), 5)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("history written despite cancellation: %+v", entries)
	}
}

func TestVideoBranchRewritesTranscript(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config, deps *workflow.Deps) {
		cfg.Video.Enabled = true
		cfg.LLM.Enabled = true
		deps.Subtitles = &fakeSubtitles{transcript: "hello there general kenobi"}
		deps.Rewriter = &fakeRewriter{output: "# Talk Notes\n\nA tidy rendition of the talk."}
	})

	outcome, err := fx.manager.ConvertSync(context.Background(), workflow.Request{
		Content: "https://youtu.be/abc123",
	})
	if err != nil {
		t.Fatalf("convert sync: %v", err)
	}
	if outcome.Title != "Talk Notes" {
		t.Fatalf("title = %q", outcome.Title)
	}
	if outcome.Kind != detect.KindMarkdown {
		t.Fatalf("kind = %s", outcome.Kind)
	}
	data, err := os.ReadFile(outcome.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "A tidy rendition of the talk.") {
		t.Fatalf("output missing rewritten text:\n%s", data)
	}
}

func TestVideoFallsBackToGenericConversion(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config, deps *workflow.Deps) {
		cfg.Video.Enabled = true
		deps.Subtitles = &fakeSubtitles{err: services.Wrap(services.ErrNotFound, "subtitles", "fetch", "no tracks", nil)}
	})

	outcome, err := fx.manager.ConvertSync(context.Background(), workflow.Request{
		Content: "https://youtu.be/abc123",
	})
	if err != nil {
		t.Fatalf("convert sync: %v", err)
	}
	// The converter has no fetcher, so the generic path degrades but still
	// produces a document.
	if outcome.Kind != detect.KindURL {
		t.Fatalf("kind = %s", outcome.Kind)
	}
	fx.notifier.mu.Lock()
	fallbacks := len(fx.notifier.fallbacks)
	fx.notifier.mu.Unlock()
	if fallbacks != 1 {
		t.Fatalf("expected one fallback notification, got %d", fallbacks)
	}
}

func TestRawTranscriptUsedWhenRewriterFails(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config, deps *workflow.Deps) {
		cfg.Video.Enabled = true
		cfg.LLM.Enabled = true
		deps.Subtitles = &fakeSubtitles{transcript: "raw transcript words"}
		deps.Rewriter = &fakeRewriter{err: services.Wrap(services.ErrRetriesExhausted, "llm", "rewrite", "gave up", nil)}
	})

	outcome, err := fx.manager.ConvertSync(context.Background(), workflow.Request{
		Content: "https://www.youtube.com/watch?v=abc",
	})
	if err != nil {
		t.Fatalf("convert sync: %v", err)
	}
	if outcome.Kind != detect.KindPlain {
		t.Fatalf("kind = %s", outcome.Kind)
	}
	data, err := os.ReadFile(outcome.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "raw transcript words") {
		t.Fatalf("output missing raw transcript:\n%s", data)
	}
}

func TestConvertSyncTimeoutOrphansJob(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config, _ *workflow.Deps) {
		cfg.Workflow.SyncTimeoutSeconds = 1
	})

	gate := make(chan struct{})
	_, err := fx.manager.ConvertSync(context.Background(), workflow.Request{
		Content: "slow job",
		Edit: func(ctx context.Context, content string) (string, bool) {
			select {
			case <-gate:
			case <-ctx.Done():
			}
			return content, true
		},
	})
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	jobs := fx.manager.Jobs()
	if len(jobs) != 1 {
		t.Fatalf("jobs = %+v", jobs)
	}
	close(gate)
	outcome, err := fx.manager.Wait(context.Background(), jobs[0].ID)
	if err != nil {
		t.Fatalf("orphaned job must still finish: %v", err)
	}
	if _, err := os.Stat(outcome.OutputPath); err != nil {
		t.Fatalf("orphaned job output missing: %v", err)
	}
}

func TestImageShortCircuit(t *testing.T) {
	fx := newFixture(t, nil)

	outcome, err := fx.manager.ConvertSync(context.Background(), workflow.Request{
		ImageRef:       "captures/shot.png",
		SuggestedTitle: "Screen Capture",
	})
	if err != nil {
		t.Fatalf("convert sync: %v", err)
	}
	if outcome.ChapterCount != 1 {
		t.Fatalf("chapters = %d", outcome.ChapterCount)
	}
	data, err := os.ReadFile(outcome.OutputPath)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), `<img src="captures/shot.png"`) {
		t.Fatalf("output missing image reference:\n%s", data)
	}
}

func TestImageJobBypassesEdit(t *testing.T) {
	fx := newFixture(t, nil)

	var editCalls atomic.Int32
	outcome, err := fx.manager.ConvertSync(context.Background(), workflow.Request{
		ImageRef:       "captures/shot.png",
		SuggestedTitle: "Screen Capture",
		Edit: func(ctx context.Context, content string) (string, bool) {
			editCalls.Add(1)
			return "", false
		},
	})
	if err != nil {
		t.Fatalf("image job must succeed without the edit stage: %v", err)
	}
	if editCalls.Load() != 0 {
		t.Fatalf("edit stage ran %d times for an image-typed item", editCalls.Load())
	}
	if _, err := os.Stat(outcome.OutputPath); err != nil {
		t.Fatalf("image document missing: %v", err)
	}
}

func TestSubmitRejectsEmptyContent(t *testing.T) {
	fx := newFixture(t, nil)
	if _, err := fx.manager.Submit(workflow.Request{Content: "   "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCancelQueuedJobNeverRuns(t *testing.T) {
	fx := newFixture(t, func(cfg *config.Config, _ *workflow.Deps) {
		cfg.Workflow.MaxConcurrent = 1
	})

	gate := make(chan struct{})
	blocker, err := fx.manager.Submit(workflow.Request{
		Content: "occupies the slot",
		Edit: func(ctx context.Context, content string) (string, bool) {
			select {
			case <-gate:
			case <-ctx.Done():
			}
			return content, true
		},
	})
	if err != nil {
		t.Fatalf("submit blocker: %v", err)
	}

	queued, err := fx.manager.Submit(workflow.Request{Content: "never admitted"})
	if err != nil {
		t.Fatalf("submit queued: %v", err)
	}
	waitFor(t, "job to queue", func() bool { return fx.manager.Snapshot().Queued == 1 })

	if !fx.manager.Cancel(queued) {
		t.Fatal("cancel returned false")
	}
	if _, err := fx.manager.Wait(context.Background(), queued); err == nil {
		t.Fatal("cancelled job must not succeed")
	}
	job, _ := fx.manager.Job(queued)
	if job.State != workflow.StateCancelled {
		t.Fatalf("state = %s", job.State)
	}

	close(gate)
	if _, err := fx.manager.Wait(context.Background(), blocker); err != nil {
		t.Fatalf("blocker: %v", err)
	}
}
