package usecases

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

// fakeWatcher implements ports.FileWatcher with a test-driven channel
type fakeWatcher struct {
	events   chan ports.FileEvent
	watching chan struct{} // closed once Watch is called
	once     sync.Once
}

func (w *fakeWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	w.once.Do(func() { close(w.watching) })
	return w.events, nil
}

func (w *fakeWatcher) Stop() error { return nil }

// osLoader implements ports.DocumentLoader over .txt files
type osLoader struct{}

func (osLoader) Load(ctx context.Context, path string) (*entities.SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &entities.SourceFile{Name: filepath.Base(path), Path: path, Data: data}, nil
}

func (osLoader) Supports(path string) bool { return strings.HasSuffix(path, ".txt") }

func (l osLoader) Scan(ctx context.Context, dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if l.Supports(e.Name()) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	return paths, nil
}

func newTestInbox(t *testing.T, model *fakeSummarizer) (*InboxUseCase, *fakeWatcher, InboxConfig) {
	t.Helper()
	root := t.TempDir()
	cfg := InboxConfig{
		InboxDir:  filepath.Join(root, "inbox"),
		OutputDir: filepath.Join(root, "out"),
		Debounce:  20 * time.Millisecond,
	}
	require.NoError(t, os.MkdirAll(cfg.InboxDir, 0755))

	logger := zaptest.NewLogger(t)
	docs := NewDocumentService(
		&fakeParser{},
		NewSummarizeUseCase(model, SummarizeConfig{}, logger),
		NewAnswerUseCase(&fakePredictor{}, &fakeDecoder{}, 0, logger),
		nil,
		DocumentConfig{},
		logger,
	)
	watcher := &fakeWatcher{
		events:   make(chan ports.FileEvent, 10),
		watching: make(chan struct{}),
	}
	return NewInboxUseCase(watcher, osLoader{}, docs, cfg, logger), watcher, cfg
}

func readSummary(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func TestInbox_CatchesUpThenWatches(t *testing.T) {
	model := &fakeSummarizer{}
	uc, watcher, cfg := newTestInbox(t, model)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.InboxDir, "old.txt"), []byte("already here"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uc.Run(ctx) }()

	oldSummary := filepath.Join(cfg.OutputDir, "old"+SummarySuffix)
	require.Eventually(t, func() bool { return readSummary(oldSummary) != "" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "S:already he\n", readSummary(oldSummary))

	newPath := filepath.Join(cfg.InboxDir, "new.txt")
	require.NoError(t, os.WriteFile(newPath, []byte("fresh document"), 0644))
	watcher.events <- ports.FileEvent{Path: newPath, Operation: ports.FileCreated}

	newSummary := filepath.Join(cfg.OutputDir, "new"+SummarySuffix)
	require.Eventually(t, func() bool { return readSummary(newSummary) != "" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "S:fresh docu\n", readSummary(newSummary))

	cancel()
	assert.NoError(t, <-done)
}

func TestInbox_DebouncesBursts(t *testing.T) {
	model := &fakeSummarizer{}
	uc, watcher, cfg := newTestInbox(t, model)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go uc.Run(ctx)
	<-watcher.watching

	path := filepath.Join(cfg.InboxDir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte("written in bursts"), 0644))
	for i := 0; i < 3; i++ {
		watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileModified}
	}

	out := filepath.Join(cfg.OutputDir, "doc"+SummarySuffix)
	require.Eventually(t, func() bool { return readSummary(out) != "" }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), model.calls.Load())
}

func TestInbox_EventAfterCatchUpIsSkipped(t *testing.T) {
	model := &fakeSummarizer{}
	uc, watcher, cfg := newTestInbox(t, model)

	path := filepath.Join(cfg.InboxDir, "early.txt")
	require.NoError(t, os.WriteFile(path, []byte("seen by the scan"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go uc.Run(ctx)
	<-watcher.watching

	// the scan already wrote the summary; a late create event must not redo it
	watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileCreated}
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, "S:seen by th\n", readSummary(uc.SummaryPath(path)))
	assert.Equal(t, int32(1), model.calls.Load())
}

func TestInbox_SharedDirectoryDoesNotFeedBack(t *testing.T) {
	model := &fakeSummarizer{}
	uc, watcher, cfg := newTestInbox(t, model)
	uc.cfg.OutputDir = cfg.InboxDir

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go uc.Run(ctx)
	<-watcher.watching

	path := filepath.Join(cfg.InboxDir, "memo.txt")
	require.NoError(t, os.WriteFile(path, []byte("same folder"), 0644))
	watcher.events <- ports.FileEvent{Path: path, Operation: ports.FileCreated}

	out := filepath.Join(cfg.InboxDir, "memo"+SummarySuffix)
	require.Eventually(t, func() bool { return readSummary(out) != "" }, 2*time.Second, 10*time.Millisecond)

	// the watcher reports the summary file it just wrote
	watcher.events <- ports.FileEvent{Path: out, Operation: ports.FileCreated}
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), model.calls.Load())
	_, err := os.Stat(filepath.Join(cfg.InboxDir, "memo.summary"+SummarySuffix))
	assert.True(t, os.IsNotExist(err))
}

func TestInbox_IgnoresUnsupported(t *testing.T) {
	model := &fakeSummarizer{}
	uc, watcher, cfg := newTestInbox(t, model)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go uc.Run(ctx)

	watcher.events <- ports.FileEvent{Path: filepath.Join(cfg.InboxDir, "image.png"), Operation: ports.FileCreated}
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), model.calls.Load())
}

func TestInbox_SkipsFreshSummaries(t *testing.T) {
	model := &fakeSummarizer{}
	uc, _, cfg := newTestInbox(t, model)

	path := filepath.Join(cfg.InboxDir, "done.txt")
	require.NoError(t, os.WriteFile(path, []byte("summarized before"), 0644))
	require.NoError(t, os.MkdirAll(cfg.OutputDir, 0755))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, past, past))
	require.NoError(t, os.WriteFile(uc.SummaryPath(path), []byte("old summary\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- uc.Run(ctx) }()
	time.Sleep(100 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, int32(0), model.calls.Load())
	assert.Equal(t, "old summary\n", readSummary(uc.SummaryPath(path)))
}

func TestInbox_SummaryPath(t *testing.T) {
	uc := NewInboxUseCase(nil, nil, nil, InboxConfig{OutputDir: "/out"}, nil)
	assert.Equal(t, filepath.Join("/out", "report"+SummarySuffix), uc.SummaryPath("/in/report.pdf"))
}
