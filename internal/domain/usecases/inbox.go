package usecases

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

const (
	// SummarySuffix is appended to a document's stem to name its summary file.
	SummarySuffix = ".summary.txt"
	// DefaultDebounce collapses bursts of write events for one file.
	DefaultDebounce = 500 * time.Millisecond
)

// InboxConfig configures the InboxUseCase.
type InboxConfig struct {
	InboxDir  string
	OutputDir string
	Debounce  time.Duration
}

// InboxUseCase summarizes documents dropped into a directory and writes each
// summary next to the others in the output directory.
type InboxUseCase struct {
	watcher ports.FileWatcher
	loader  ports.DocumentLoader
	docs    *DocumentService
	cfg     InboxConfig
	logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewInboxUseCase creates an InboxUseCase with injected dependencies.
func NewInboxUseCase(watcher ports.FileWatcher, loader ports.DocumentLoader, docs *DocumentService, cfg InboxConfig, logger *zap.Logger) *InboxUseCase {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InboxUseCase{
		watcher: watcher,
		loader:  loader,
		docs:    docs,
		cfg:     cfg,
		logger:  logger,
		pending: make(map[string]*time.Timer),
	}
}

// Run catches up on documents already in the inbox, then processes new and
// modified ones until ctx is done.
func (uc *InboxUseCase) Run(ctx context.Context) error {
	for _, dir := range []string{uc.cfg.InboxDir, uc.cfg.OutputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return eris.Wrapf(err, "creating %s", dir)
		}
	}

	existing, err := uc.loader.Scan(ctx, uc.cfg.InboxDir)
	if err != nil {
		return err
	}
	for _, path := range existing {
		if !uc.accepts(path) || !uc.stale(path) {
			continue
		}
		if _, err := uc.Process(ctx, path); err != nil {
			uc.logger.Warn("inbox document failed", zap.String("path", path), zap.Error(err))
		}
	}

	events, err := uc.watcher.Watch(ctx, uc.cfg.InboxDir)
	if err != nil {
		return err
	}

	uc.logger.Info("watching inbox",
		zap.String("inbox", uc.cfg.InboxDir),
		zap.String("output", uc.cfg.OutputDir),
		zap.Int("caught_up", len(existing)),
	)

	ready := make(chan string, 64)
	defer uc.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev.Operation {
			case ports.FileCreated, ports.FileModified:
				uc.schedule(ctx, ev.Path, ready)
			case ports.FileDeleted:
				uc.logger.Debug("inbox document removed", zap.String("path", ev.Path))
			}
		case path := <-ready:
			uc.mu.Lock()
			delete(uc.pending, path)
			uc.mu.Unlock()

			if !uc.stale(path) {
				uc.logger.Debug("inbox document already summarized", zap.String("path", path))
				continue
			}
			if _, err := uc.Process(ctx, path); err != nil {
				uc.logger.Warn("inbox document failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
}

// Process summarizes one document and writes its summary file, returning the
// summary path.
func (uc *InboxUseCase) Process(ctx context.Context, path string) (string, error) {
	file, err := uc.loader.Load(ctx, path)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := uc.docs.SummarizeDocument(ctx, file.Name, file.Data)
	if err != nil {
		return "", err
	}

	out := uc.SummaryPath(path)
	if err := writeAtomic(out, []byte(resp.Summary+"\n")); err != nil {
		return "", err
	}

	uc.logger.Info("summary written",
		zap.String("document", file.Name),
		zap.String("output", out),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

// SummaryPath returns where the summary for the document at path is written.
func (uc *InboxUseCase) SummaryPath(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(uc.cfg.OutputDir, stem+SummarySuffix)
}

// stale reports whether the document has no summary or changed after it.
func (uc *InboxUseCase) stale(path string) bool {
	src, err := os.Stat(path)
	if err != nil {
		return false
	}
	dst, err := os.Stat(uc.SummaryPath(path))
	if err != nil {
		return true
	}
	return src.ModTime().After(dst.ModTime())
}

// accepts reports whether path is an inbox document. Summary files are never
// inputs, so an output directory inside the inbox does not feed back.
func (uc *InboxUseCase) accepts(path string) bool {
	return uc.loader.Supports(path) && !strings.HasSuffix(filepath.Base(path), SummarySuffix)
}

func (uc *InboxUseCase) schedule(ctx context.Context, path string, ready chan<- string) {
	if !uc.accepts(path) {
		return
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	if t, ok := uc.pending[path]; ok {
		t.Reset(uc.cfg.Debounce)
		return
	}
	uc.pending[path] = time.AfterFunc(uc.cfg.Debounce, func() {
		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (uc *InboxUseCase) cancelPending() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for path, t := range uc.pending {
		t.Stop()
		delete(uc.pending, path)
	}
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".summary-*")
	if err != nil {
		return eris.Wrap(err, "creating temp summary")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return eris.Wrap(err, "writing temp summary")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "closing temp summary")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "renaming summary to %s", path)
	}
	return nil
}
