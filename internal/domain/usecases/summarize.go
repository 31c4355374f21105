package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

const (
	// DefaultConcurrency bounds parallel calls to the summarization model.
	DefaultConcurrency = 3
	// DefaultChunkTimeout bounds a single chunk summarization.
	DefaultChunkTimeout = 30 * time.Second
)

// SummarizeConfig configures the aggregator.
type SummarizeConfig struct {
	Concurrency  int
	ChunkTimeout time.Duration
	Params       entities.SummaryParams
}

// SummarizeUseCase summarizes chunks concurrently and joins the survivors in
// chunk order.
type SummarizeUseCase struct {
	model  ports.Summarizer
	cfg    SummarizeConfig
	logger *zap.Logger
}

// NewSummarizeUseCase creates a SummarizeUseCase with injected dependencies.
func NewSummarizeUseCase(model ports.Summarizer, cfg SummarizeConfig, logger *zap.Logger) *SummarizeUseCase {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.ChunkTimeout <= 0 {
		cfg.ChunkTimeout = DefaultChunkTimeout
	}
	if cfg.Params == (entities.SummaryParams{}) {
		cfg.Params = entities.DefaultSummaryParams()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SummarizeUseCase{
		model:  model,
		cfg:    cfg,
		logger: logger,
	}
}

// Summarize joins the summaries of the given chunk texts.
func (uc *SummarizeUseCase) Summarize(ctx context.Context, chunks []string) (string, error) {
	indexed := make([]entities.Chunk, len(chunks))
	for i, c := range chunks {
		indexed[i] = entities.Chunk{Index: i, Content: c}
	}
	summary, err := uc.Aggregate(ctx, indexed)
	if err != nil {
		return "", err
	}
	return summary.Text, nil
}

// Aggregate summarizes every chunk and returns the ordered result.
// It fails with *EmptyResultError when there are no chunks or every chunk
// failed, and with the context error when ctx ends before fan-in completes.
func (uc *SummarizeUseCase) Aggregate(ctx context.Context, chunks []entities.Chunk) (*entities.Summary, error) {
	if len(chunks) == 0 {
		return nil, &EmptyResultError{Kind: NoChunks}
	}

	fragments := make([]entities.SummaryFragment, len(chunks))

	var g errgroup.Group
	g.SetLimit(uc.cfg.Concurrency)

	for i, chunk := range chunks {
		fragments[i].Index = chunk.Index
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				fragments[i].Err = err
				return nil
			}
			text, err := uc.summarizeChunk(ctx, chunk.Content)
			if err == nil && text == "" {
				err = eris.New("empty summary")
			}
			if err != nil {
				uc.logger.Warn("chunk summarization failed",
					zap.Int("chunk", chunk.Index),
					zap.Int("chunk_len", chunk.Len()),
					zap.Error(err),
				)
				fragments[i].Err = err
				return nil // Per-chunk failures never fail the group.
			}
			fragments[i].Text = text
			return nil
		})
	}

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "summarize cancelled")
	}

	summary := &entities.Summary{Fragments: fragments}
	parts := make([]string, 0, len(fragments))
	var last error
	for _, f := range fragments {
		if f.Failed() {
			summary.Failed++
			last = f.Err
			continue
		}
		summary.Succeeded++
		parts = append(parts, f.Text)
	}

	if summary.Succeeded == 0 {
		return nil, &EmptyResultError{Kind: AllFailed, Chunks: len(chunks), Last: last}
	}

	summary.Text = strings.Join(parts, " ")

	uc.logger.Debug("summary aggregated",
		zap.Int("chunks", len(chunks)),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)

	return summary, nil
}

// summarizeChunk invokes the model under the per-chunk timeout.
func (uc *SummarizeUseCase) summarizeChunk(ctx context.Context, text string) (string, error) {
	chunkCtx, cancel := context.WithTimeout(ctx, uc.cfg.ChunkTimeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		out, err := uc.model.Summarize(chunkCtx, text, uc.cfg.Params)
		done <- result{text: strings.TrimSpace(out), err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-chunkCtx.Done():
		return "", eris.Wrap(chunkCtx.Err(), "chunk summarization timed out")
	}
}
