package usecases

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

// ContextExcerptLength is how much of the context is echoed back with an answer.
const ContextExcerptLength = 200

// DocumentConfig configures the DocumentService.
type DocumentConfig struct {
	ChunkSize int
	CacheTTL  time.Duration
}

// DocumentService wires parsing, normalization, chunking, summarization and
// question answering for whole documents.
type DocumentService struct {
	parser     ports.DocumentParser
	summarizer *SummarizeUseCase
	answerer   *AnswerUseCase
	cache      ports.SummaryCache
	cfg        DocumentConfig
	sf         singleflight.Group
	logger     *zap.Logger
}

// NewDocumentService creates a DocumentService. cache may be nil, and so may
// answerer when only summaries are needed.
func NewDocumentService(
	parser ports.DocumentParser,
	summarizer *SummarizeUseCase,
	answerer *AnswerUseCase,
	cache ports.SummaryCache,
	cfg DocumentConfig,
	logger *zap.Logger,
) *DocumentService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		parser:     parser,
		summarizer: summarizer,
		answerer:   answerer,
		cache:      cache,
		cfg:        cfg,
		logger:     logger,
	}
}

// Prepare parses and normalizes raw document bytes.
func (s *DocumentService) Prepare(ctx context.Context, filename string, data []byte) (*entities.Document, error) {
	raw, err := s.parser.Parse(ctx, data, filename)
	if err != nil {
		return nil, eris.Wrapf(err, "parsing %s", filename)
	}

	content := Normalize(raw)
	if content == "" {
		return nil, ErrEmptyDocument
	}

	return &entities.Document{
		ID:        ContentKey(data),
		Name:      filepath.Base(filename),
		Extension: strings.ToLower(filepath.Ext(filename)),
		Content:   content,
		CreatedAt: time.Now(),
	}, nil
}

// SummarizeDocument parses, normalizes, chunks and summarizes a document.
// Results are cached by content hash; identical concurrent requests share
// one run.
func (s *DocumentService) SummarizeDocument(ctx context.Context, filename string, data []byte) (*entities.SummaryResponse, error) {
	doc, err := s.Prepare(ctx, filename, data)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("summary:%s:%d", doc.ID, s.cfg.ChunkSize)

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("summary cache lookup failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			s.logger.Debug("summary cache hit", zap.String("key", key), zap.String("document", doc.Name))
			return &entities.SummaryResponse{Summary: cached}, nil
		}
	}

	// The shared run is detached from any one caller so a caller that gives
	// up does not fail the others. It caches its own result.
	flight := s.sf.DoChan(key, func() (any, error) {
		runCtx := context.WithoutCancel(ctx)
		summary, err := s.summarize(runCtx, doc)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(runCtx, key, summary.Text, s.cfg.CacheTTL); err != nil {
				s.logger.Warn("summary cache store failed", zap.String("key", key), zap.Error(err))
			}
		}
		return summary, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, eris.Wrap(ctx.Err(), "summarize cancelled")
	case res = <-flight:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		s.logger.Debug("summary shared with concurrent request", zap.String("key", key))
	}

	return &entities.SummaryResponse{Summary: res.Val.(*entities.Summary).Text}, nil
}

func (s *DocumentService) summarize(ctx context.Context, doc *entities.Document) (*entities.Summary, error) {
	chunks := ChunkDocument(doc, s.cfg.ChunkSize)

	s.logger.Info("summarizing document",
		zap.String("document", doc.Name),
		zap.String("id", doc.ID),
		zap.Int("length", utf8.RuneCountInString(doc.Content)),
		zap.Int("chunks", len(chunks)),
	)

	summary, err := s.summarizer.Aggregate(ctx, chunks)
	if err != nil {
		return nil, err
	}

	if summary.Failed > 0 {
		s.logger.Warn("summary built from partial results",
			zap.String("document", doc.Name),
			zap.Int("failed", summary.Failed),
			zap.Int("succeeded", summary.Succeeded),
		)
	}
	return summary, nil
}

// AnswerFromText answers a question over caller-supplied text. Direct text is
// not normalized.
func (s *DocumentService) AnswerFromText(ctx context.Context, question, text string) entities.QAResponse {
	result := s.answer(ctx, question, text)
	s.logAnswer(result)
	return PackageAnswer(result, text)
}

// AnswerFromDocument answers a question over an uploaded document's text.
func (s *DocumentService) AnswerFromDocument(ctx context.Context, question, filename string, data []byte) (entities.QAResponse, error) {
	doc, err := s.Prepare(ctx, filename, data)
	if err != nil {
		return entities.QAResponse{}, err
	}
	result := s.answer(ctx, question, doc.Content)
	s.logAnswer(result)
	return PackageAnswer(result, doc.Content), nil
}

func (s *DocumentService) answer(ctx context.Context, question, text string) entities.AnswerResult {
	if s.answerer == nil {
		return errored("question answering is not configured")
	}
	return s.answerer.AnswerQuestion(ctx, question, text)
}

func (s *DocumentService) logAnswer(result entities.AnswerResult) {
	if result.Found() {
		s.logger.Debug("answer found",
			zap.Int("start", result.Span.Start),
			zap.Int("end", result.Span.End),
			zap.Float64("confidence", result.Confidence),
		)
		return
	}
	s.logger.Info("no answer",
		zap.Stringer("outcome", result.Outcome),
		zap.String("reason", result.Reason),
	)
}

// PackageAnswer builds the caller payload for an answer result.
func PackageAnswer(result entities.AnswerResult, context string) entities.QAResponse {
	if !result.Found() {
		return entities.QAResponse{
			Answer:      entities.CouldNotFindReply,
			Confidence:  0,
			ContextUsed: "",
		}
	}
	return entities.QAResponse{
		Answer:      result.Answer,
		Confidence:  result.Confidence,
		ContextUsed: Excerpt(context, ContextExcerptLength),
	}
}

// Excerpt returns the first n runes of text, with "..." appended when cut.
func Excerpt(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}

// ContentKey hashes raw document bytes for cache keys and document IDs.
func ContentKey(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}
