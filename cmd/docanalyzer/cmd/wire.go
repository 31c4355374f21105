package cmd

import (
	"context"
	"errors"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/cache"
	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/inference"
	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/llm"
	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/loader"
	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/metrics"
	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/parser"
	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/tokenizer"
	"github.com/0xcro3dile/docanalyzer-go/internal/config"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/usecases"
)

const megabyte = 1 << 20

// app holds the shared model handles and the services built on them.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	registry *parser.Registry
	loader   *loader.FileLoader
	docs     *usecases.DocumentService
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	health   map[string]func(ctx context.Context) bool
	closers  []io.Closer
}

// needs selects the model handles a command uses.
type needs struct {
	qa bool
}

// buildApp wires the services. The QA tokenizer and span predictor are only
// loaded when n.qa is set, so summarize-only commands run without a vocab.
func buildApp(cfg *config.Config, logger *zap.Logger, n needs) (*app, error) {
	a := &app{
		cfg:    cfg,
		logger: logger,
		health: make(map[string]func(ctx context.Context) bool),
	}

	a.registry = parser.NewDefaultRegistry(parser.Options{
		PDFBackend:     cfg.Parser.PDFBackend,
		ServiceURL:     cfg.Parser.ServiceURL,
		ServiceTimeout: cfg.Parser.ServiceTimeout,
		TempDir:        cfg.Parser.TempDir,
	}, logger.Named("parser"))
	a.loader = loader.NewFileLoader(a.registry.SupportedFormats(), cfg.Parser.MaxFileMB*megabyte)

	var (
		tok     *tokenizer.WordPiece
		encoder inference.PairEncoder
	)
	if n.qa {
		var err error
		tok, err = tokenizer.NewWordPiece(cfg.Tokenizer.VocabPath, cfg.Tokenizer.Lowercase)
		if err != nil {
			return nil, eris.Wrap(err, "loading tokenizer")
		}
		encoder = tok
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.New(reg)
	a.gatherer = reg

	client := inference.NewClient(encoder,
		inference.WithBaseURL(cfg.Model.ServiceURL),
		inference.WithTimeout(cfg.Model.Timeout),
		inference.WithRateLimit(cfg.Model.RateLimit, cfg.Model.RateBurst),
		inference.WithLogger(logger.Named("inference")),
	)
	a.health["inference"] = client.IsHealthy

	var summarizer ports.Summarizer = client
	if cfg.Model.Backend == "ollama" {
		summarizer = llm.NewOllamaSummarizer(cfg.Model.OllamaURL, cfg.Model.OllamaModel, cfg.Model.Timeout, logger.Named("ollama"))
	}

	var answerer *usecases.AnswerUseCase
	if n.qa {
		answerer = usecases.NewAnswerUseCase(
			metrics.InstrumentSpanPredictor(client, a.metrics),
			tok,
			cfg.QA.MaxTokens,
			logger.Named("answer"),
		)
	}

	summaryCache, err := a.buildCache()
	if err != nil {
		return nil, err
	}

	a.docs = usecases.NewDocumentService(
		a.registry,
		usecases.NewSummarizeUseCase(
			metrics.InstrumentSummarizer(summarizer, a.metrics),
			usecases.SummarizeConfig{
				Concurrency:  cfg.Summarize.Concurrency,
				ChunkTimeout: cfg.Summarize.ChunkTimeout,
				Params:       cfg.Summarize.Params,
			},
			logger.Named("summarize"),
		),
		answerer,
		summaryCache,
		usecases.DocumentConfig{
			ChunkSize: cfg.Summarize.ChunkSize,
			CacheTTL:  cfg.Cache.TTL,
		},
		logger.Named("documents"),
	)

	logger.Info("docanalyzer configured",
		zap.String("model_backend", cfg.Model.Backend),
		zap.String("summary_model", cfg.Model.SummaryModel),
		zap.String("qa_model", cfg.Model.QAModel),
		zap.String("pdf_backend", cfg.Parser.PDFBackend),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("qa", n.qa),
		zap.Strings("formats", a.registry.SupportedFormats()),
	)
	return a, nil
}

// buildCache returns a nil interface for the "none" backend.
func (a *app) buildCache() (ports.SummaryCache, error) {
	cfg := a.cfg.Cache
	switch cfg.Backend {
	case "memory":
		c := cache.NewMemoryCache(cfg.TTL, cfg.Capacity, a.logger.Named("cache"))
		a.closers = append(a.closers, c)
		return c, nil
	case "sqlite":
		c, err := cache.NewSQLiteCache(cfg.Path, cfg.TTL, a.logger.Named("cache"))
		if err != nil {
			return nil, eris.Wrap(err, "opening summary cache")
		}
		a.closers = append(a.closers, c)
		return c, nil
	default:
		return nil, nil
	}
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	_ = a.logger.Sync()
	return errors.Join(errs...)
}

// setup loads configuration and builds the app.
func setup(n needs) (*app, error) {
	cfg, logger, err := loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := buildApp(cfg, logger, n)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		return nil, err
	}
	return a, nil
}
