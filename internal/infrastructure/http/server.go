// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic/decoder"
	"github.com/bytedance/sonic/encoder"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/metrics"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/usecases"
)

// DefaultMaxUploadBytes bounds a request body.
const DefaultMaxUploadBytes = 32 << 20

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Config configures the Server.
type Config struct {
	Addr           string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ShutdownGrace  time.Duration
}

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Server is the HTTP server for the summarization and QA API and UI.
type Server struct {
	docs     *usecases.DocumentService
	formats  []string
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	checks   map[string]HealthCheck
	cfg      Config
	logger   *zap.Logger
}

// NewServer creates a new HTTP server. m and gatherer may be nil, in which
// case requests are not counted and /metrics is not served.
func NewServer(
	docs *usecases.DocumentService,
	formats []string,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	cfg Config,
	logger *zap.Logger,
) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Minute
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		docs:     docs,
		formats:  formats,
		metrics:  m,
		gatherer: gatherer,
		checks:   make(map[string]HealthCheck),
		cfg:      cfg,
		logger:   logger,
	}
}

// AddHealthCheck registers a dependency check reported by /api/health.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// UI
	mux.HandleFunc("GET /{$}", s.handleIndex)

	// API
	mux.HandleFunc("POST /api/summarize", s.handleSummarize)
	mux.HandleFunc("POST /api/qa", s.handleQA)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return corsMiddleware(s.requestMiddleware(mux))
}

// Start runs the HTTP server until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout, // Long documents take minutes
	}

	s.logger.Info("docanalyzer server starting", zap.String("addr", s.cfg.Addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// handleSummarize summarizes an uploaded multipart `file`.
func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeFormError(w, err)
		return
	}

	name, data, ok, err := readFormFile(r, "file")
	if err != nil {
		s.writeFormError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusBadRequest, "missing_file", "file is required")
		return
	}

	resp, err := s.docs.SummarizeDocument(r.Context(), name, data)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type qaRequest struct {
	Question    string `json:"question"`
	ContextText string `json:"context_text"`
}

// handleQA answers a question over either an uploaded context_file or
// inline context_text. JSON bodies can only carry context_text.
func (s *Server) handleQA(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var (
		req      qaRequest
		fileName string
		fileData []byte
		hasFile  bool
	)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := decoder.NewStreamDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json", "invalid JSON body")
			return
		}
	} else {
		err := r.ParseMultipartForm(s.cfg.MaxUploadBytes)
		if errors.Is(err, http.ErrNotMultipart) {
			err = r.ParseForm()
		}
		if err != nil {
			s.writeFormError(w, err)
			return
		}
		req.Question = r.FormValue("question")
		req.ContextText = r.FormValue("context_text")

		if r.MultipartForm != nil {
			fileName, fileData, hasFile, err = readFormFile(r, "context_file")
			if err != nil {
				s.writeFormError(w, err)
				return
			}
		}
	}

	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "empty_question", usecases.ErrEmptyQuestion.Error())
		return
	}
	hasText := strings.TrimSpace(req.ContextText) != ""
	if hasFile == hasText {
		writeError(w, http.StatusBadRequest, "context_choice", usecases.ErrContextChoice.Error())
		return
	}

	if hasText {
		writeJSON(w, http.StatusOK, s.docs.AnswerFromText(r.Context(), req.Question, req.ContextText))
		return
	}

	resp, err := s.docs.AnswerFromDocument(r.Context(), req.Question, fileName, fileData)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type healthResponse struct {
	Status  string          `json:"status"`
	Formats []string        `json:"formats"`
	Checks  map[string]bool `json:"checks,omitempty"`
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Formats: s.formats}
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]bool, len(s.checks))
		for name, check := range s.checks {
			healthy := check(r.Context())
			resp.Checks[name] = healthy
			if !healthy {
				resp.Status = "degraded"
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// readFormFile reads the named multipart file. ok is false when the field is
// absent.
func readFormFile(r *http.Request, field string) (name string, data []byte, ok bool, err error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil, false, nil
	}
	if err != nil {
		return "", nil, false, err
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return "", nil, false, err
	}
	return header.Filename, data, true, nil
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large",
			"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
		return
	}
	writeError(w, http.StatusBadRequest, "invalid_form", "invalid form body")
}

// writeDomainError maps pipeline errors onto status codes and never exposes
// internal error text for server-side failures.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", w.Header().Get(RequestIDHeader)),
			zap.Error(err),
		)
	}
	writeError(w, status, code, msg)
}

func classify(err error) (status int, code, msg string) {
	var empty *usecases.EmptyResultError
	switch {
	case errors.Is(err, ports.ErrUnsupportedFormat):
		return http.StatusBadRequest, "unsupported_format", ports.ErrUnsupportedFormat.Error()
	case errors.Is(err, usecases.ErrEmptyDocument):
		return http.StatusBadRequest, "empty_document", usecases.ErrEmptyDocument.Error()
	case errors.As(err, &empty) && empty.Kind == usecases.NoChunks:
		return http.StatusBadRequest, "empty_document", usecases.ErrEmptyDocument.Error()
	case errors.As(err, &empty):
		return http.StatusUnprocessableEntity, "all_chunks_failed", "every chunk failed to summarize"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "request timed out"
	default:
		return http.StatusInternalServerError, "internal", "internal error"
	}
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = encoder.NewStreamEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestMiddleware assigns a request id, logs the request and counts it.
func (s *Server) requestMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, strconv.Itoa(rec.status))
		}

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
