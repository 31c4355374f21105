// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

// ErrUnsupportedFormat is returned by parsers for extensions they do not handle.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Summarizer is the summarization capability of the model server.
// Implementations must be safe for concurrent use.
type Summarizer interface {
	// Summarize condenses text using the given decoding controls.
	Summarize(ctx context.Context, text string, params entities.SummaryParams) (string, error)
}

// SpanPredictor is the extractive question answering capability.
type SpanPredictor interface {
	// PredictSpan jointly tokenizes question and context (truncating the
	// context to fit maxTokens) and returns per-token start/end logits.
	PredictSpan(ctx context.Context, question, context string, maxTokens int) (*entities.SpanPrediction, error)
}

// TokenDecoder turns token ids back into text.
type TokenDecoder interface {
	// Decode renders ids as text with special tokens removed.
	Decode(ids []int) (string, error)
}

// DocumentParser extracts text from binary document formats (PDF, DOCX, etc).
type DocumentParser interface {
	// Parse extracts text content from document bytes.
	Parse(ctx context.Context, data []byte, filename string) (string, error)

	// SupportedFormats returns formats this parser handles (e.g., "pdf", "docx").
	SupportedFormats() []string
}

// SummaryCache stores final summaries keyed by document content hash.
type SummaryCache interface {
	// Get returns the cached summary and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores a summary. A zero ttl uses the cache default.
	Set(ctx context.Context, key, summary string, ttl time.Duration) error

	// Delete removes a cached summary.
	Delete(ctx context.Context, key string) error
}

// DocumentLoader reads raw documents from local storage.
type DocumentLoader interface {
	// Load reads the document at path.
	Load(ctx context.Context, path string) (*entities.SourceFile, error)

	// Supports reports whether path has an accepted extension.
	Supports(path string) bool

	// Scan lists loadable documents directly under dir.
	Scan(ctx context.Context, dir string) ([]string, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
