// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import (
	"time"
	"unicode/utf8"
)

// Document is a normalized document ready for chunking or question answering.
// Content is immutable once produced by the normalizer.
type Document struct {
	ID        string // Content hash of the raw bytes
	Name      string
	Extension string // Lower-case, with leading dot
	Content   string
	CreatedAt time.Time
}

// SourceFile is a raw document read from disk.
type SourceFile struct {
	Name    string
	Path    string
	Data    []byte
	ModTime time.Time
}

// Chunk is a contiguous run of words carved from a document.
type Chunk struct {
	Index   int // Ordinal position in the document
	Content string
}

// Len returns the serialized length of the chunk in runes.
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Content)
}

// SummaryParams are the decoding controls passed unchanged to every chunk
// summarization.
type SummaryParams struct {
	MaxLength     int     `mapstructure:"max_length" json:"max_length" validate:"gt=0"`
	MinLength     int     `mapstructure:"min_length" json:"min_length" validate:"gte=0,ltefield=MaxLength"`
	NumBeams      int     `mapstructure:"num_beams" json:"num_beams" validate:"gte=1"`
	LengthPenalty float64 `mapstructure:"length_penalty" json:"length_penalty"`
	EarlyStopping bool    `mapstructure:"early_stopping" json:"early_stopping"`
}

// DefaultSummaryParams mirrors the bart-large-cnn generation settings.
func DefaultSummaryParams() SummaryParams {
	return SummaryParams{
		MaxLength:     150,
		MinLength:     40,
		NumBeams:      4,
		LengthPenalty: 2.0,
		EarlyStopping: true,
	}
}

// SummaryFragment is the model output for one chunk.
type SummaryFragment struct {
	Index int
	Text  string
	Err   error
}

// Failed reports whether the fragment must be excluded from the summary.
func (f SummaryFragment) Failed() bool {
	return f.Err != nil || f.Text == ""
}

// Summary is the aggregated result of a document summarization.
type Summary struct {
	Text      string
	Fragments []SummaryFragment // Ordered by chunk index
	Succeeded int
	Failed    int
}

// QARequest is a question with the context it should be answered from.
type QARequest struct {
	Question string
	Context  string
}

// SpanPrediction is the raw output of a span-prediction model over the
// jointly tokenized (question, context) sequence.
type SpanPrediction struct {
	StartLogits []float32
	EndLogits   []float32
	TokenIDs    []int
	// SequenceIDs marks the segment of each token: SegmentSpecial,
	// SegmentQuestion or SegmentContext. Nil when the predictor cannot tell.
	SequenceIDs []int
}

// Token segments.
const (
	SegmentSpecial  = -1
	SegmentQuestion = 0
	SegmentContext  = 1
)

// InContext reports whether token i belongs to the context segment.
// Without segment information every position is accepted.
func (p *SpanPrediction) InContext(i int) bool {
	if p.SequenceIDs == nil {
		return true
	}
	if i < 0 || i >= len(p.SequenceIDs) {
		return false
	}
	return p.SequenceIDs[i] == SegmentContext
}

// AnswerSpan is an inclusive token range over the tokenized pair.
type AnswerSpan struct {
	Start int
	End   int
}

// AnswerOutcome tags an AnswerResult.
type AnswerOutcome int

const (
	AnswerFound AnswerOutcome = iota
	AnswerNotFound
	AnswerError
)

func (o AnswerOutcome) String() string {
	switch o {
	case AnswerFound:
		return "found"
	case AnswerNotFound:
		return "not_found"
	case AnswerError:
		return "error"
	default:
		return "unknown"
	}
}

// Sentinel answers.
const (
	NoAnswer          = "Unable to find answer."
	ErrorAnswer       = "Error processing question."
	CouldNotFindReply = "Could not find an answer to the question."
)

// AnswerResult is the tagged outcome of answering one question.
type AnswerResult struct {
	Outcome    AnswerOutcome
	Answer     string
	Confidence float64
	Span       AnswerSpan
	Reason     string // Why no answer was produced
}

// Found reports whether the result carries a usable answer.
func (r AnswerResult) Found() bool {
	return r.Outcome == AnswerFound
}

// SummaryResponse is the summarization payload returned to callers.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// QAResponse is the question answering payload returned to callers.
type QAResponse struct {
	Answer      string  `json:"answer"`
	Confidence  float64 `json:"confidence"`
	ContextUsed string  `json:"context_used"`
}

// ErrorResponse is returned instead of a payload when a request is rejected.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
