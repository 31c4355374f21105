package usecases

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyResult is matched by every EmptyResultError.
	ErrEmptyResult = errors.New("summarization produced no usable fragments")

	// ErrEmptyDocument is returned when a document normalizes to nothing.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrEmptyQuestion is returned by boundary validation for blank questions.
	ErrEmptyQuestion = errors.New("question is required")

	// ErrContextChoice is returned when a QA request carries both or neither
	// of context_file and context_text.
	ErrContextChoice = errors.New("exactly one of context_file or context_text is required")
)

// EmptyResultKind distinguishes why a summarization produced nothing.
type EmptyResultKind int

const (
	// NoChunks means there was nothing to summarize.
	NoChunks EmptyResultKind = iota
	// AllFailed means every chunk summarization failed.
	AllFailed
)

func (k EmptyResultKind) String() string {
	if k == NoChunks {
		return "no_chunks"
	}
	return "all_failed"
}

// EmptyResultError is returned by the aggregator when no fragment survived.
type EmptyResultError struct {
	Kind   EmptyResultKind
	Chunks int
	Last   error // Last per-chunk error, nil for NoChunks
}

func (e *EmptyResultError) Error() string {
	if e.Kind == NoChunks {
		return "summarize: no chunks to summarize"
	}
	if e.Last != nil {
		return fmt.Sprintf("summarize: all %d chunks failed: %v", e.Chunks, e.Last)
	}
	return fmt.Sprintf("summarize: all %d chunks failed", e.Chunks)
}

// Is lets errors.Is(err, ErrEmptyResult) match.
func (e *EmptyResultError) Is(target error) bool {
	return target == ErrEmptyResult
}

// Unwrap exposes the last chunk error.
func (e *EmptyResultError) Unwrap() error {
	return e.Last
}
