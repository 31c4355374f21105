package usecases

import (
	"strings"
	"unicode/utf8"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

// DefaultChunkSize is the default chunk bound in characters.
const DefaultChunkSize = 1000

// Chunk splits text into whitespace-delimited word runs whose serialized
// length (words plus single separating spaces) stays within maxChunkSize.
// A word longer than the bound is emitted alone. Sentence and paragraph
// boundaries are not considered.
func Chunk(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{}
	}

	var chunks []string
	var current []string
	currentLen := 0

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if len(current) > 0 && currentLen+1+wordLen > maxChunkSize {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			currentLen = 0
		}
		if len(current) > 0 {
			currentLen++ // separator
		}
		current = append(current, word)
		currentLen += wordLen
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// ChunkDocument chunks a document's content and attaches ordinals.
func ChunkDocument(doc *entities.Document, maxChunkSize int) []entities.Chunk {
	texts := Chunk(doc.Content, maxChunkSize)
	chunks := make([]entities.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = entities.Chunk{Index: i, Content: text}
	}
	return chunks
}
