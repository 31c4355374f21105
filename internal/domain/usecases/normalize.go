// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
package usecases

import (
	"strings"
	"unicode"
)

// Normalize strips every rune that is not a letter, number or whitespace and
// collapses whitespace runs to single spaces. Punctuation is lost for good, so
// chunking always operates on punctuation-free text.
func Normalize(text string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
	return strings.Join(strings.Fields(stripped), " ")
}
