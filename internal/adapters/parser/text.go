package parser

import (
	"bytes"
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextParser passes plain text through, dropping a UTF-8 byte order mark and
// replacing invalid sequences.
type TextParser struct{}

// NewTextParser creates a TextParser.
func NewTextParser() *TextParser {
	return &TextParser{}
}

// Parse returns data as text.
func (p *TextParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if bytes.IndexByte(data, 0) >= 0 {
		return "", eris.Errorf("%s looks binary", filename)
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// SupportedFormats returns formats this parser handles.
func (p *TextParser) SupportedFormats() []string {
	return []string{"txt"}
}
