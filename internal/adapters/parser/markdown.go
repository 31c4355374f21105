package parser

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownParser renders Markdown to HTML and extracts its text, so markup
// such as emphasis markers, link targets and table pipes never reaches
// the summarizer.
type MarkdownParser struct {
	md goldmark.Markdown
}

// NewMarkdownParser creates a MarkdownParser with GitHub flavored extensions.
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Parse returns the visible text of a Markdown document.
func (p *MarkdownParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	var rendered bytes.Buffer
	if err := p.md.Convert(bytes.TrimPrefix(data, utf8BOM), &rendered); err != nil {
		return "", eris.Wrapf(err, "rendering %s", filename)
	}

	doc, err := goquery.NewDocumentFromReader(&rendered)
	if err != nil {
		return "", eris.Wrapf(err, "parsing rendered %s", filename)
	}

	var out strings.Builder
	walkText(doc.Find("body"), &out)
	return strings.TrimSpace(out.String()), nil
}

// SupportedFormats returns formats this parser handles.
func (p *MarkdownParser) SupportedFormats() []string {
	return []string{"md", "markdown"}
}
