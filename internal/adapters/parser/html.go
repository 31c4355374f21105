package parser

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"pre": true, "blockquote": true, "section": true, "article": true,
	"table": true, "ul": true, "ol": true, "title": true,
}

// HTMLParser extracts visible text from HTML pages.
type HTMLParser struct{}

// NewHTMLParser creates an HTMLParser.
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{}
}

// Parse drops scripts, styles and navigation chrome, then walks the body
// emitting text nodes with line breaks at block elements.
func (p *HTMLParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", eris.Wrapf(err, "parsing %s as html", filename)
	}

	doc.Find("script, style, noscript, template, nav, footer, aside").Remove()

	var out strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		out.WriteString(title)
		out.WriteByte('\n')
	}

	walkText(doc.Find("body"), &out)
	return strings.TrimSpace(out.String()), nil
}

// SupportedFormats returns formats this parser handles.
func (p *HTMLParser) SupportedFormats() []string {
	return []string{"html", "htm"}
}

func walkText(selection *goquery.Selection, out *strings.Builder) {
	selection.Contents().Each(func(i int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		if name == "#text" {
			out.WriteString(s.Text())
			return
		}
		walkText(s, out)
		if blockElements[name] {
			out.WriteByte('\n')
		}
	})
}
