package parser

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

// Registry dispatches to a parser by file extension.
type Registry struct {
	parsers map[string]ports.DocumentParser
}

// NewRegistry creates a Registry from parsers. Later parsers win when two
// claim the same format.
func NewRegistry(parsers ...ports.DocumentParser) *Registry {
	r := &Registry{parsers: make(map[string]ports.DocumentParser)}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Register adds p for every format it supports.
func (r *Registry) Register(p ports.DocumentParser) {
	for _, format := range p.SupportedFormats() {
		r.parsers[strings.ToLower(format)] = p
	}
}

// Parse routes data to the parser registered for filename's extension.
func (r *Registry) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	format := Format(filename)
	p, ok := r.parsers[format]
	if !ok {
		return "", eris.Wrapf(ports.ErrUnsupportedFormat, "format %q", format)
	}
	return p.Parse(ctx, data, filename)
}

// SupportedFormats returns every registered format, sorted.
func (r *Registry) SupportedFormats() []string {
	formats := make([]string, 0, len(r.parsers))
	for f := range r.parsers {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats
}

// Supports reports whether filename has a registered format.
func (r *Registry) Supports(filename string) bool {
	_, ok := r.parsers[Format(filename)]
	return ok
}

// Format returns filename's lowercased extension without the dot.
func Format(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// Options selects the parser set for NewDefaultRegistry.
type Options struct {
	PDFBackend     string // "pdfcpu" or "service"
	ServiceURL     string
	ServiceTimeout time.Duration
	TempDir        string
}

// NewDefaultRegistry registers the text, Markdown, DOCX and HTML parsers plus the PDF
// backend named in opts.
func NewDefaultRegistry(opts Options, logger *zap.Logger) *Registry {
	var pdf ports.DocumentParser
	if opts.PDFBackend == "service" {
		pdf = NewServicePDFParser(opts.ServiceURL, opts.ServiceTimeout, logger)
	} else {
		pdf = NewPDFParser(opts.TempDir, logger)
	}
	return NewRegistry(
		NewTextParser(),
		NewMarkdownParser(),
		NewDocxParser(),
		NewHTMLParser(),
		pdf,
	)
}
