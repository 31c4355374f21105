// Package parser provides document parsing adapters.
// Clean Architecture: Adapters implementing ports.DocumentParser.
package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PDFParser extracts text from PDFs in-process using pdfcpu.
type PDFParser struct {
	tempDir string
	logger  *zap.Logger
}

// NewPDFParser creates a PDFParser. Scratch files go under tempDir, or the
// system temp directory when empty.
func NewPDFParser(tempDir string, logger *zap.Logger) *PDFParser {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFParser{tempDir: tempDir, logger: logger}
}

// Parse writes the PDF to a scratch directory, dumps each page's content
// stream with pdfcpu and collects the text-showing operands in page order.
func (p *PDFParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF")) {
		return "", eris.Errorf("%s is not a PDF", filename)
	}

	workDir, err := os.MkdirTemp(p.tempDir, "docanalyzer-pdf-*")
	if err != nil {
		return "", eris.Wrap(err, "creating scratch directory")
	}
	defer os.RemoveAll(workDir)

	inFile := filepath.Join(workDir, "input.pdf")
	if err := os.WriteFile(inFile, data, 0644); err != nil {
		return "", eris.Wrap(err, "writing scratch PDF")
	}

	pdfCtx, err := api.ReadContextFile(inFile)
	if err != nil {
		return "", eris.Wrap(err, "reading PDF")
	}
	if pdfCtx.Encrypt != nil {
		return "", eris.Errorf("%s is encrypted", filename)
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	outDir := filepath.Join(workDir, "pages")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", eris.Wrap(err, "creating page directory")
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ExtractContentFile(inFile, outDir, nil, conf); err != nil {
		return "", eris.Wrap(err, "extracting PDF content")
	}

	pages, err := readPageStreams(outDir)
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, page := range pages {
		pageText := strings.TrimSpace(ContentStreamText(page.content))
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}

	p.logger.Debug("pdf parsed",
		zap.String("file", filename),
		zap.Int("pages", pdfCtx.PageCount),
		zap.Int("streams", len(pages)),
		zap.Int("chars", text.Len()),
	)
	return text.String(), nil
}

// SupportedFormats returns formats this parser handles.
func (p *PDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}

type pageStream struct {
	number  int
	content []byte
}

// readPageStreams loads pdfcpu's *_Content_page_N files sorted by page.
func readPageStreams(dir string) ([]pageStream, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrap(err, "listing extracted content")
	}

	var pages []pageStream
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		idx := strings.Index(name, "Content_page_")
		if idx < 0 {
			continue
		}
		var number int
		if _, err := fmt.Sscanf(name[idx:], "Content_page_%d", &number); err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, eris.Wrapf(err, "reading %s", name)
		}
		pages = append(pages, pageStream{number: number, content: content})
	}

	sort.SliceStable(pages, func(i, j int) bool { return pages[i].number < pages[j].number })
	return pages, nil
}
