package parser

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// maxDocumentXML bounds the decompressed size of word/document.xml.
const maxDocumentXML = 64 << 20

// DocxParser extracts paragraph text from Office Open XML documents.
type DocxParser struct{}

// NewDocxParser creates a DocxParser.
func NewDocxParser() *DocxParser {
	return &DocxParser{}
}

// Parse reads word/document.xml out of the package and joins its runs,
// emitting one line per paragraph.
func (p *DocxParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", eris.Wrapf(err, "opening %s as docx", filename)
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", eris.Errorf("%s has no word/document.xml", filename)
	}

	rc, err := body.Open()
	if err != nil {
		return "", eris.Wrap(err, "opening document.xml")
	}
	defer rc.Close()

	return documentText(io.LimitReader(rc, maxDocumentXML))
}

// SupportedFormats returns formats this parser handles.
func (p *DocxParser) SupportedFormats() []string {
	return []string{"docx"}
}

func documentText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var out strings.Builder
	inText := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", eris.Wrap(err, "decoding document.xml")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				out.WriteByte('\t')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}

	return strings.TrimSpace(out.String()), nil
}
