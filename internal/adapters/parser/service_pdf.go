package parser

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/bytedance/sonic/decoder"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultServiceURL is where the extraction sidecar listens by default.
const DefaultServiceURL = "http://localhost:8081"

// ServicePDFParser delegates PDF extraction to an HTTP sidecar that accepts
// raw bytes on POST /parse.
type ServicePDFParser struct {
	serviceURL string
	client     *http.Client
	logger     *zap.Logger
}

// NewServicePDFParser creates a parser that calls the extraction service.
func NewServicePDFParser(serviceURL string, timeout time.Duration, logger *zap.Logger) *ServicePDFParser {
	if serviceURL == "" {
		serviceURL = DefaultServiceURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ServicePDFParser{
		serviceURL: serviceURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// parseResponse is the extraction service response format.
type parseResponse struct {
	Text    string `json:"text"`
	Pages   int    `json:"pages"`
	Library string `json:"library,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Parse extracts text from PDF bytes via the extraction service.
func (p *ServicePDFParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serviceURL+"/parse", bytes.NewReader(data))
	if err != nil {
		return "", eris.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Filename", filename)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "calling PDF service")
	}
	defer resp.Body.Close()

	var result parseResponse
	if err := decoder.NewStreamDecoder(resp.Body).Decode(&result); err != nil {
		return "", eris.Wrapf(err, "decoding PDF service response (status %d)", resp.StatusCode)
	}

	if result.Error != "" {
		return "", eris.Errorf("PDF parse error: %s", result.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("PDF service returned status %d", resp.StatusCode)
	}

	p.logger.Debug("pdf parsed by service",
		zap.String("file", filename),
		zap.Int("pages", result.Pages),
		zap.String("library", result.Library),
	)
	return result.Text, nil
}

// SupportedFormats returns formats this parser handles.
func (p *ServicePDFParser) SupportedFormats() []string {
	return []string{"pdf"}
}

// IsServiceHealthy checks if the extraction service is running.
func (p *ServicePDFParser) IsServiceHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.serviceURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}
