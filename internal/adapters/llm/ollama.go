// Package llm provides the Ollama summarization adapter.
// Clean Architecture: Adapter implementing ports.Summarizer.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/decoder"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

const (
	// DefaultBaseURL is the local Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"
	// DefaultModel is used when no model is configured.
	DefaultModel = "llama3.2"
)

// OllamaSummarizer implements ports.Summarizer by prompting an Ollama model.
// Ollama has no beam search, so only MinLength and MaxLength are
// honoured.
type OllamaSummarizer struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// NewOllamaSummarizer creates a new Ollama summarizer.
func NewOllamaSummarizer(baseURL, model string, timeout time.Duration, logger *zap.Logger) *OllamaSummarizer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OllamaSummarizer{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

const systemPrompt = "You summarize documents. Reply with the summary only, no preamble."

// BuildPrompt renders the summarization instruction for one chunk.
func BuildPrompt(text string, params entities.SummaryParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following text in %d to %d words.\n\n", params.MinLength, params.MaxLength)
	b.WriteString(text)
	return b.String()
}

// Summarize condenses text using the configured model.
func (a *OllamaSummarizer) Summarize(ctx context.Context, text string, params entities.SummaryParams) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  a.model,
		Prompt: BuildPrompt(text, params),
		System: systemPrompt,
		Stream: false,
		Options: map[string]any{
			"num_predict": params.MaxLength * 2, // tokens, not words
			"temperature": 0,
		},
	}

	jsonData, err := sonic.Marshal(reqBody)
	if err != nil {
		return "", eris.Wrap(err, "marshaling request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", eris.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := a.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "calling Ollama")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var genResp ollamaGenerateResponse
	if err := decoder.NewStreamDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", eris.Wrap(err, "decoding response")
	}
	if genResp.Error != "" {
		return "", eris.Errorf("Ollama error: %s", genResp.Error)
	}

	a.logger.Debug("ollama summary",
		zap.String("model", a.model),
		zap.Int("input_len", len(text)),
		zap.Int("output_len", len(genResp.Response)),
		zap.Duration("took", time.Since(start)),
	)

	return strings.TrimSpace(genResp.Response), nil
}
