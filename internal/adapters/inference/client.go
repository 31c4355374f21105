// Package inference provides the client for the model inference service.
// Clean Architecture: Adapter implementing ports.Summarizer and
// ports.SpanPredictor.
package inference

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/decoder"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/0xcro3dile/docanalyzer-go/internal/adapters/tokenizer"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

const (
	// DefaultBaseURL is where the inference service listens by default.
	DefaultBaseURL = "http://localhost:8090"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 120 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 10
)

// PairEncoder jointly tokenizes a question and its context.
type PairEncoder interface {
	EncodePair(question, context string, maxTokens int) (*tokenizer.PairEncoding, error)
}

// Client calls the inference service. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	encoder    PairEncoder
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets a custom HTTP client. A nil client keeps the default.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger sets a logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit sets a custom rate limit. Zero disables throttling.
func WithRateLimit(requestsPerSecond, burst int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst <= 0 {
			burst = requestsPerSecond
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
}

// NewClient creates an inference client. encoder may be nil when only
// summarization is used.
func NewClient(encoder PairEncoder, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		encoder: encoder,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-2xx response from the inference service.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("inference API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

type summarizeRequest struct {
	Text          string  `json:"text"`
	MaxLength     int     `json:"max_length"`
	MinLength     int     `json:"min_length"`
	NumBeams      int     `json:"num_beams"`
	LengthPenalty float64 `json:"length_penalty"`
	EarlyStopping bool    `json:"early_stopping"`
}

type summarizeResponse struct {
	Summary string `json:"summary"`
	Error   string `json:"error,omitempty"`
}

type predictSpanRequest struct {
	InputIDs      []int `json:"input_ids"`
	TokenTypeIDs  []int `json:"token_type_ids"`
	AttentionMask []int `json:"attention_mask"`
}

type predictSpanResponse struct {
	StartLogits []float32 `json:"start_logits"`
	EndLogits   []float32 `json:"end_logits"`
	Error       string    `json:"error,omitempty"`
}

// Summarize condenses text with the service's seq2seq model.
func (c *Client) Summarize(ctx context.Context, text string, params entities.SummaryParams) (string, error) {
	req := summarizeRequest{
		Text:          text,
		MaxLength:     params.MaxLength,
		MinLength:     params.MinLength,
		NumBeams:      params.NumBeams,
		LengthPenalty: params.LengthPenalty,
		EarlyStopping: params.EarlyStopping,
	}

	var resp summarizeResponse
	if err := c.post(ctx, "/summarize", req, &resp); err != nil {
		return "", err
	}
	if resp.Error != "" {
		return "", eris.Errorf("summarize: %s", resp.Error)
	}
	return resp.Summary, nil
}

// PredictSpan tokenizes the pair locally and asks the service for per-token
// start and end logits.
func (c *Client) PredictSpan(ctx context.Context, question, context string, maxTokens int) (*entities.SpanPrediction, error) {
	if c.encoder == nil {
		return nil, eris.New("span prediction needs a tokenizer")
	}

	enc, err := c.encoder.EncodePair(question, context, maxTokens)
	if err != nil {
		return nil, eris.Wrap(err, "encoding question and context")
	}

	req := predictSpanRequest{
		InputIDs:      enc.InputIDs,
		TokenTypeIDs:  enc.TokenTypeIDs,
		AttentionMask: enc.AttentionMask,
	}

	var resp predictSpanResponse
	if err := c.post(ctx, "/predict_span", req, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, eris.Errorf("predict_span: %s", resp.Error)
	}
	if len(resp.StartLogits) != len(enc.InputIDs) || len(resp.EndLogits) != len(enc.InputIDs) {
		return nil, eris.Errorf("predict_span: got %d/%d logits for %d tokens",
			len(resp.StartLogits), len(resp.EndLogits), len(enc.InputIDs))
	}

	return &entities.SpanPrediction{
		StartLogits: resp.StartLogits,
		EndLogits:   resp.EndLogits,
		TokenIDs:    enc.InputIDs,
		SequenceIDs: enc.SequenceIDs,
	}, nil
}

// IsHealthy checks if the inference service is reachable.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// post performs a throttled JSON POST to the service.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit wait")
	}

	payload, err := sonic.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "encoding request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrapf(err, "calling %s", path)
	}
	defer resp.Body.Close()

	c.logger.Debug("inference request",
		zap.String("endpoint", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
			Endpoint:   path,
		}
	}

	if err := decoder.NewStreamDecoder(resp.Body).Decode(result); err != nil {
		return eris.Wrapf(err, "decoding %s response", path)
	}
	return nil
}
