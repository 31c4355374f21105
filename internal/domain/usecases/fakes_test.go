package usecases

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

// fakeSummarizer implements ports.Summarizer for testing
type fakeSummarizer struct {
	fn       func(ctx context.Context, text string) (string, error)
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32

	mu     sync.Mutex
	params []entities.SummaryParams
}

func (f *fakeSummarizer) Summarize(ctx context.Context, text string, params entities.SummaryParams) (string, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.params = append(f.params, params)
	f.mu.Unlock()

	if f.fn != nil {
		return f.fn(ctx, text)
	}
	return "S:" + prefix(text, 10), nil
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}

// echoSlow sleeps longer for earlier chunks so completion order is reversed.
func echoSlow(total int) func(ctx context.Context, text string) (string, error) {
	return func(ctx context.Context, text string) (string, error) {
		var idx int
		for i, r := range text {
			if r == '-' {
				idx = int(text[i+1] - '0')
				break
			}
		}
		time.Sleep(time.Duration(total-idx) * 5 * time.Millisecond)
		return "S:" + text, nil
	}
}

// fakePredictor implements ports.SpanPredictor for testing
type fakePredictor struct {
	pred        *entities.SpanPrediction
	err         error
	gotQuestion string
	gotContext  string
	gotMax      int
}

func (f *fakePredictor) PredictSpan(ctx context.Context, question, context string, maxTokens int) (*entities.SpanPrediction, error) {
	f.gotQuestion = question
	f.gotContext = context
	f.gotMax = maxTokens
	if f.err != nil {
		return nil, f.err
	}
	return f.pred, nil
}

// fakeDecoder implements ports.TokenDecoder over a fixed vocabulary
type fakeDecoder struct {
	vocab   map[int]string
	fn      func(ids []int) (string, error)
	lastIDs []int
}

func (f *fakeDecoder) Decode(ids []int) (string, error) {
	f.lastIDs = append([]int(nil), ids...)
	if f.fn != nil {
		return f.fn(ids)
	}
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		w, ok := f.vocab[id]
		if !ok || strings.HasPrefix(w, "[") {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " "), nil
}

// fakeParser implements ports.DocumentParser for testing
type fakeParser struct {
	texts map[string]string // extension -> text
}

func (f *fakeParser) Parse(ctx context.Context, data []byte, filename string) (string, error) {
	ext := filepath.Ext(filename)
	if text, ok := f.texts[ext]; ok {
		return text, nil
	}
	if ext == ".txt" {
		return string(data), nil
	}
	return "", ports.ErrUnsupportedFormat
}

func (f *fakeParser) SupportedFormats() []string {
	return []string{"txt"}
}

// fakeCache implements ports.SummaryCache for testing
type fakeCache struct {
	mu      sync.Mutex
	entries map[string]string
	failGet bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]string)}
}

func (c *fakeCache) Get(ctx context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return "", false, errors.New("cache down")
	}
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key, summary string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = summary
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
