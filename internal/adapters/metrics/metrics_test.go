package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

type stubSummarizer struct{ err error }

func (s stubSummarizer) Summarize(ctx context.Context, text string, params entities.SummaryParams) (string, error) {
	return "summary", s.err
}

type stubPredictor struct{ err error }

func (s stubPredictor) PredictSpan(ctx context.Context, question, context string, maxTokens int) (*entities.SpanPrediction, error) {
	return &entities.SpanPrediction{}, s.err
}

func TestInstrumentSummarizer(t *testing.T) {
	m := New(prometheus.NewRegistry())

	ok := InstrumentSummarizer(stubSummarizer{}, m)
	bad := InstrumentSummarizer(stubSummarizer{err: errors.New("down")}, m)

	out, err := ok.Summarize(context.Background(), "t", entities.DefaultSummaryParams())
	require.NoError(t, err)
	assert.Equal(t, "summary", out)
	_, err = ok.Summarize(context.Background(), "t", entities.DefaultSummaryParams())
	require.NoError(t, err)
	_, err = bad.Summarize(context.Background(), "t", entities.DefaultSummaryParams())
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.summarizeOps.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.summarizeOps.WithLabelValues("error")))
}

func TestInstrumentSpanPredictor(t *testing.T) {
	m := New(prometheus.NewRegistry())

	p := InstrumentSpanPredictor(stubPredictor{}, m)
	_, err := p.PredictSpan(context.Background(), "q", "c", 512)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.predictOps.WithLabelValues("ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.predictOps.WithLabelValues("error")))
}

func TestObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest("/api/qa", "200")
	m.ObserveRequest("/api/qa", "200")
	m.ObserveRequest("/api/summarize", "400")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/api/qa", "200")))
	count, err := testutil.GatherAndCount(reg, "docanalyzer_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
