// Package metrics instruments model ports with Prometheus collectors.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

const namespace = "docanalyzer"

// Metrics holds the collectors shared by the instrumented adapters.
type Metrics struct {
	summarizeOps      *prometheus.CounterVec
	summarizeDuration prometheus.Histogram
	predictOps        *prometheus.CounterVec
	predictDuration   prometheus.Histogram
	httpRequests      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		summarizeOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "summarize_ops_total",
				Help:      "The total number of chunk summarizations.",
			},
			[]string{"result"},
		),
		summarizeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "summarize_duration_seconds",
				Help:      "Latency of chunk summarizations.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
		),
		predictOps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "predict_span_ops_total",
				Help:      "The total number of answer span predictions.",
			},
			[]string{"result"},
		),
		predictDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "model",
				Name:      "predict_span_duration_seconds",
				Help:      "Latency of answer span predictions.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "The total number of API requests.",
			},
			[]string{"route", "code"},
		),
	}

	reg.MustRegister(
		m.summarizeOps,
		m.summarizeDuration,
		m.predictOps,
		m.predictDuration,
		m.httpRequests,
	)
	return m
}

// ObserveRequest counts one API request.
func (m *Metrics) ObserveRequest(route, code string) {
	m.httpRequests.WithLabelValues(route, code).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Summarizer wraps a ports.Summarizer with counters and latency histograms.
type Summarizer struct {
	next ports.Summarizer
	m    *Metrics
}

// InstrumentSummarizer returns next wrapped with m's collectors.
func InstrumentSummarizer(next ports.Summarizer, m *Metrics) *Summarizer {
	return &Summarizer{next: next, m: m}
}

// Summarize implements ports.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, text string, params entities.SummaryParams) (string, error) {
	start := time.Now()
	out, err := s.next.Summarize(ctx, text, params)
	s.m.summarizeDuration.Observe(time.Since(start).Seconds())
	s.m.summarizeOps.WithLabelValues(result(err)).Inc()
	return out, err
}

// SpanPredictor wraps a ports.SpanPredictor with counters and latency
// histograms.
type SpanPredictor struct {
	next ports.SpanPredictor
	m    *Metrics
}

// InstrumentSpanPredictor returns next wrapped with m's collectors.
func InstrumentSpanPredictor(next ports.SpanPredictor, m *Metrics) *SpanPredictor {
	return &SpanPredictor{next: next, m: m}
}

// PredictSpan implements ports.SpanPredictor.
func (p *SpanPredictor) PredictSpan(ctx context.Context, question, context string, maxTokens int) (*entities.SpanPrediction, error) {
	start := time.Now()
	pred, err := p.next.PredictSpan(ctx, question, context, maxTokens)
	p.m.predictDuration.Observe(time.Since(start).Seconds())
	p.m.predictOps.WithLabelValues(result(err)).Inc()
	return pred, err
}
