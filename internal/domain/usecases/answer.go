package usecases

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
	"github.com/0xcro3dile/docanalyzer-go/internal/domain/ports"
)

const (
	// DefaultMaxCombinedTokens is the joint question+context token budget.
	DefaultMaxCombinedTokens = 512
	// MaxAnswerLength rejects decoded answers longer than this many characters.
	MaxAnswerLength = 100
	// EndCorrectionWindow is how far past the start an inverted end is moved.
	EndCorrectionWindow = 10
)

// AnswerUseCase extracts answer spans from a context.
type AnswerUseCase struct {
	predictor ports.SpanPredictor
	decoder   ports.TokenDecoder
	maxTokens int
	logger    *zap.Logger
}

// NewAnswerUseCase creates an AnswerUseCase with injected dependencies.
func NewAnswerUseCase(predictor ports.SpanPredictor, decoder ports.TokenDecoder, maxTokens int, logger *zap.Logger) *AnswerUseCase {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxCombinedTokens
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerUseCase{
		predictor: predictor,
		decoder:   decoder,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// AnswerQuestion answers question from context. It never fails: problems are
// reported through the result's Outcome.
func (uc *AnswerUseCase) AnswerQuestion(ctx context.Context, question, context string) (result entities.AnswerResult) {
	if strings.TrimSpace(question) == "" || strings.TrimSpace(context) == "" {
		return notFound("empty question or context")
	}

	defer func() {
		if r := recover(); r != nil {
			uc.logger.Error("answer extraction panicked", zap.Any("panic", r))
			result = errored(fmt.Sprintf("panic: %v", r))
		}
	}()

	pred, err := uc.predictor.PredictSpan(ctx, question, context, uc.maxTokens)
	if err != nil {
		uc.logger.Warn("span prediction failed", zap.Error(err))
		return errored(err.Error())
	}

	n := len(pred.StartLogits)
	if n == 0 || len(pred.EndLogits) != n || len(pred.TokenIDs) != n {
		uc.logger.Warn("malformed span prediction",
			zap.Int("start_logits", len(pred.StartLogits)),
			zap.Int("end_logits", len(pred.EndLogits)),
			zap.Int("tokens", len(pred.TokenIDs)),
		)
		return errored("malformed span prediction")
	}

	span := SelectSpan(pred.StartLogits, pred.EndLogits)

	if !pred.InContext(span.Start) {
		return notFound("span starts outside the context")
	}

	answer, err := uc.decoder.Decode(pred.TokenIDs[span.Start : span.End+1])
	if err != nil {
		uc.logger.Warn("span decoding failed", zap.Error(err))
		return errored(err.Error())
	}
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return notFound("empty answer")
	}
	if utf8.RuneCountInString(answer) > MaxAnswerLength {
		return notFound("answer too long")
	}

	return entities.AnswerResult{
		Outcome:    entities.AnswerFound,
		Answer:     answer,
		Confidence: spanProbability(pred.StartLogits, pred.EndLogits, span),
		Span:       span,
	}
}

// SelectSpan picks start and end by independent argmax. When the end lands
// before the start it is moved to start+EndCorrectionWindow, bounded by the
// sequence length.
func SelectSpan(startLogits, endLogits []float32) entities.AnswerSpan {
	span := entities.AnswerSpan{
		Start: argmax(startLogits),
		End:   argmax(endLogits),
	}
	if span.End < span.Start {
		span.End = min(span.Start+EndCorrectionWindow, len(endLogits)-1)
	}
	return span
}

func argmax(v []float32) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// spanProbability is softmax(start)[s] * softmax(end)[e].
func spanProbability(startLogits, endLogits []float32, span entities.AnswerSpan) float64 {
	return softmaxAt(startLogits, span.Start) * softmaxAt(endLogits, span.End)
}

func softmaxAt(v []float32, i int) float64 {
	maxV := float64(v[argmax(v)])
	var sum float64
	for _, x := range v {
		sum += math.Exp(float64(x) - maxV)
	}
	if sum == 0 {
		return 0
	}
	return math.Exp(float64(v[i])-maxV) / sum
}

func notFound(reason string) entities.AnswerResult {
	return entities.AnswerResult{
		Outcome: entities.AnswerNotFound,
		Answer:  entities.NoAnswer,
		Reason:  reason,
	}
}

func errored(reason string) entities.AnswerResult {
	return entities.AnswerResult{
		Outcome: entities.AnswerError,
		Answer:  entities.ErrorAnswer,
		Reason:  reason,
	}
}
