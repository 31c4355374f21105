package usecases

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

// uniform returns n zero logits with hot set to 10.
func uniform(n int, hot int) []float32 {
	v := make([]float32, n)
	if hot >= 0 {
		v[hot] = 10
	}
	return v
}

func seq(n int) []int {
	ids := make([]int, n)
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func TestSelectSpan_Argmax(t *testing.T) {
	span := SelectSpan(uniform(8, 2), uniform(8, 5))
	assert.Equal(t, entities.AnswerSpan{Start: 2, End: 5}, span)
}

func TestSelectSpan_CorrectsInvertedEnd(t *testing.T) {
	span := SelectSpan(uniform(20, 2), uniform(20, 0))
	assert.Equal(t, entities.AnswerSpan{Start: 2, End: 12}, span)
}

func TestSelectSpan_CorrectionClampedToSequence(t *testing.T) {
	span := SelectSpan(uniform(20, 15), uniform(20, 3))
	assert.Equal(t, entities.AnswerSpan{Start: 15, End: 19}, span)
}

func TestSelectSpan_TiesPickFirst(t *testing.T) {
	span := SelectSpan(uniform(4, -1), uniform(4, -1))
	assert.Equal(t, entities.AnswerSpan{Start: 0, End: 0}, span)
}

func TestAnswerQuestion_EmptyInputs(t *testing.T) {
	predictor := &fakePredictor{}
	uc := NewAnswerUseCase(predictor, &fakeDecoder{}, 0, zaptest.NewLogger(t))

	for _, tc := range []struct{ q, c string }{
		{"", "some context"},
		{"question?", ""},
		{"   ", "context"},
		{"question?", "\n\t"},
	} {
		result := uc.AnswerQuestion(context.Background(), tc.q, tc.c)
		assert.Equal(t, entities.AnswerNotFound, result.Outcome)
		assert.Equal(t, entities.NoAnswer, result.Answer)
		assert.Zero(t, result.Confidence)
	}
	assert.Empty(t, predictor.gotQuestion, "predictor must not be called")
}

func TestAnswerQuestion_DefaultTokenBudget(t *testing.T) {
	predictor := &fakePredictor{err: errors.New("offline")}
	uc := NewAnswerUseCase(predictor, &fakeDecoder{}, 0, nil)

	uc.AnswerQuestion(context.Background(), "q", "c")
	assert.Equal(t, DefaultMaxCombinedTokens, predictor.gotMax)
}

func TestAnswerQuestion_PredictorError(t *testing.T) {
	predictor := &fakePredictor{err: errors.New("model server down")}
	uc := NewAnswerUseCase(predictor, &fakeDecoder{}, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "who?", "someone")
	assert.Equal(t, entities.AnswerError, result.Outcome)
	assert.Equal(t, entities.ErrorAnswer, result.Answer)
	assert.Zero(t, result.Confidence)
	assert.Contains(t, result.Reason, "model server down")
}

func TestAnswerQuestion_MalformedPrediction(t *testing.T) {
	predictor := &fakePredictor{pred: &entities.SpanPrediction{
		StartLogits: uniform(4, 1),
		EndLogits:   uniform(3, 1),
		TokenIDs:    seq(4),
	}}
	uc := NewAnswerUseCase(predictor, &fakeDecoder{}, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "q", "c")
	assert.Equal(t, entities.AnswerError, result.Outcome)
}

func TestAnswerQuestion_DecoderPanicRecovered(t *testing.T) {
	predictor := &fakePredictor{pred: &entities.SpanPrediction{
		StartLogits: uniform(4, 1),
		EndLogits:   uniform(4, 2),
		TokenIDs:    seq(4),
	}}
	decoder := &fakeDecoder{fn: func(ids []int) (string, error) {
		panic("vocab corrupted")
	}}
	uc := NewAnswerUseCase(predictor, decoder, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "q", "c")
	assert.Equal(t, entities.AnswerError, result.Outcome)
	assert.Equal(t, entities.ErrorAnswer, result.Answer)
}

func TestAnswerQuestion_DecoderError(t *testing.T) {
	predictor := &fakePredictor{pred: &entities.SpanPrediction{
		StartLogits: uniform(4, 1),
		EndLogits:   uniform(4, 2),
		TokenIDs:    seq(4),
	}}
	decoder := &fakeDecoder{fn: func(ids []int) (string, error) {
		return "", errors.New("unknown id")
	}}
	uc := NewAnswerUseCase(predictor, decoder, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "q", "c")
	assert.Equal(t, entities.AnswerError, result.Outcome)
}

func TestAnswerQuestion_StartOutsideContext(t *testing.T) {
	predictor := &fakePredictor{pred: &entities.SpanPrediction{
		StartLogits: uniform(6, 1),
		EndLogits:   uniform(6, 4),
		TokenIDs:    seq(6),
		SequenceIDs: []int{-1, 0, -1, 1, 1, -1},
	}}
	uc := NewAnswerUseCase(predictor, &fakeDecoder{}, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "q", "c")
	assert.Equal(t, entities.AnswerNotFound, result.Outcome)
	assert.Equal(t, entities.NoAnswer, result.Answer)
}

func TestAnswerQuestion_EndCorrectionSpan(t *testing.T) {
	predictor := &fakePredictor{pred: &entities.SpanPrediction{
		StartLogits: uniform(20, 2),
		EndLogits:   uniform(20, 0),
		TokenIDs:    seq(20),
	}}
	decoder := &fakeDecoder{fn: func(ids []int) (string, error) {
		return "short", nil
	}}
	uc := NewAnswerUseCase(predictor, decoder, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "q", "c")
	require.True(t, result.Found())
	assert.Equal(t, entities.AnswerSpan{Start: 2, End: 12}, result.Span)
	assert.Equal(t, seq(20)[2:13], decoder.lastIDs)
}

func TestAnswerQuestion_LengthLimit(t *testing.T) {
	pred := &entities.SpanPrediction{
		StartLogits: uniform(4, 1),
		EndLogits:   uniform(4, 2),
		TokenIDs:    seq(4),
	}

	for _, tc := range []struct {
		length int
		pad    string
		found  bool
	}{
		{MaxAnswerLength, "", true},
		{MaxAnswerLength + 1, "", false},
		{MaxAnswerLength, "  ", true},
	} {
		decoder := &fakeDecoder{fn: func(ids []int) (string, error) {
			return tc.pad + strings.Repeat("a", tc.length) + tc.pad, nil
		}}
		uc := NewAnswerUseCase(&fakePredictor{pred: pred}, decoder, 0, zaptest.NewLogger(t))

		result := uc.AnswerQuestion(context.Background(), "q", "c")
		assert.Equal(t, tc.found, result.Found(), "length %d", tc.length)
		if !tc.found {
			assert.Equal(t, entities.NoAnswer, result.Answer)
			assert.Zero(t, result.Confidence)
		}
	}
}

func TestAnswerQuestion_BlankDecodeIsNotFound(t *testing.T) {
	predictor := &fakePredictor{pred: &entities.SpanPrediction{
		StartLogits: uniform(3, 0),
		EndLogits:   uniform(3, 0),
		TokenIDs:    []int{101, 102, 103},
	}}
	decoder := &fakeDecoder{vocab: map[int]string{101: "[CLS]"}}
	uc := NewAnswerUseCase(predictor, decoder, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "q", "c")
	assert.Equal(t, entities.AnswerNotFound, result.Outcome)
}

func TestAnswerQuestion_ConfidenceIsSpanProbability(t *testing.T) {
	predictor := &fakePredictor{pred: &entities.SpanPrediction{
		StartLogits: uniform(4, -1),
		EndLogits:   uniform(4, -1),
		TokenIDs:    seq(4),
	}}
	decoder := &fakeDecoder{fn: func(ids []int) (string, error) { return "x", nil }}
	uc := NewAnswerUseCase(predictor, decoder, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(), "q", "c")
	require.True(t, result.Found())
	assert.InDelta(t, 1.0/16.0, result.Confidence, 1e-9)
}

// parisPrediction mimics a BERT span model for the capital-of-France query.
func parisPrediction() (*entities.SpanPrediction, map[int]string) {
	tokens := []string{
		"[CLS]", "what", "is", "the", "capital", "of", "france", "?", "[SEP]",
		"Paris", "is", "the", "capital", "of", "France", ".", "[SEP]",
	}
	vocab := make(map[int]string, len(tokens))
	ids := make([]int, len(tokens))
	segments := make([]int, len(tokens))
	for i, tok := range tokens {
		ids[i] = 1000 + i
		vocab[ids[i]] = tok
		switch {
		case tok == "[CLS]" || tok == "[SEP]":
			segments[i] = entities.SegmentSpecial
		case i < 9:
			segments[i] = entities.SegmentQuestion
		default:
			segments[i] = entities.SegmentContext
		}
	}
	return &entities.SpanPrediction{
		StartLogits: uniform(len(tokens), 9),
		EndLogits:   uniform(len(tokens), 9),
		TokenIDs:    ids,
		SequenceIDs: segments,
	}, vocab
}

func TestAnswerQuestion_Paris(t *testing.T) {
	pred, vocab := parisPrediction()
	predictor := &fakePredictor{pred: pred}
	uc := NewAnswerUseCase(predictor, &fakeDecoder{vocab: vocab}, 0, zaptest.NewLogger(t))

	result := uc.AnswerQuestion(context.Background(),
		"What is the capital of France?", "Paris is the capital of France.")

	require.True(t, result.Found())
	assert.Equal(t, "Paris", result.Answer)
	assert.Greater(t, result.Confidence, 0.0)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.Equal(t, "What is the capital of France?", predictor.gotQuestion)
}
