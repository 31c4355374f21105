// Package tokenizer provides the WordPiece tokenizer used for extractive
// question answering. It implements ports.TokenDecoder and the pair encoding
// the span predictor feeds to the model.
package tokenizer

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/decoder"
	"github.com/sugarme/tokenizer/model"
	"github.com/sugarme/tokenizer/model/wordpiece"
	"github.com/sugarme/tokenizer/normalizer"
	"github.com/sugarme/tokenizer/pretokenizer"
	"github.com/sugarme/tokenizer/processor"
	"github.com/sugarme/tokenizer/util"

	"github.com/0xcro3dile/docanalyzer-go/internal/domain/entities"
)

// specialOverhead is [CLS] question [SEP] context [SEP].
const specialOverhead = 3

var specialTokens = []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]"}

// PairEncoding is a jointly encoded question/context pair.
type PairEncoding struct {
	InputIDs      []int
	TokenTypeIDs  []int // 0 for [CLS], question and first [SEP]; 1 for context and last [SEP]
	AttentionMask []int
	SequenceIDs   []int // entities.Segment* per position
}

// WordPiece is a BERT WordPiece tokenizer loaded from a vocab file.
type WordPiece struct {
	tk      *tokenizer.Tokenizer
	clsID   int
	sepID   int
	special map[int]bool
}

// NewWordPiece loads a vocab file (one token per line, id is the line number).
func NewWordPiece(vocabPath string, lowercase bool) (*WordPiece, error) {
	f, err := os.Open(vocabPath)
	if err != nil {
		return nil, eris.Wrapf(err, "opening vocab %s", vocabPath)
	}
	defer f.Close()
	return NewWordPieceFromReader(f, lowercase)
}

// NewWordPieceFromReader builds a WordPiece tokenizer from vocab lines.
func NewWordPieceFromReader(r io.Reader, lowercase bool) (*WordPiece, error) {
	vocab := make(model.Vocab)
	scanner := bufio.NewScanner(r)
	for i := 0; scanner.Scan(); i++ {
		if line := strings.TrimRight(scanner.Text(), "\r"); line != "" {
			vocab[line] = i
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrap(err, "reading vocab")
	}

	opts := util.NewParams(map[string]any{
		"unk_token": "[UNK]",
	})
	wp, err := wordpiece.New(vocab, opts)
	if err != nil {
		return nil, eris.Wrap(err, "creating wordpiece model")
	}

	tk := tokenizer.NewTokenizer(wp)
	tk.WithNormalizer(normalizer.NewBertNormalizer(true, lowercase, true, lowercase))
	tk.WithPreTokenizer(pretokenizer.NewBertPreTokenizer())

	sepID, ok := tk.TokenToId("[SEP]")
	if !ok {
		return nil, eris.New("vocab has no [SEP] token")
	}
	clsID, ok := tk.TokenToId("[CLS]")
	if !ok {
		return nil, eris.New("vocab has no [CLS] token")
	}

	tk.WithPostProcessor(processor.NewBertProcessing(
		processor.PostToken{Id: sepID, Value: "[SEP]"},
		processor.PostToken{Id: clsID, Value: "[CLS]"},
	))
	for _, tok := range []string{"[MASK]", "[SEP]", "[CLS]"} {
		tk.AddSpecialTokens([]tokenizer.AddedToken{tokenizer.NewAddedToken(tok, true)})
	}
	tk.WithDecoder(decoder.NewWordPieceDecoder("##", true))

	special := make(map[int]bool, len(specialTokens))
	for _, tok := range specialTokens {
		if id, ok := vocab[tok]; ok {
			special[id] = true
		}
	}

	return &WordPiece{tk: tk, clsID: clsID, sepID: sepID, special: special}, nil
}

// Encode tokenizes text without special tokens.
// The underlying normalizer can panic on some inputs; that is reported as an
// error.
func (w *WordPiece) Encode(text string) (ids []int, err error) {
	if strings.TrimSpace(text) == "" {
		return []int{}, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("tokenizer panic: %v", r)
		}
	}()

	enc, err := w.tk.EncodeSingle(text, false)
	if err != nil {
		return nil, eris.Wrap(err, "encoding text")
	}
	return enc.Ids, nil
}

// EncodePair builds [CLS] question [SEP] context [SEP], truncating the
// context so the whole sequence fits in maxTokens. The question is cut to
// half the budget when it alone would crowd out the context.
func (w *WordPiece) EncodePair(question, context string, maxTokens int) (*PairEncoding, error) {
	q, err := w.Encode(question)
	if err != nil {
		return nil, err
	}
	c, err := w.Encode(context)
	if err != nil {
		return nil, err
	}

	budget := maxTokens - specialOverhead
	if budget < 2 {
		return nil, eris.Errorf("token budget %d too small", maxTokens)
	}
	if len(q) > budget/2 && len(q)+len(c) > budget {
		q = q[:budget/2]
	}
	if room := budget - len(q); len(c) > room {
		c = c[:room]
	}

	n := len(q) + len(c) + specialOverhead
	enc := &PairEncoding{
		InputIDs:      make([]int, 0, n),
		TokenTypeIDs:  make([]int, 0, n),
		AttentionMask: make([]int, 0, n),
		SequenceIDs:   make([]int, 0, n),
	}
	push := func(id, typeID, seq int) {
		enc.InputIDs = append(enc.InputIDs, id)
		enc.TokenTypeIDs = append(enc.TokenTypeIDs, typeID)
		enc.AttentionMask = append(enc.AttentionMask, 1)
		enc.SequenceIDs = append(enc.SequenceIDs, seq)
	}

	push(w.clsID, 0, entities.SegmentSpecial)
	for _, id := range q {
		push(id, 0, entities.SegmentQuestion)
	}
	push(w.sepID, 0, entities.SegmentSpecial)
	for _, id := range c {
		push(id, 1, entities.SegmentContext)
	}
	push(w.sepID, 1, entities.SegmentSpecial)

	return enc, nil
}

// Decode renders ids as text with special tokens removed.
func (w *WordPiece) Decode(ids []int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("tokenizer panic: %v", r)
		}
	}()

	kept := make([]int, 0, len(ids))
	for _, id := range ids {
		if !w.special[id] {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		return "", nil
	}
	return strings.TrimSpace(w.tk.Decode(kept, true)), nil
}
