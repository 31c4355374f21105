package parser

import (
	"strings"
)

// kernSpace is the TJ displacement (thousandths of an em) treated as a word gap.
const kernSpace = -200

// ContentStreamText pulls the operands of the text-showing operators
// (Tj, TJ, ' and ") out of a decoded PDF content stream. String bytes are
// mapped one-to-one onto runes, which is correct for the standard
// single-byte encodings. Text positioning operators become whitespace.
func ContentStreamText(stream []byte) string {
	s := &contentScanner{data: stream}
	var out strings.Builder
	var operands []operand

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		switch tok.kind {
		case tokString, tokNumber:
			operands = append(operands, operand{kind: tok.kind, text: tok.text})
		case tokArrayOpen:
			operands = append(operands, operand{kind: tokArrayOpen})
		case tokArrayClose:
			operands = append(operands, operand{kind: tokArrayClose})
		case tokOperator:
			switch tok.text {
			case "Tj":
				writeLast(&out, operands)
			case "'", "\"":
				breakLine(&out)
				writeLast(&out, operands)
			case "TJ":
				writeArray(&out, operands)
			case "Td", "TD", "T*", "Tm":
				breakWord(&out)
			case "ET":
				breakLine(&out)
			}
			operands = operands[:0]
		default:
			operands = operands[:0]
		}
	}

	return out.String()
}

type operand struct {
	kind tokenKind
	text string
}

func writeLast(out *strings.Builder, operands []operand) {
	for i := len(operands) - 1; i >= 0; i-- {
		if operands[i].kind == tokString {
			out.WriteString(operands[i].text)
			return
		}
	}
}

func writeArray(out *strings.Builder, operands []operand) {
	for _, op := range operands {
		switch op.kind {
		case tokString:
			out.WriteString(op.text)
		case tokNumber:
			if n, ok := parseNumber(op.text); ok && n <= kernSpace {
				breakWord(out)
			}
		}
	}
}

func breakWord(out *strings.Builder) {
	if out.Len() == 0 {
		return
	}
	s := out.String()
	if last := s[len(s)-1]; last != ' ' && last != '\n' {
		out.WriteByte(' ')
	}
}

func breakLine(out *strings.Builder) {
	if out.Len() == 0 {
		return
	}
	s := out.String()
	if s[len(s)-1] != '\n' {
		out.WriteByte('\n')
	}
}

func parseNumber(s string) (float64, bool) {
	var n float64
	var frac float64
	neg := false
	seenDigit := false
	i := 0
	if i < len(s) && (s[i] == '-' || s[i] == '+') {
		neg = s[i] == '-'
		i++
	}
	for ; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
			if frac > 0 {
				n += float64(c-'0') * frac
				frac /= 10
			} else {
				n = n*10 + float64(c-'0')
			}
		case c == '.' && frac == 0:
			frac = 0.1
		default:
			return 0, false
		}
	}
	if neg {
		n = -n
	}
	return n, seenDigit
}

type tokenKind int

const (
	tokOther tokenKind = iota
	tokString
	tokNumber
	tokArrayOpen
	tokArrayClose
	tokOperator
)

type token struct {
	kind tokenKind
	text string
}

type contentScanner struct {
	data []byte
	pos  int
}

func isWhite(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}

func isDelim(c byte) bool {
	return strings.IndexByte("()<>[]{}/%", c) >= 0
}

func (s *contentScanner) next() (token, bool) {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isWhite(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		case c == '(':
			return token{kind: tokString, text: s.literal()}, true
		case c == '<':
			if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
				s.pos += 2
				return token{kind: tokOther, text: "<<"}, true
			}
			return token{kind: tokString, text: s.hex()}, true
		case c == '>':
			s.pos++
			if s.pos < len(s.data) && s.data[s.pos] == '>' {
				s.pos++
			}
			return token{kind: tokOther, text: ">>"}, true
		case c == '[':
			s.pos++
			return token{kind: tokArrayOpen}, true
		case c == ']':
			s.pos++
			return token{kind: tokArrayClose}, true
		case c == '/':
			s.pos++
			return token{kind: tokOther, text: "/" + s.word()}, true
		case c == '{' || c == '}' || c == ')':
			s.pos++
		default:
			w := s.word()
			if w == "" {
				s.pos++
				continue
			}
			if _, ok := parseNumber(w); ok {
				return token{kind: tokNumber, text: w}, true
			}
			if w == "BI" {
				s.skipInlineImage()
				continue
			}
			return token{kind: tokOperator, text: w}, true
		}
	}
	return token{}, false
}

func (s *contentScanner) word() string {
	start := s.pos
	for s.pos < len(s.data) && !isWhite(s.data[s.pos]) && !isDelim(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

// literal reads a balanced (...) string, resolving escapes.
func (s *contentScanner) literal() string {
	s.pos++ // (
	var out []rune
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '\\':
			if s.pos >= len(s.data) {
				return string(out)
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b', 'f':
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for k := 0; k < 2 && s.pos < len(s.data) && s.data[s.pos] >= '0' && s.data[s.pos] <= '7'; k++ {
						v = v*8 + int(s.data[s.pos]-'0')
						s.pos++
					}
					out = append(out, rune(v&0xff))
				} else {
					out = append(out, rune(e))
				}
			}
		case '(':
			depth++
			out = append(out, '(')
		case ')':
			depth--
			if depth == 0 {
				return string(out)
			}
			out = append(out, ')')
		default:
			out = append(out, rune(c))
		}
	}
	return string(out)
}

// hex reads a <...> string.
func (s *contentScanner) hex() string {
	s.pos++ // <
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		c := s.data[s.pos]
		if hexValue(c) >= 0 {
			digits = append(digits, c)
		}
		s.pos++
	}
	s.pos++ // >
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]rune, 0, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		out = append(out, rune(hexValue(digits[i])<<4|hexValue(digits[i+1])))
	}
	return string(out)
}

func hexValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// skipInlineImage jumps past BI ... ID <binary> EI.
func (s *contentScanner) skipInlineImage() {
	for s.pos < len(s.data) {
		w := s.word()
		if w == "ID" {
			break
		}
		if w == "" {
			s.pos++
		}
	}
	for s.pos+2 < len(s.data) {
		if isWhite(s.data[s.pos]) && s.data[s.pos+1] == 'E' && s.data[s.pos+2] == 'I' &&
			(s.pos+3 >= len(s.data) || isWhite(s.data[s.pos+3])) {
			s.pos += 3
			return
		}
		s.pos++
	}
	s.pos = len(s.data)
}
