package eval

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var disallowedRE = regexp.MustCompile(`[^0-9+\-*/.()\s]`)

// Normalize maps localized arithmetic glyphs onto their ASCII operators.
// Handwriting OCR commonly returns the multiplication cross and obelus.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "×", "*")
	s = strings.ReplaceAll(s, "·", "*")
	s = strings.ReplaceAll(s, "÷", "/")
	s = strings.ReplaceAll(s, "−", "-")
	return s
}

// Sanitize normalizes glyphs, strips every character outside the arithmetic
// alphabet and trims trailing operator/decimal runs, so a dangling operator
// like "3+" does not abort evaluation. The result may be empty.
func Sanitize(raw string) string {
	s := Normalize(raw)
	s = disallowedRE.ReplaceAllString(s, "")
	s = strings.TrimRightFunc(s, func(r rune) bool {
		switch r {
		case '+', '-', '*', '/', '.':
			return true
		}
		return unicode.IsSpace(r)
	})
	return s
}

// Evaluate sanitizes raw and evaluates it as an infix arithmetic expression
// over the four binary operators, decimals and parentheses, with
// conventional precedence and float64 semantics. It returns
// ErrInvalidExpression when the sanitized string is empty, malformed, or
// yields a non-finite value (e.g. "3/0"). Pure function of its input.
func Evaluate(raw string) (float64, error) {
	s := Sanitize(raw)
	if strings.TrimSpace(s) == "" {
		return 0, ErrInvalidExpression
	}
	p := parser{input: s}
	v, ok := p.expr()
	p.skipSpace()
	if !ok || p.pos != len(p.input) {
		return 0, ErrInvalidExpression
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidExpression
	}
	return v, nil
}

// parser is a small recursive-descent evaluator. The grammar is strictly
//
//	expr   = term { ("+"|"-") term }
//	term   = factor { ("*"|"/") factor }
//	factor = ["+"|"-"] ( number | "(" expr ")" )
//
// Implicit multiplication, exponents and modulus are not part of it.
type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t' || p.input[p.pos] == '\n' || p.input[p.pos] == '\r') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expr() (float64, bool) {
	v, ok := p.term()
	if !ok {
		return 0, false
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			r, ok := p.term()
			if !ok {
				return 0, false
			}
			v += r
		case '-':
			p.pos++
			r, ok := p.term()
			if !ok {
				return 0, false
			}
			v -= r
		default:
			return v, true
		}
	}
}

func (p *parser) term() (float64, bool) {
	v, ok := p.factor()
	if !ok {
		return 0, false
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			r, ok := p.factor()
			if !ok {
				return 0, false
			}
			v *= r
		case '/':
			p.pos++
			r, ok := p.factor()
			if !ok {
				return 0, false
			}
			v /= r
		default:
			return v, true
		}
	}
}

func (p *parser) factor() (float64, bool) {
	switch p.peek() {
	case '+':
		p.pos++
		return p.factor()
	case '-':
		p.pos++
		v, ok := p.factor()
		return -v, ok
	case '(':
		p.pos++
		v, ok := p.expr()
		if !ok || p.peek() != ')' {
			return 0, false
		}
		p.pos++
		return v, true
	}
	return p.number()
}

func (p *parser) number() (float64, bool) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
