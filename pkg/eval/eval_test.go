package eval

import (
	"errors"
	"testing"
)

func TestEvaluateBasics(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"2+2", 4},
		{"2*3+4", 10},
		{"(2+3)*4", 20},
		{"2×3", 6},
		{"6÷3", 2},
		{"1.5+2.5", 4},
		{"10 - 2 * 3", 4},
		{"((1+2))*(3)", 9},
		{"-3+5", 2},
	}
	for _, c := range cases {
		got, err := Evaluate(c.in)
		if err != nil {
			t.Fatalf("Evaluate(%q) unexpected error: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("Evaluate(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestEvaluateInvalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"3/0",
		"0/0",
		"((2+3",
		")2+3(",
		"2(3)", // implicit multiplication is not in the grammar
		"abc",
		"+",
	}
	for _, c := range cases {
		if _, err := Evaluate(c); !errors.Is(err, ErrInvalidExpression) {
			t.Fatalf("Evaluate(%q) expected ErrInvalidExpression, got %v", c, err)
		}
	}
}

func TestSanitizeStripsAndTrims(t *testing.T) {
	// permissive variant: junk characters are dropped, trailing operator
	// runs trimmed so a dangling "+" does not abort evaluation
	if got := Sanitize("2a+2"); got != "2+2" {
		t.Fatalf("Sanitize junk = %q", got)
	}
	if got := Sanitize("3+"); got != "3" {
		t.Fatalf("Sanitize trailing op = %q", got)
	}
	if got := Sanitize("3+. "); got != "3" {
		t.Fatalf("Sanitize trailing run = %q", got)
	}
	v, err := Evaluate("= 2 + 2 ?")
	if err != nil || v != 4 {
		t.Fatalf("Evaluate noisy OCR string = %v err=%v", v, err)
	}
}

func TestNormalizeGlyphEquivalence(t *testing.T) {
	a, err := Evaluate("2×3")
	if err != nil {
		t.Fatalf("glyph multiply: %v", err)
	}
	b, err := Evaluate("2*3")
	if err != nil {
		t.Fatalf("ascii multiply: %v", err)
	}
	if a != b || a != 6 {
		t.Fatalf("glyph equivalence broken: %v vs %v", a, b)
	}
	// normalization is idempotent
	if Normalize(Normalize("2×3÷4")) != Normalize("2×3÷4") {
		t.Fatal("Normalize not idempotent")
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	for _, in := range []string{"2+2", "3/0", "(2+3)*4", "1.25*4"} {
		v1, e1 := Evaluate(in)
		v2, e2 := Evaluate(in)
		if v1 != v2 || (e1 == nil) != (e2 == nil) {
			t.Fatalf("Evaluate(%q) not deterministic: %v/%v vs %v/%v", in, v1, e1, v2, e2)
		}
	}
}

// Evaluate must be total over the allowed alphabet: any string of digits,
// operators, dots, parens and whitespace yields a number or the sentinel.
func TestEvaluateNeverPanics(t *testing.T) {
	alphabet := "0123456789+-*/.() \t"
	seeds := []string{
		"", "(", ")", "..", "1..2", "()", "(()", "1+*2", "*/", "((((",
		"1+2)", ".5+.5", "5.", "1 2", "- -", "/3", "0*", "((1+2)*(3",
	}
	for i := 0; i < len(alphabet); i++ {
		for j := 0; j < len(alphabet); j++ {
			seeds = append(seeds, string(alphabet[i])+string(alphabet[j]))
		}
	}
	for _, s := range seeds {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Evaluate(%q) panicked: %v", s, r)
				}
			}()
			_, _ = Evaluate(s)
		}()
	}
}

func TestAssemble(t *testing.T) {
	if got := Assemble([]string{"2", "3", "5"}, nil, ""); got != "2 + 3 + 5" {
		t.Fatalf("default addition = %q", got)
	}
	if got := Assemble([]string{"2", "3"}, []string{"+", "*"}, "2+3*4"); got != "2+3*4" {
		t.Fatalf("freeform precedence = %q", got)
	}
	// operators without a freeform expression still fall back to addition
	if got := Assemble([]string{"2", "3"}, []string{"*"}, ""); got != "2 + 3" {
		t.Fatalf("no freeform fallback = %q", got)
	}
	if got := Assemble(nil, nil, ""); got != "" {
		t.Fatalf("empty extraction = %q, want empty", got)
	}
}
