package eval

import "strings"

// Assemble decides the expression string to evaluate from an OCR extraction.
// When the model detected operators and offered a best-guess expression, the
// expression is the richer signal and is returned verbatim. Otherwise the
// numbers are joined with " + ": absence of detected operators means the
// user wants a simple sum. With no numbers either, the result is empty and
// must be treated as "no equation found", not evaluated.
func Assemble(numbers, operators []string, freeform string) string {
	if len(operators) > 0 && strings.TrimSpace(freeform) != "" {
		return freeform
	}
	return strings.Join(numbers, " + ")
}
