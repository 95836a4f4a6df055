package eval

import "errors"

// ErrInvalidExpression is returned when a string cannot be evaluated to a
// finite number. Callers treat it as a normal, correctable outcome.
var ErrInvalidExpression = errors.New("invalid expression")
