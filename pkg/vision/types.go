package vision

// Extraction is what the remote model reads off an image of handwritten
// arithmetic: ordered numeric tokens kept as strings to preserve their
// formatting, ordered operator tokens, and an optional best-guess
// expression. Immutable once produced.
type Extraction struct {
	Expression string   `json:"expression"`
	Numbers    []string `json:"numbers"`
	Operators  []string `json:"operators"`
}

// Empty reports a successful extraction that found no equation at all.
// This is an informational state, distinct from an extraction failure.
func (e Extraction) Empty() bool {
	return len(e.Numbers) == 0 && len(e.Operators) == 0 && e.Expression == ""
}
