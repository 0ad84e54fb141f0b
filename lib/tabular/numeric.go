package tabular

import (
	"strconv"
	"strings"
)

// ParseSpanishFloat normalizes numbers formatted with dots as thousand
// separators and a decimal comma: "1.234,56" parses to 1234.56 and
// "1,23" to 1.23. Empty strings and the INE placeholder values (".",
// "..", "...") report ok=false, as does anything unparseable; callers
// map that to a null, never an error.
func ParseSpanishFloat(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	switch raw {
	case "", ".", "..", "...":
		return 0, false
	}
	normalized := strings.ReplaceAll(raw, ".", "")
	normalized = strings.ReplaceAll(normalized, ",", ".")
	v, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
