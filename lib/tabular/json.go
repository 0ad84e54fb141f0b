package tabular

import (
	"encoding/json"
	"io"
)

// WriteJSON serializes a payload with two-space indentation and
// without escaping non-ASCII text, so the Spanish station and street
// names stay readable in the committed files.
func WriteJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
