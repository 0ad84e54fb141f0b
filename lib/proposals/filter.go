// Package proposals filters and summarizes Decide Madrid
// participation proposal exports.
package proposals

import (
	"bytes"
	"encoding/csv"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"datalab-backend/lib/tabular"

	"golang.org/x/text/encoding/charmap"
)

// ReadCsv loads a proposals export. The portal has shipped both UTF-8
// and latin-1 files over the years, so bytes that do not decode as
// UTF-8 fall back to ISO 8859-1.
func ReadCsv(path string) (header []string, rows []map[string]string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		data, err = charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, nil, err
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, nil
	}

	header = make([]string, len(records[0]))
	for i, name := range records[0] {
		header[i] = strings.TrimSpace(name)
	}
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}

var createdAtDate = regexp.MustCompile(`(\d{2}/\d{2}/\d{4})`)

// ExtractDate pulls a dd/mm/yyyy date out of a created_at cell,
// ignoring trailing tokens like an hour fragment.
func ExtractDate(value string) (time.Time, bool) {
	match := createdAtDate.FindString(strings.TrimSpace(value))
	if match == "" {
		return time.Time{}, false
	}
	parsed, err := time.Parse("02/01/2006", match)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// FilterOptions bound the created_at date range inclusively. A zero
// To leaves the range open-ended. DropColumns are removed from the
// output layout.
type FilterOptions struct {
	From        time.Time
	To          time.Time
	DropColumns []string
}

// Filter keeps rows whose created_at date falls inside the range
// and projects away the dropped columns. Rows without a parseable
// date are discarded.
func Filter(header []string, rows []map[string]string, opts FilterOptions) ([]string, []tabular.Row) {
	dropped := map[string]bool{}
	for _, name := range opts.DropColumns {
		dropped[name] = true
	}

	var kept []string
	for _, name := range header {
		if name != "" && !dropped[name] {
			kept = append(kept, name)
		}
	}

	var out []tabular.Row
	for _, row := range rows {
		date, ok := ExtractDate(row["created_at"])
		if !ok {
			continue
		}
		if date.Before(opts.From) {
			continue
		}
		if !opts.To.IsZero() && date.After(opts.To) {
			continue
		}
		projected := make(tabular.Row, len(kept))
		for _, name := range kept {
			projected[name] = row[name]
		}
		out = append(out, projected)
	}
	return kept, out
}
