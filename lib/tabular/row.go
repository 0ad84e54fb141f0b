// Package tabular holds the row model shared by every dataset job:
// heterogeneous JSON payloads go in, flat field→value rows come out and
// get serialized to CSV/JSON on disk.
package tabular

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Row is one record of a tabular output, a mapping from field name to
// scalar value. Values are whatever encoding/json produced (string,
// float64, bool, nil) plus ints from our own transforms.
type Row = map[string]any

// FieldUnion returns the union of field names across all rows in
// first-seen order, so column order tracks the upstream payload.
func FieldUnion(rows []Row, first ...string) []string {
	fields := append([]string{}, first...)
	seen := map[string]bool{}
	for _, f := range fields {
		seen[f] = true
	}
	for _, r := range rows {
		for _, f := range sortedKeys(r) {
			if !seen[f] {
				seen[f] = true
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// Go maps have no insertion order, so "first seen" within a single row
// degrades to sorted order. Explicit field lists passed by callers keep
// the upstream layouts that matter.
func sortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RenderCell converts a row value to its CSV cell text. Missing and
// null values render empty.
func RenderCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
