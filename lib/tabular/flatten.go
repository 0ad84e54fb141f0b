package tabular

import "strconv"

// Flatten collapses nested objects and arrays into a single-level row
// with dotted keys: {"a": {"b": 1}} becomes {"a.b": 1} and list
// elements get their index as a key segment.
func Flatten(r Row) Row {
	out := Row{}
	flattenInto(out, "", r)
	return out
}

func flattenInto(out Row, prefix string, r Row) {
	for _, key := range sortedKeys(r) {
		flattenValue(out, joinKey(prefix, key), r[key])
	}
}

func flattenValue(out Row, key string, v any) {
	switch val := v.(type) {
	case map[string]any:
		flattenInto(out, key, val)
	case []any:
		for i, sub := range val {
			flattenValue(out, joinKey(key, strconv.Itoa(i)), sub)
		}
	default:
		out[key] = v
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
