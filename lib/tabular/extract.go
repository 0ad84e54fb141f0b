package tabular

// keys upstream APIs conventionally hang their record list on. the
// ciudadesabiertas API uses "data" and "records", datos.madrid.es uses
// "@graph".
var candidateKeys = []string{
	"data",
	"records",
	"@graph",
	"result",
	"results",
	"items",
	"rows",
}

// ExtractRows finds the list of record-like objects inside a decoded
// JSON payload. A bare list of objects is returned as-is; for objects
// the conventional keys are tried first, then every value is scanned
// for the first list of objects. Returns an empty (non-nil) slice when
// nothing matches.
func ExtractRows(payload any) []Row {
	if rows, ok := asRowList(payload); ok {
		return rows
	}
	obj, ok := payload.(map[string]any)
	if !ok {
		return []Row{}
	}
	for _, key := range candidateKeys {
		if rows, ok := asRowList(obj[key]); ok {
			return rows
		}
	}
	// fall back to the first list of objects anywhere in the payload,
	// scanned in sorted key order so the choice is deterministic
	for _, key := range sortedKeys(obj) {
		if rows, ok := asRowList(obj[key]); ok {
			return rows
		}
	}
	return []Row{}
}

func asRowList(v any) ([]Row, bool) {
	list, ok := v.([]any)
	if !ok {
		return nil, false
	}
	if len(list) > 0 {
		if _, ok := list[0].(map[string]any); !ok {
			return nil, false
		}
	}
	rows := make([]Row, 0, len(list))
	for _, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			// downstream code tolerates missing fields, not
			// missing rows; skip anything non-object
			continue
		}
		rows = append(rows, obj)
	}
	return rows, true
}
