package tabular

import (
	"encoding/csv"
	"encoding/json"
	"io"
)

// WriteOptions control CSV serialization.
type WriteOptions struct {
	// Fields forces column names and order. Empty means the union of
	// fields across all rows.
	Fields []string
	// TypeRow adds a second header row with the inferred type tag of
	// each column.
	TypeRow bool
}

// WriteCSV serializes rows with a header built from the union of field
// names. Missing fields render as empty cells. Zero rows produce no
// output at all, matching the empty-file convention downstream
// consumers already check for.
func WriteCSV(w io.Writer, rows []Row, opts WriteOptions) error {
	if len(rows) == 0 && len(opts.Fields) == 0 {
		return nil
	}
	fields := opts.Fields
	if len(fields) == 0 {
		fields = FieldUnion(rows)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(fields); err != nil {
		return err
	}
	if opts.TypeRow {
		types := make([]string, len(fields))
		for i, f := range fields {
			types[i] = inferColumnType(rows, f)
		}
		if err := cw.Write(types); err != nil {
			return err
		}
	}
	record := make([]string, len(fields))
	for _, r := range rows {
		for i, f := range fields {
			record[i] = RenderCell(r[f])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// inferColumnType tags a column with the dominant scalar type of its
// values: string dominates number dominates boolean dominates null.
func inferColumnType(rows []Row, field string) string {
	tag := "null"
	for _, r := range rows {
		switch r[field].(type) {
		case string:
			return "string"
		case float64, float32, int, int64, json.Number:
			tag = "number"
		case bool:
			if tag == "null" {
				tag = "boolean"
			}
		}
	}
	return tag
}

// ReadCSV reads a header row plus data rows into string-valued rows.
// Type tags are not reconstructed; a second call site that wrote a type
// row must skip it itself.
func ReadCSV(r io.Reader) ([]Row, []string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return []Row{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var rows []Row
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		row := Row{}
		for i, field := range header {
			if i < len(record) {
				row[field] = record[i]
			} else {
				row[field] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, header, nil
}
