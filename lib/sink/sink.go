// Package sink writes job output under the dated directory convention
// `<root>/<dataset>/<date>/`, with a stamped copy per run and a
// `latest` copy overwritten every run.
package sink

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"datalab-backend/lib/tabular"
)

// Timestamp renders a UTC instant the way run-stamped filenames expect
// it, with dashes instead of colons so the name stays portable.
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15-04-05Z")
}

// DatedDir returns (and creates) `<root>/<dataset>/<date>/` for the
// given run date.
func DatedDir(root, dataset, date string) (string, error) {
	dir := filepath.Join(root, dataset, date)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// WriteFile writes through a temp file and renames into place, so a
// crashed run never leaves a truncated latest file behind.
func WriteFile(path string, contents []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, contents, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// WriteIfChanged writes only when the target differs from contents and
// reports whether it wrote.
func WriteIfChanged(path string, contents []byte) (bool, error) {
	current, err := os.ReadFile(path)
	if err == nil && bytes.Equal(current, contents) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	return true, WriteFile(path, contents)
}

// WriteJSON serializes a payload to path with the shared indentation
// conventions.
func WriteJSON(path string, payload any) error {
	var buf bytes.Buffer
	if err := tabular.WriteJSON(&buf, payload); err != nil {
		return err
	}
	return WriteFile(path, buf.Bytes())
}

// WriteCSV serializes rows to path.
func WriteCSV(path string, rows []tabular.Row, opts tabular.WriteOptions) error {
	var buf bytes.Buffer
	if err := tabular.WriteCSV(&buf, rows, opts); err != nil {
		return err
	}
	return WriteFile(path, buf.Bytes())
}

// Sentinel is the diagnostic payload written in place of normal output
// when a fetch fails, so downstream consumers can tell "no data this
// run" from "job never ran".
type Sentinel struct {
	Dataset   string `json:"dataset"`
	Error     string `json:"error"`
	FetchedAt string `json:"fetched_at"`
	Rows      int    `json:"rows"`
}

// WriteSentinel drops a sentinel.json next to where the real output
// would have gone.
func WriteSentinel(dir, dataset string, cause error) error {
	return WriteJSON(filepath.Join(dir, "sentinel.json"), Sentinel{
		Dataset:   dataset,
		Error:     cause.Error(),
		FetchedAt: Timestamp(time.Now()),
	})
}

// AppendHistory appends rows to a cumulative CSV file, writing the
// header only when the file is created. Column order follows the
// existing file's header once one exists.
func AppendHistory(path string, rows []tabular.Row, fields []string) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	existing, err := os.Open(path)
	writeHeader := false
	switch {
	case os.IsNotExist(err):
		writeHeader = true
	case err != nil:
		return err
	default:
		_, header, err := tabular.ReadCSV(existing)
		existing.Close()
		if err != nil {
			return err
		}
		if len(header) > 0 {
			fields = header
		} else {
			writeHeader = true
		}
	}

	if len(fields) == 0 {
		fields = tabular.FieldUnion(rows)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	if !writeHeader {
		// header already on disk, emit data rows only
		var full bytes.Buffer
		if err := tabular.WriteCSV(&full, rows, tabular.WriteOptions{Fields: fields}); err != nil {
			return err
		}
		idx := bytes.IndexByte(full.Bytes(), '\n')
		if idx >= 0 {
			buf.Write(full.Bytes()[idx+1:])
		}
	} else {
		if err := tabular.WriteCSV(&buf, rows, tabular.WriteOptions{Fields: fields}); err != nil {
			return err
		}
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return err
	}
	return nil
}

// LatestAndStamped returns the pair of output paths a run writes for a
// given extension, e.g. latest.csv plus calair_tiemporeal_<ts>.csv.
func LatestAndStamped(dir, prefix, ext string, at time.Time) (string, string) {
	latest := filepath.Join(dir, "latest"+ext)
	stamped := filepath.Join(dir, fmt.Sprintf("%s_%s%s", prefix, Timestamp(at), ext))
	return latest, stamped
}
