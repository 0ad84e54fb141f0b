package calair

import (
	"fmt"
	"os"
	"strings"

	"datalab-backend/lib/tabular"
)

// Stations is the local lookup table mapping sampling point codes
// (PUNTO_MUESTREO prefix) to station names. The upstream hourly table
// only carries codes.
type Stations map[string]string

// LoadStations reads a lookup CSV with punto_muestreo and name
// columns. A missing path yields an empty table, not an error; the
// join is best-effort.
func LoadStations(path string) (Stations, error) {
	if path == "" {
		return Stations{}, nil
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return Stations{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, header, err := tabular.ReadCSV(f)
	if err != nil {
		return nil, err
	}
	codeField, nameField := "punto_muestreo", "name"
	if len(header) >= 2 && (rows == nil || rows[0][codeField] == nil) {
		codeField, nameField = header[0], header[1]
	}

	out := Stations{}
	for _, r := range rows {
		code := tabular.RenderCell(r[codeField])
		if code == "" {
			continue
		}
		out[code] = tabular.RenderCell(r[nameField])
	}
	if len(out) == 0 && len(rows) > 0 {
		return nil, fmt.Errorf("station lookup %s has no usable code column", path)
	}
	return out, nil
}

// Name resolves a station id to its name, trying the full sampling
// point code first and then its station prefix (the part before "_").
// Unknown stations resolve to the empty string.
func (s Stations) Name(stationID string) string {
	if name, ok := s[stationID]; ok {
		return name
	}
	if prefix, _, found := strings.Cut(stationID, "_"); found {
		return s[prefix]
	}
	return ""
}
