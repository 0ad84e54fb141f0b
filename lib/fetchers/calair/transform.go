package calair

import (
	"fmt"
	"strings"
	"time"

	"datalab-backend/lib/tabular"
	"datalab-backend/lib/timezone"
)

// FlatFields is the column layout of the flattened hourly CSV, kept
// stable for downstream consumers.
var FlatFields = []string{
	"PROVINCIA",
	"MUNICIPIO",
	"ESTACION",
	"MAGNITUD",
	"PUNTO_MUESTREO",
	"ANO",
	"MES",
	"DIA",
	"Hora",
	"Valor",
	"Validacion",
}

// LongFields is the column layout of the long per-measurement rows
// shared by the accumulated and unpivoted outputs.
var LongFields = []string{
	"station_id",
	"title",
	"relation",
	"magnitud",
	"valor",
	"fecha",
}

func cell(r tabular.Row, field string) string {
	return tabular.RenderCell(r[field])
}

func zfill(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// StationID derives a station identifier from a wide hourly record:
// the PUNTO_MUESTREO code when present, else zero-padded
// province+municipality+station codes concatenated.
func StationID(r tabular.Row) string {
	if pm := cell(r, "PUNTO_MUESTREO"); pm != "" {
		return pm
	}
	return zfill(cell(r, "PROVINCIA"), 2) +
		zfill(cell(r, "MUNICIPIO"), 3) +
		zfill(cell(r, "ESTACION"), 3)
}

// FilterDay keeps records whose ANO/MES/DIA columns match the given
// zero-padded date parts.
func FilterDay(recs []tabular.Row, year, month, day string) []tabular.Row {
	var out []tabular.Row
	for _, r := range recs {
		if cell(r, "ANO") == year && cell(r, "MES") == month && cell(r, "DIA") == day {
			out = append(out, r)
		}
	}
	return out
}

// FilterYesterday keeps records for yesterday's Madrid civil date.
func FilterYesterday(recs []tabular.Row) []tabular.Row {
	y, m, d := timezone.YesterdayYMD()
	return FilterDay(recs, y, m, d)
}

// UnpivotValidated turns one wide hourly record into long rows, one per
// hour that carries a validated ("V") non-empty value. Hour column h
// holds the measurement for the interval starting at h-1 Madrid time.
func UnpivotValidated(r tabular.Row, year, month, day string, stations Stations) []tabular.Row {
	sid := StationID(r)
	mag := cell(r, "MAGNITUD")

	date, err := time.ParseInLocation("2006-01-02", fmt.Sprintf("%s-%s-%s", year, month, day), timezone.Location)
	if err != nil {
		return nil
	}

	var out []tabular.Row
	for h := 1; h <= 24; h++ {
		hh := fmt.Sprintf("%02d", h)
		if cell(r, "V"+hh) != "V" {
			continue
		}
		val := cell(r, "H"+hh)
		if val == "" {
			continue
		}
		ts := date.Add(time.Duration(h-1) * time.Hour)
		out = append(out, tabular.Row{
			"station_id": sid,
			"title":      stations.Name(sid),
			"relation":   "",
			"magnitud":   mag,
			"valor":      val,
			"fecha":      ts.Format(time.RFC3339),
		})
	}
	return out
}

// UnpivotFlat turns one wide hourly record into flat rows keyed by the
// original upstream columns plus Hora/Valor/Validacion, keeping every
// non-empty hour value regardless of its validation flag.
func UnpivotFlat(r tabular.Row) []tabular.Row {
	base := tabular.Row{}
	for _, f := range FlatFields[:8] {
		base[f] = cell(r, f)
	}

	var out []tabular.Row
	for h := 1; h <= 24; h++ {
		hh := fmt.Sprintf("%02d", h)
		val := cell(r, "H"+hh)
		if val == "" {
			continue
		}
		row := tabular.Row{}
		for k, v := range base {
			row[k] = v
		}
		row["Hora"] = h
		row["Valor"] = val
		row["Validacion"] = cell(r, "V"+hh)
		out = append(out, row)
	}
	return out
}

// AccumulatedRows flattens the datos.madrid.es accumulated payload:
// one row per station and contaminant measurement found under @graph.
func AccumulatedRows(payload any) []tabular.Row {
	var out []tabular.Row
	for _, station := range tabular.ExtractRows(payload) {
		base := tabular.Row{
			"station_id": cell(station, "@id"),
			"title":      cell(station, "title"),
			"relation":   cell(station, "relation"),
		}
		measurements, _ := station["medicion"].([]any)
		for _, m := range measurements {
			mr, ok := m.(map[string]any)
			if !ok {
				continue
			}
			row := tabular.Row{}
			for k, v := range base {
				row[k] = v
			}
			row["magnitud"] = cell(mr, "magnitud")
			row["valor"] = mr["valor"]
			row["fecha"] = cell(mr, "fecha")
			out = append(out, row)
		}
	}
	return out
}
