package banco

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"datalab-backend/lib/tabular"
)

var MonthsOrder = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthIndex maps Spanish month names to 1-based calendar positions.
var MonthIndex = func() map[string]int {
	m := make(map[string]int, len(MonthsOrder))
	for i, name := range MonthsOrder {
		m[name] = i + 1
	}
	return m
}()

// MonthlyFields is the column layout of the normalized monthly CSV.
var MonthlyFields = []string{
	"date", "year", "month", "metric",
	"series_id", "series_label", "methodology", "source",
	"territory_level", "territory_code", "territory_name",
	"price_eur_m2",
}

// YearlyFields is the column layout of the yearly averages CSV.
var YearlyFields = []string{
	"year", "metric",
	"series_id", "series_label", "methodology", "source",
	"territory_level", "territory_code", "territory_name",
	"observations", "average_price_eur_m2",
}

// ParseCsv decodes a Banco de Datos export: semicolon separated,
// UTF-8 with BOM, padded with fully blank rows.
func ParseCsv(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	all, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	var rows [][]string
	for _, row := range all {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				rows = append(rows, row)
				break
			}
		}
	}
	return rows, nil
}

var leadingDigits = regexp.MustCompile(`^(\d+)`)

func territoryCode(label string) string {
	return leadingDigits.FindString(label)
}

// ExtractMonthlyRecords unpivots a parsed export into one record per
// territory and month. The header row is found by looking for month
// names; rows before it are the export's title block. Rows whose
// barrio label repeats the district label are the district totals.
func ExtractMonthlyRecords(rows [][]string, config SeriesConfig, includeBarrio bool) ([]tabular.Row, error) {
	headerIdx := -1
	for idx, row := range rows {
		for _, cell := range row {
			if _, ok := MonthIndex[cell]; ok {
				headerIdx = idx
				break
			}
		}
		if headerIdx >= 0 {
			break
		}
	}
	if headerIdx < 0 {
		return nil, fmt.Errorf("no header row with month names in series export")
	}

	headerRow := rows[headerIdx]
	descriptorCount := 0
	for descriptorCount < len(headerRow) && headerRow[descriptorCount] == "" {
		descriptorCount++
	}
	var monthNames []string
	for _, cell := range headerRow[descriptorCount:] {
		if cell != "" {
			monthNames = append(monthNames, cell)
		}
	}

	var records []tabular.Row
	for _, row := range rows[headerIdx+1:] {
		if len(row) == 0 {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			continue
		}
		if len(row) < descriptorCount {
			continue
		}

		districtLabel := ""
		if descriptorCount > 1 {
			districtLabel = strings.TrimSpace(row[1])
		}
		barrioLabel := ""
		if includeBarrio && descriptorCount > 2 {
			barrioLabel = strings.TrimSpace(row[2])
		}

		level := "district"
		code := territoryCode(districtLabel)
		name := districtLabel
		if barrioLabel != "" && !strings.EqualFold(barrioLabel, districtLabel) {
			level = "barrio"
			code = territoryCode(barrioLabel)
			name = barrioLabel
		}

		monthValues := row[descriptorCount:]
		for i, monthName := range monthNames {
			monthIdx, ok := MonthIndex[monthName]
			if !ok || i >= len(monthValues) {
				continue
			}

			var price any
			clean := strings.TrimSpace(monthValues[i])
			if clean != "" && clean != ".." && clean != "0" {
				if parsed, err := strconv.ParseFloat(strings.ReplaceAll(clean, ",", "."), 64); err == nil {
					price = parsed
				}
			}

			records = append(records, tabular.Row{
				"date":            fmt.Sprintf("%04d-%02d-01", year, monthIdx),
				"year":            year,
				"month":           monthIdx,
				"metric":          config.Metric,
				"series_id":       config.SeriesID,
				"series_label":    config.SeriesLabel,
				"methodology":     config.Methodology,
				"source":          config.SourceLabel,
				"territory_level": level,
				"territory_code":  code,
				"territory_name":  name,
				"price_eur_m2":    price,
			})
		}
	}
	return records, nil
}

// SortMonthly orders records by metric, territory, and date, which is
// the layout the published monthly dataset uses.
func SortMonthly(records []tabular.Row) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a["metric"] != b["metric"] {
			return a["metric"].(string) < b["metric"].(string)
		}
		if a["territory_level"] != b["territory_level"] {
			return a["territory_level"].(string) < b["territory_level"].(string)
		}
		if a["territory_code"] != b["territory_code"] {
			return a["territory_code"].(string) < b["territory_code"].(string)
		}
		return a["date"].(string) < b["date"].(string)
	})
}

// AggregateYearly averages the non-null monthly prices per series,
// territory, and year. Averages carry two decimals.
func AggregateYearly(records []tabular.Row) []tabular.Row {
	type bucket struct {
		row   tabular.Row
		sum   float64
		count int
	}
	buckets := map[string]*bucket{}
	var order []string

	for _, rec := range records {
		price, ok := rec["price_eur_m2"].(float64)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%v|%v|%v|%v", rec["metric"], rec["series_id"], rec["territory_code"], rec["year"])
		b, seen := buckets[key]
		if !seen {
			b = &bucket{row: tabular.Row{
				"year":            rec["year"],
				"metric":          rec["metric"],
				"series_id":       rec["series_id"],
				"series_label":    rec["series_label"],
				"methodology":     rec["methodology"],
				"source":          rec["source"],
				"territory_level": rec["territory_level"],
				"territory_code":  rec["territory_code"],
				"territory_name":  rec["territory_name"],
			}}
			buckets[key] = b
			order = append(order, key)
		}
		b.sum += price
		b.count++
	}

	yearly := make([]tabular.Row, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		b.row["observations"] = b.count
		avg := b.sum / float64(b.count)
		b.row["average_price_eur_m2"] = math.Round(avg*100) / 100
		yearly = append(yearly, b.row)
	}

	sort.SliceStable(yearly, func(i, j int) bool {
		a, b := yearly[i], yearly[j]
		if a["metric"] != b["metric"] {
			return a["metric"].(string) < b["metric"].(string)
		}
		if a["territory_level"] != b["territory_level"] {
			return a["territory_level"].(string) < b["territory_level"].(string)
		}
		if a["territory_code"] != b["territory_code"] {
			return a["territory_code"].(string) < b["territory_code"].(string)
		}
		return a["year"].(int) < b["year"].(int)
	})
	return yearly
}
