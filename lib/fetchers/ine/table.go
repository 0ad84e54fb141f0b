package ine

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"datalab-backend/lib/tabular"
)

const DefaultTableUrlBase = "https://www.ine.es/jaxiT3/files/t"

// SupportedFormats are the INE bulk-download flavors: csv_bd uses
// period codes, csv_bdsc spells them out.
var SupportedFormats = map[string]bool{"csv_bd": true, "csv_bdsc": true}

func (c *Client) tableUrl(format, tableID string) (string, error) {
	if !SupportedFormats[format] {
		return "", fmt.Errorf("unsupported table format %q", format)
	}
	return fmt.Sprintf("%s/%s/%s.csv", c.TableUrlBase, format, tableID), nil
}

// StreamTable downloads a table and calls each for every well-formed
// record. The files are tab-separated with a UTF-8 BOM on the header;
// ragged rows are skipped, matching how the INE pads its exports.
func (c *Client) StreamTable(ctx context.Context, tableID, format string, each func(map[string]string) bool) error {
	url, err := c.tableUrl(format, tableID)
	if err != nil {
		return err
	}

	res, err := c.Http.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return err
	}
	body := res.RawBody()
	defer body.Close()
	if res.IsError() {
		return fmt.Errorf("HTTP %d downloading table %s", res.StatusCode(), tableID)
	}

	reader := csv.NewReader(body)
	reader.Comma = '\t'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	header[0] = strings.TrimPrefix(header[0], "\xef\xbb\xbf")

	for {
		record, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(record) != len(header) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, value := range record {
			row[header[i]] = value
		}
		if !each(row) {
			return nil
		}
	}
}

// SplitCodeName splits an INE territory cell like "2807912 Madrid
// distrito 12" into its leading code and the remaining name.
func SplitCodeName(cell string) (code, name string) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return "", ""
	}
	code, name, found := strings.Cut(cell, " ")
	if !found {
		return cell, ""
	}
	return code, strings.TrimSpace(name)
}

// Filters keeps only rows whose territory codes appear in the
// configured sets. Empty sets match everything.
type Filters struct {
	Municipalities map[string]bool
	Districts      map[string]bool
	Sections       map[string]bool
}

func NewFilters(municipalities, districts, sections []string) Filters {
	return Filters{
		Municipalities: toSet(municipalities),
		Districts:      toSet(districts),
		Sections:       toSet(sections),
	}
}

func toSet(values []string) map[string]bool {
	set := map[string]bool{}
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = true
		}
	}
	return set
}

func (f Filters) Matches(row map[string]string) bool {
	checks := []struct {
		field string
		codes map[string]bool
	}{
		{"Municipios", f.Municipalities},
		{"Distritos", f.Districts},
		{"Secciones", f.Sections},
	}
	for _, check := range checks {
		if len(check.codes) == 0 {
			continue
		}
		code, _ := SplitCodeName(row[check.field])
		if code == "" || !check.codes[code] {
			return false
		}
	}
	return true
}

// Suffix builds the output filename suffix from the active territory
// filters, falling back to the province name when none are set.
func (f Filters) Suffix(province string) string {
	var parts []string
	if len(f.Municipalities) > 0 {
		parts = append(parts, "municipio-"+strings.Join(sortedCodes(f.Municipalities), "-"))
	}
	if len(f.Districts) > 0 {
		parts = append(parts, "distrito-"+strings.Join(sortedCodes(f.Districts), "-"))
	}
	if len(f.Sections) > 0 {
		parts = append(parts, "seccion-"+strings.Join(sortedCodes(f.Sections), "-"))
	}
	if len(parts) == 0 {
		parts = append(parts, "provincia-"+strings.ReplaceAll(NormalizeName(province), " ", "-"))
	}
	return strings.Join(parts, "_")
}

func sortedCodes(set map[string]bool) []string {
	codes := make([]string, 0, len(set))
	for code := range set {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// YearSelector keeps periods that fall inside the configured years or
// range. Non-numeric periods pass only when no constraint is set.
type YearSelector struct {
	Years map[int]bool
	Start int
	End   int
}

func NewYearSelector(years []int, start, end int) YearSelector {
	selector := YearSelector{Start: start, End: end}
	if len(years) > 0 {
		selector.Years = map[int]bool{}
		for _, y := range years {
			selector.Years[y] = true
		}
	}
	return selector
}

func (s YearSelector) Allows(period string) bool {
	period = strings.TrimSpace(period)
	year, err := strconv.Atoi(period)
	if err != nil {
		return s.Years == nil && s.Start == 0 && s.End == 0
	}
	if s.Years != nil && !s.Years[year] {
		return false
	}
	if s.Start != 0 && year < s.Start {
		return false
	}
	if s.End != 0 && year > s.End {
		return false
	}
	return true
}

// OutputFields is the column layout of the filtered indicator CSVs.
var OutputFields = []string{
	"indicator", "year", "raw_value", "value",
	"municipality_code", "municipality_name",
	"district_code", "district_name",
	"section_code", "section_name",
}

// TransformRow reshapes a raw table record into the output layout,
// splitting territory cells and normalizing the Spanish decimal value.
func TransformRow(row map[string]string, columnName string) tabular.Row {
	municipalityCode, municipalityName := SplitCodeName(row["Municipios"])
	districtCode, districtName := SplitCodeName(row["Distritos"])
	sectionCode, sectionName := SplitCodeName(row["Secciones"])
	rawValue := strings.TrimSpace(row["Total"])

	out := tabular.Row{
		"indicator":         strings.TrimSpace(row[columnName]),
		"year":              strings.TrimSpace(row["Periodo"]),
		"raw_value":         rawValue,
		"value":             nil,
		"municipality_code": municipalityCode,
		"municipality_name": municipalityName,
		"district_code":     districtCode,
		"district_name":     districtName,
		"section_code":      sectionCode,
		"section_name":      sectionName,
	}
	if value, ok := tabular.ParseSpanishFloat(rawValue); ok {
		out["value"] = value
	}
	return out
}

// CollectIndicator streams one indicator's table and returns the rows
// passing the territory, label, and year filters.
func (c *Client) CollectIndicator(ctx context.Context, tableID string, config IndicatorConfig, filters Filters, years YearSelector, format string) ([]tabular.Row, error) {
	var rows []tabular.Row
	err := c.StreamTable(ctx, tableID, format, func(record map[string]string) bool {
		if !filters.Matches(record) {
			return true
		}
		if !config.AcceptsLabel(strings.TrimSpace(record[config.ColumnName])) {
			return true
		}
		if !years.Allows(record["Periodo"]) {
			return true
		}
		rows = append(rows, TransformRow(record, config.ColumnName))
		return true
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
