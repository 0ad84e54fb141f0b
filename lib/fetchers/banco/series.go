package banco

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"datalab-backend/lib/tabular"
)

// SeriesConfig binds a Banco de Datos series id to the years it
// covers and the labels the output records carry. The portal split
// the Idealista sale price series every time the provider revised its
// methodology, so the full history spans three ids.
type SeriesConfig struct {
	SeriesID      string
	Years         []int
	Metric        string
	SeriesLabel   string
	Methodology   string
	SourceLabel   string
	IncludeBarrio bool
}

const sourceLabel = "Banco de Datos del Ayuntamiento de Madrid"

func yearRange(from, to int) []int {
	years := make([]int, 0, to-from+1)
	for y := from; y <= to; y++ {
		years = append(years, y)
	}
	return years
}

var SalesSeries = []SeriesConfig{
	{
		SeriesID:      "0504030000151",
		Years:         yearRange(2010, 2018),
		Metric:        "sale_price",
		SeriesLabel:   "Precio vivienda segunda mano (€/m2) - metodología Idealista 2000-2018",
		Methodology:   "Idealista (antigua metodología)",
		SourceLabel:   sourceLabel,
		IncludeBarrio: true,
	},
	{
		SeriesID:      "0504030000202",
		Years:         yearRange(2019, 2022),
		Metric:        "sale_price",
		SeriesLabel:   "Precio vivienda segunda mano (€/m2) - 2019-2022",
		Methodology:   "Idealista (revisión 2019)",
		SourceLabel:   sourceLabel,
		IncludeBarrio: true,
	},
	{
		SeriesID:      "0504030000153",
		Years:         yearRange(2023, 2025),
		Metric:        "sale_price",
		SeriesLabel:   "Precio vivienda segunda mano (€/m2) - metodología actual",
		Methodology:   "Idealista (metodología vigente)",
		SourceLabel:   sourceLabel,
		IncludeBarrio: true,
	},
}

var RentSeries = []SeriesConfig{
	{
		SeriesID:    "0504030000213",
		Years:       yearRange(2010, 2024),
		Metric:      "rent_price",
		SeriesLabel: "Precio alquiler vivienda (€/m2) - distritos",
		Methodology: "Idealista (alquiler distritos)",
		SourceLabel: sourceLabel,
	},
}

// AllSeries returns the sale series followed by the rent series.
func AllSeries() []SeriesConfig {
	return append(append([]SeriesConfig{}, SalesSeries...), RentSeries...)
}

// FetchSeries runs the full selection flow for one series: open the
// selection page, pick years, district, barrios, and months, then
// export and unpivot the CSV.
func FetchSeries(ctx context.Context, client *Client, config SeriesConfig, districtLabel string) ([]tabular.Row, error) {
	page, err := client.FetchSelectionPage(ctx, config.SeriesID)
	if err != nil {
		return nil, err
	}
	variables := ParseVariables(page)

	yearVar, err := FindVariable(variables, "Año")
	if err != nil {
		return nil, err
	}
	districtVar, err := FindVariable(variables, "Distrito")
	if err != nil {
		return nil, err
	}
	var timeVar *VariableInfo
	for _, candidate := range []string{"Mes", "Trimestre", "Semestre"} {
		if v, err := FindVariable(variables, candidate); err == nil {
			timeVar = v
			break
		}
	}
	if timeVar == nil {
		return nil, fmt.Errorf("no supported time variable (Mes/Trimestre/Semestre) in series %s", config.SeriesID)
	}

	yearIDs, err := SelectYearIDs(yearVar, config.Years)
	if err != nil {
		return nil, err
	}
	districtID, err := SelectDistrictID(districtVar, districtLabel)
	if err != nil {
		return nil, err
	}

	valueIDs := append(append([]string{}, yearIDs...), districtID)
	rowVars := []string{yearVar.ID, districtVar.ID}

	includeBarrio := false
	if config.IncludeBarrio {
		if barrioVar, err := FindVariable(variables, "Barrio"); err == nil {
			barrios, err := SelectBarrios(barrioVar, districtID)
			if err != nil {
				return nil, err
			}
			for _, val := range barrios {
				valueIDs = append(valueIDs, val.ID)
			}
			rowVars = append(rowVars, barrioVar.ID)
			includeBarrio = true
		}
	}

	monthIDs := SelectMonthIDs(timeVar)
	if len(monthIDs) == 0 {
		return nil, fmt.Errorf("time variable %q carries no month values", timeVar.Name)
	}
	valueIDs = append(valueIDs, monthIDs...)

	err = client.SetFilters(ctx, rowVars, []string{timeVar.ID}, valueIDs)
	if err != nil {
		return nil, err
	}
	data, err := client.DownloadCsv(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := ParseCsv(data)
	if err != nil {
		return nil, err
	}
	return ExtractMonthlyRecords(rows, config, includeBarrio)
}

// BuildDatasets fetches every configured series for one district and
// returns the combined, sorted monthly records.
func BuildDatasets(ctx context.Context, baseUrl, districtLabel string) ([]tabular.Row, error) {
	var all []tabular.Row
	for _, config := range AllSeries() {
		slog.Info("fetching housing price series",
			"series", config.SeriesID,
			"label", config.SeriesLabel)

		// each series needs a fresh session
		client := NewClient(baseUrl)
		records, err := FetchSeries(ctx, client, config, districtLabel)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", config.SeriesID, err)
		}
		all = append(all, records...)
	}
	SortMonthly(all)
	return all, nil
}

// DistrictSlug turns a district label like "12. Usera" into a
// filename-friendly slug.
func DistrictSlug(label string) string {
	slug := strings.ToLower(strings.TrimSpace(label))
	slug = strings.TrimLeft(slug, "0123456789. ")
	return strings.ReplaceAll(slug, " ", "-")
}
