package ine

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"datalab-backend/lib/restyutil"

	"github.com/stretchr/testify/require"
)

const indexHtml = `
<html><body>
<span class="title">Indicadores de renta media y mediana</span>
<ul>
<li><a id="t_30824" href="/jaxiT3/Tabla.htm?t=30824">Madrid.</a></li>
<li><a id="t_30896" href="/jaxiT3/Tabla.htm?t=30896">Córdoba.</a></li>
</ul>
<span class="title">Indicadores demográficos</span>
<ul>
<li><a id="t_31097" href="/jaxiT3/Tabla.htm?t=31097">Madrid</a></li>
</ul>
</body></html>`

func TestParseIndex(t *testing.T) {
	index, err := ParseIndex([]byte(indexHtml))
	require.NoError(t, err)
	require.Equal(t, Index{
		"Indicadores de renta media y mediana": {
			"Madrid":  "30824",
			"Córdoba": "30896",
		},
		"Indicadores demográficos": {
			"Madrid": "31097",
		},
	}, index)
}

func TestParseIndexEmpty(t *testing.T) {
	_, err := ParseIndex([]byte("<html><body></body></html>"))
	require.Error(t, err)
}

func TestNormalizeName(t *testing.T) {
	require.Equal(t, "cordoba", NormalizeName("Córdoba"))
	require.Equal(t, "sta cruz de tenerife", NormalizeName(" Sta. Cruz de Tenerife "))
}

func TestResolveTable(t *testing.T) {
	tables := map[string]string{
		"Córdoba":                "30896",
		"Madrid":                 "30824",
		"Santa Cruz de Tenerife": "30912",
	}

	id, err := ResolveTable(tables, "cordoba")
	require.NoError(t, err)
	require.Equal(t, "30896", id)

	// substring fallback
	id, err = ResolveTable(tables, "Tenerife")
	require.NoError(t, err)
	require.Equal(t, "30912", id)

	_, err = ResolveTable(tables, "Lugo")
	require.ErrorContains(t, err, "Lugo")
}

func TestAcceptsLabel(t *testing.T) {
	income := Indicators["income"]
	require.True(t, income.AcceptsLabel("Renta neta media por persona"))
	require.False(t, income.AcceptsLabel("Renta neta media por persona menor de 18"))

	sources := Indicators["income_sources"]
	require.True(t, sources.AcceptsLabel("Fuente de ingreso: salario"))
	require.False(t, sources.AcceptsLabel("Otra cosa"))

	demographics := Indicators["demographics"]
	require.True(t, demographics.AcceptsLabel("anything"))
}

func TestSplitCodeName(t *testing.T) {
	code, name := SplitCodeName("2807912 Madrid distrito 12")
	require.Equal(t, "2807912", code)
	require.Equal(t, "Madrid distrito 12", name)

	code, name = SplitCodeName("28079")
	require.Equal(t, "28079", code)
	require.Equal(t, "", name)

	code, name = SplitCodeName("  ")
	require.Equal(t, "", code)
	require.Equal(t, "", name)
}

func TestFiltersMatches(t *testing.T) {
	filters := NewFilters(nil, []string{"2807912"}, nil)
	require.True(t, filters.Matches(map[string]string{
		"Municipios": "28079 Madrid",
		"Distritos":  "2807912 Madrid distrito 12",
	}))
	require.False(t, filters.Matches(map[string]string{
		"Municipios": "28079 Madrid",
		"Distritos":  "2807901 Madrid distrito 01",
	}))
	require.False(t, filters.Matches(map[string]string{
		"Municipios": "28079 Madrid",
	}))

	require.True(t, NewFilters(nil, nil, nil).Matches(map[string]string{}))
}

func TestFiltersSuffix(t *testing.T) {
	require.Equal(t, "distrito-2807912",
		NewFilters(nil, []string{"2807912"}, nil).Suffix("Madrid"))
	require.Equal(t, "municipio-28005-28079_seccion-2807912001",
		NewFilters([]string{"28079", "28005"}, nil, []string{"2807912001"}).Suffix("Madrid"))
	require.Equal(t, "provincia-santa-cruz-de-tenerife",
		NewFilters(nil, nil, nil).Suffix("Santa Cruz de Tenerife"))
}

func TestYearSelector(t *testing.T) {
	all := NewYearSelector(nil, 0, 0)
	require.True(t, all.Allows("2020"))
	require.True(t, all.Allows("total"))

	ranged := NewYearSelector(nil, 2016, 2022)
	require.True(t, ranged.Allows("2016"))
	require.True(t, ranged.Allows("2022"))
	require.False(t, ranged.Allows("2015"))
	require.False(t, ranged.Allows("2023"))
	require.False(t, ranged.Allows("total"))

	picked := NewYearSelector([]int{2019, 2021}, 0, 0)
	require.True(t, picked.Allows("2019"))
	require.False(t, picked.Allows("2020"))
}

func TestTransformRow(t *testing.T) {
	row := TransformRow(map[string]string{
		"Municipios": "28079 Madrid",
		"Distritos":  "2807912 Madrid distrito 12",
		"Secciones":  "",
		"Indicadores de renta media y mediana": "Renta neta media por persona",
		"Periodo": "2020",
		"Total":   "1.234,56",
	}, "Indicadores de renta media y mediana")

	require.Equal(t, "Renta neta media por persona", row["indicator"])
	require.Equal(t, "2020", row["year"])
	require.Equal(t, "1.234,56", row["raw_value"])
	require.Equal(t, 1234.56, row["value"])
	require.Equal(t, "28079", row["municipality_code"])
	require.Equal(t, "Madrid", row["municipality_name"])
	require.Equal(t, "2807912", row["district_code"])
	require.Equal(t, "", row["section_code"])
}

func TestTransformRowPlaceholderValue(t *testing.T) {
	row := TransformRow(map[string]string{"Total": "."}, "Indicadores demográficos")
	require.Equal(t, ".", row["raw_value"])
	require.Nil(t, row["value"])
}

func TestCollectIndicator(t *testing.T) {
	table := "\xef\xbb\xbfIndicadores de renta media y mediana\tMunicipios\tDistritos\tSecciones\tPeriodo\tTotal\n" +
		"Renta neta media por persona\t28079 Madrid\t2807912 Madrid distrito 12\t\t2020\t12.345\n" +
		"Renta neta media por persona\t28079 Madrid\t2807901 Madrid distrito 01\t\t2020\t15.000\n" +
		"Renta neta media por persona menor de 18\t28079 Madrid\t2807912 Madrid distrito 12\t\t2020\t11.000\n" +
		"Renta neta media por persona\t28079 Madrid\t2807912 Madrid distrito 12\t\t2015\t10.000\n" +
		"ragged\trow\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/csv_bd/30824.csv", r.URL.Path)
		w.Write([]byte(table))
	}))
	defer server.Close()

	client := &Client{
		TableUrlBase: server.URL,
		Http:         restyutil.NewClient("ine", restyutil.Options{Timeout: time.Second * 5}),
	}

	rows, err := client.CollectIndicator(context.Background(),
		"30824", Indicators["income"],
		NewFilters(nil, []string{"2807912"}, nil),
		NewYearSelector(nil, 2016, 2022), "csv_bd")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, 12345.0, rows[0]["value"])
	require.Equal(t, "2020", rows[0]["year"])
}

func TestCollectIndicatorBadFormat(t *testing.T) {
	client := NewClient()
	_, err := client.CollectIndicator(context.Background(),
		"30824", Indicators["income"], NewFilters(nil, nil, nil),
		NewYearSelector(nil, 0, 0), "xlsx")
	require.ErrorContains(t, err, "unsupported table format")
}
