package ine

import "strings"

// IndicatorConfig names one ADRH indicator group and the label filters
// that trim the group's table down to the indicators we keep.
type IndicatorConfig struct {
	Slug       string
	GroupName  string
	ColumnName string
	// LabelFilters accepts exact labels, or prefixes when the pattern
	// ends with "*". Empty means keep every label.
	LabelFilters []string
}

func (c IndicatorConfig) AcceptsLabel(label string) bool {
	if len(c.LabelFilters) == 0 {
		return true
	}
	clean := strings.TrimSpace(label)
	for _, raw := range c.LabelFilters {
		pattern := strings.TrimSpace(raw)
		if pattern == "" {
			continue
		}
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
			if strings.HasPrefix(clean, prefix) {
				return true
			}
		} else if clean == pattern {
			return true
		}
	}
	return false
}

var Indicators = map[string]IndicatorConfig{
	"income": {
		Slug:       "income",
		GroupName:  "Indicadores de renta media y mediana",
		ColumnName: "Indicadores de renta media y mediana",
		LabelFilters: []string{
			"Renta neta media por persona",
			"Renta bruta media por persona",
			"Renta bruta media por hogar",
			"Mediana de la renta por unidad de consumo",
		},
	},
	"income_sources": {
		Slug:         "income_sources",
		GroupName:    "Distribución por fuente de ingresos",
		ColumnName:   "Distribución por fuente de ingresos",
		LabelFilters: []string{"Fuente de ingreso:*"},
	},
	"inequality": {
		Slug:         "inequality",
		GroupName:    "Índice de Gini y Distribución de la renta P80/P20",
		ColumnName:   "Índice de Gini y Distribución de la renta P80/P20",
		LabelFilters: []string{"Índice de Gini", "Distribución de la renta P80/P20"},
	},
	"demographics": {
		Slug:       "demographics",
		GroupName:  "Indicadores demográficos",
		ColumnName: "Indicadores demográficos",
	},
}

// IndicatorSlugs returns the known slugs, for flag validation.
func IndicatorSlugs() []string {
	return []string{"demographics", "income", "income_sources", "inequality"}
}
