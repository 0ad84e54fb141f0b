package commands

import (
	"errors"
	"log/slog"
	"path/filepath"

	"datalab-backend/lib/fetchers/ine"
	"datalab-backend/lib/history"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/tabular"

	"github.com/spf13/cobra"
)

var ineCmd = &cobra.Command{
	Use:   "ine",
	Short: "INE statistical operation jobs.",
}

var (
	ineProvince       *string
	ineMunicipalities *[]string
	ineDistricts      *[]string
	ineSections       *[]string
	ineIndicators     *[]string
	ineYears          *[]int
	ineFromYear       *int
	ineToYear         *int
	ineFormat         *string
	ineOutputDir      *string
)

func init() {
	flags := ineAtlasCmd.Flags()
	ineProvince = flags.String("province", "", "Province name as it appears in the ADRH operation.")
	ineMunicipalities = flags.StringArrayP("municipality", "m", nil, "INE municipality code to keep.")
	ineDistricts = flags.StringArrayP("district", "d", nil, "INE district code to keep.")
	ineSections = flags.StringArrayP("section", "s", nil, "INE census section code to keep.")
	ineIndicators = flags.StringArrayP("indicator", "i", nil, "Indicator groups to download (default: all).")
	ineYears = flags.IntSliceP("year", "y", nil, "Specific year to keep (repeatable).")
	ineFromYear = flags.Int("from-year", 0, "First year to include.")
	ineToYear = flags.Int("to-year", 0, "Last year to include.")
	ineFormat = flags.String("fmt", "csv_bd", "INE download format (csv_bd or csv_bdsc).")
	ineOutputDir = flags.StringP("output-dir", "o", "data/usera", "Directory for the filtered CSVs.")
	ineAtlasCmd.MarkFlagRequired("province")

	ineCmd.AddCommand(ineAtlasCmd)
	rootCmd.AddCommand(ineCmd)
}

var ineAtlasCmd = &cobra.Command{
	Use:   "atlas --province <name> [--district <code>...]",
	Short: "Downloads household income atlas indicators filtered to territories.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		slugs := *ineIndicators
		if len(slugs) == 0 {
			slugs = ine.IndicatorSlugs()
		}
		for _, slug := range slugs {
			if _, ok := ine.Indicators[slug]; !ok {
				serviceutil.Fatal("unknown indicator", errors.New(slug))
			}
		}

		filters := ine.NewFilters(*ineMunicipalities, *ineDistricts, *ineSections)
		years := ine.NewYearSelector(*ineYears, *ineFromYear, *ineToYear)

		client := ine.NewClient()
		slog.Info("downloading ADRH table index")
		index, err := client.FetchIndex(ctx)
		if err != nil {
			failFetch(*ineOutputDir, "ine_atlas", err)
		}

		total := 0
		for _, slug := range slugs {
			config := ine.Indicators[slug]
			tables, ok := index[config.GroupName]
			if !ok {
				slog.Error("section missing from ADRH index", "section", config.GroupName)
				continue
			}
			tableID, err := ine.ResolveTable(tables, *ineProvince)
			if err != nil {
				slog.Error("failed to resolve table", "err", err)
				continue
			}

			slog.Info("processing indicator", "group", config.GroupName, "table", tableID)
			rows, err := client.CollectIndicator(ctx, tableID, config, filters, years, *ineFormat)
			if err != nil {
				failFetch(*ineOutputDir, "ine_atlas", err)
			}

			target := filepath.Join(*ineOutputDir, config.Slug+"_"+filters.Suffix(*ineProvince)+".csv")
			err = sink.WriteCSV(target, rows, tabular.WriteOptions{Fields: ine.OutputFields})
			if err != nil {
				serviceutil.Fatal("failed to write csv", err)
			}
			slog.Info("saved indicator rows", "rows", len(rows), "path", target)
			total += len(rows)
		}

		recordRun(ctx, "ine_atlas", total, history.StatusOK)
	},
}
