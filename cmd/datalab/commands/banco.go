package commands

import (
	"log/slog"
	"path/filepath"

	"datalab-backend/lib/fetchers/banco"
	"datalab-backend/lib/history"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/tabular"

	"github.com/spf13/cobra"
)

var bancoCmd = &cobra.Command{
	Use:   "banco",
	Short: "Banco de Datos (Ayuntamiento de Madrid) jobs.",
}

var (
	bancoDistrictLabel *string
	bancoMonthlyOutput *string
	bancoYearlyOutput  *string
	bancoBaseUrl       *string
)

func init() {
	flags := bancoPricesCmd.Flags()
	bancoDistrictLabel = flags.String("district-label", "12. Usera", "District label as it appears in Banco de Datos.")
	bancoMonthlyOutput = flags.String("monthly-output", "data/usera_housing_prices_monthly.csv", "Path for the normalized monthly dataset.")
	bancoYearlyOutput = flags.String("yearly-output", "data/usera_housing_prices_yearly.csv", "Path for the yearly averages.")
	bancoBaseUrl = flags.String("base-url", banco.DefaultBaseUrl, "Banco de Datos base URL.")

	bancoCmd.AddCommand(bancoPricesCmd)
	rootCmd.AddCommand(bancoCmd)
}

var bancoPricesCmd = &cobra.Command{
	Use:   "prices [--district-label <label>]",
	Short: "Builds monthly and yearly housing price datasets for one district.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		monthly, err := banco.BuildDatasets(ctx, *bancoBaseUrl, *bancoDistrictLabel)
		if err != nil {
			failFetch(filepath.Dir(*bancoMonthlyOutput), "housing_prices", err)
		}

		err = sink.WriteCSV(*bancoMonthlyOutput, monthly, tabular.WriteOptions{Fields: banco.MonthlyFields})
		if err != nil {
			serviceutil.Fatal("failed to write monthly csv", err)
		}

		yearly := banco.AggregateYearly(monthly)
		err = sink.WriteCSV(*bancoYearlyOutput, yearly, tabular.WriteOptions{Fields: banco.YearlyFields})
		if err != nil {
			serviceutil.Fatal("failed to write yearly csv", err)
		}

		recordRun(ctx, "housing_prices", len(monthly), history.StatusOK)
		slog.Info("saved housing price datasets",
			"monthly_rows", len(monthly),
			"yearly_rows", len(yearly),
			"district", *bancoDistrictLabel)
	},
}
