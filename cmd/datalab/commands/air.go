package commands

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"datalab-backend/lib/fetchers/calair"
	"datalab-backend/lib/history"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/tabular"
	"datalab-backend/lib/timezone"

	"github.com/spf13/cobra"
)

var airCmd = &cobra.Command{
	Use:   "air",
	Short: "Madrid air quality jobs against the ciudadesabiertas dynamic API.",
}

var (
	airLatestRoot      *string
	airYesterdayRoot   *string
	airYesterdayDate   *string
	airAccumulatedDir  *string
	airFlattenInput    *string
	airFlattenOutput   *string
	airFlattenStations *string
	airFlattenHistory  *string
	airFlattenTypeRow  *bool
)

func init() {
	airLatestRoot = airLatestCmd.Flags().String("output-root", "data", "Root directory for dated outputs.")

	airYesterdayRoot = airYesterdayCmd.Flags().String("output-root", "data", "Root directory for dated outputs.")
	airYesterdayDate = airYesterdayCmd.Flags().String("date", "", "Date YYYY-MM-DD (default: yesterday in Madrid).")

	airAccumulatedDir = airAccumulatedCmd.Flags().String("output-dir", "data/calair_accumulated", "Where to store output files.")

	airFlattenInput = airFlattenCmd.Flags().String("input", "", "Path to input JSON (if omitted, fetch from the API).")
	airFlattenOutput = airFlattenCmd.Flags().String("output", "data/calair/latest.flat.csv", "Output CSV path.")
	airFlattenStations = airFlattenCmd.Flags().String("stations", "", "Station lookup CSV; switches output to validated long rows.")
	airFlattenHistory = airFlattenCmd.Flags().String("history", "", "Cumulative CSV the flattened rows are also appended to.")
	airFlattenTypeRow = airFlattenCmd.Flags().Bool("type-row", false, "Emit a second header row with inferred column types.")

	airCmd.AddCommand(airLatestCmd)
	airCmd.AddCommand(airYesterdayCmd)
	airCmd.AddCommand(airAccumulatedCmd)
	airCmd.AddCommand(airFlattenCmd)
	rootCmd.AddCommand(airCmd)
}

var airLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Fetches the realtime snapshot and writes stamped + latest JSON and CSV.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		now := time.Now().UTC()

		dir, err := sink.DatedDir(*airLatestRoot, "calair", now.Format("2006-01-02"))
		if err != nil {
			serviceutil.Fatal("failed to create output dir", err)
		}

		client := calair.NewClient()
		payload, err := client.FetchRealtime(ctx)
		if err != nil {
			failFetch(dir, "calair_tiemporeal", err)
		}
		rows := tabular.ExtractRows(payload)
		if len(rows) == 0 {
			slog.Warn("no rows in realtime payload")
		}

		latestJson, stampedJson := sink.LatestAndStamped(dir, "calair_tiemporeal", ".json", now)
		latestCsv, stampedCsv := sink.LatestAndStamped(dir, "calair_tiemporeal", ".csv", now)
		for _, path := range []string{stampedJson, latestJson} {
			if err := sink.WriteJSON(path, payload); err != nil {
				serviceutil.Fatal("failed to write json", err)
			}
		}
		for _, path := range []string{stampedCsv, latestCsv} {
			if err := sink.WriteCSV(path, rows, tabular.WriteOptions{}); err != nil {
				serviceutil.Fatal("failed to write csv", err)
			}
		}

		recordRun(ctx, "calair_tiemporeal", len(rows), history.StatusOK)
		slog.Info("saved realtime snapshot", "rows", len(rows), "dir", dir)
	},
}

var airYesterdayCmd = &cobra.Command{
	Use:   "yesterday [--date YYYY-MM-DD]",
	Short: "Fetches one day of hourly measurements and writes JSON, CSV, and flattened CSV.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		date := *airYesterdayDate
		if date == "" {
			date = timezone.Yesterday().Format("2006-01-02")
		}
		dir, err := sink.DatedDir(*airYesterdayRoot, "calair", date)
		if err != nil {
			serviceutil.Fatal("failed to create output dir", err)
		}

		client := calair.NewClient()
		payload, err := client.FetchDay(ctx, date)
		if err != nil {
			failFetch(dir, "calair_historico", err)
		}
		rows := tabular.ExtractRows(payload)

		flat := make([]tabular.Row, len(rows))
		for i, row := range rows {
			flat[i] = tabular.Flatten(row)
		}

		base := filepath.Join(dir, "calair_ayer_"+sink.Timestamp(time.Now()))
		if err := sink.WriteJSON(base+".json", payload); err != nil {
			serviceutil.Fatal("failed to write json", err)
		}
		if err := sink.WriteCSV(base+".csv", rows, tabular.WriteOptions{}); err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}
		if err := sink.WriteCSV(base+".flat.csv", flat, tabular.WriteOptions{}); err != nil {
			serviceutil.Fatal("failed to write flat csv", err)
		}

		recordRun(ctx, "calair_historico", len(rows), history.StatusOK)
		slog.Info("saved daily measurements", "date", date, "rows", len(rows))
	},
}

var airAccumulatedCmd = &cobra.Command{
	Use:   "accumulated",
	Short: "Fetches the accumulated realtime catalogue and writes latest.json/latest.csv.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		client := calair.NewClient()
		payload, err := client.FetchAccumulated(ctx)
		if err != nil {
			failFetch(*airAccumulatedDir, "calair_accumulated", err)
		}
		rows := calair.AccumulatedRows(payload)

		if err := sink.WriteJSON(filepath.Join(*airAccumulatedDir, "latest.json"), payload); err != nil {
			serviceutil.Fatal("failed to write json", err)
		}
		err = sink.WriteCSV(
			filepath.Join(*airAccumulatedDir, "latest.csv"),
			rows, tabular.WriteOptions{Fields: calair.LongFields})
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}

		recordRun(ctx, "calair_accumulated", len(rows), history.StatusOK)
		slog.Info("saved accumulated measurements", "rows", len(rows))
	},
}

var airFlattenCmd = &cobra.Command{
	Use:   "flatten",
	Short: "Unpivots yesterday's hourly records from the _ult snapshot into a flat CSV.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		var payload any
		if *airFlattenInput != "" {
			data, err := os.ReadFile(*airFlattenInput)
			if err != nil {
				serviceutil.Fatal("failed to read input", err)
			}
			if err := json.Unmarshal(data, &payload); err != nil {
				serviceutil.Fatal("failed to decode input", err)
			}
		} else {
			client := calair.NewClient()
			var err error
			payload, err = client.FetchUlt(ctx)
			if err != nil {
				failFetch(filepath.Dir(*airFlattenOutput), "calair_ult", err)
			}
		}

		year, month, day := timezone.YesterdayYMD()
		filtered := calair.FilterDay(tabular.ExtractRows(payload), year, month, day)

		var rows []tabular.Row
		fields := calair.FlatFields
		if *airFlattenStations != "" {
			stations, err := calair.LoadStations(*airFlattenStations)
			if err != nil {
				serviceutil.Fatal("failed to load stations", err)
			}
			fields = calair.LongFields
			for _, record := range filtered {
				rows = append(rows, calair.UnpivotValidated(record, year, month, day, stations)...)
			}
		} else {
			for _, record := range filtered {
				rows = append(rows, calair.UnpivotFlat(record)...)
			}
		}

		opts := tabular.WriteOptions{Fields: fields, TypeRow: *airFlattenTypeRow}
		if err := sink.WriteCSV(*airFlattenOutput, rows, opts); err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}
		if *airFlattenHistory != "" {
			if err := sink.AppendHistory(*airFlattenHistory, rows, fields); err != nil {
				serviceutil.Fatal("failed to append history", err)
			}
		}

		recordRun(ctx, "calair_ult", len(rows), history.StatusOK)
		slog.Info("wrote flattened rows",
			"rows", len(rows),
			"date", year+"-"+month+"-"+day,
			"output", *airFlattenOutput)
	},
}
