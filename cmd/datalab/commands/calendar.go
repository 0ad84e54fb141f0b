package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"

	"datalab-backend/lib/fetchers/gcal"
	"datalab-backend/lib/history"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/tabular"

	"github.com/spf13/cobra"
)

var calendarOutput *string

func init() {
	calendarOutput = calendarCmd.Flags().String("output", "data/calendar/calendar.csv", "Output CSV path.")
	rootCmd.AddCommand(calendarCmd)
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Fetches a public Google Calendar ICS feed and writes its events as CSV.",
	Long: "Fetches a public Google Calendar ICS feed and writes its events as CSV.\n" +
		"The feed comes from ICS_URL, or is built from CALENDAR_ID, or falls back\n" +
		"to the default calendar. The file is only rewritten when events changed.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		source := gcal.ResolveSource(os.Getenv("ICS_URL"), os.Getenv("CALENDAR_ID"))
		client := gcal.NewClient()
		data, err := client.FetchIcs(ctx, source)
		if err != nil {
			failFetch(filepath.Dir(*calendarOutput), "calendar", err)
		}

		events, err := gcal.ParseEvents(data)
		if err != nil {
			failFetch(filepath.Dir(*calendarOutput), "calendar", err)
		}

		var buf bytes.Buffer
		err = tabular.WriteCSV(&buf, gcal.CsvRows(events), tabular.WriteOptions{Fields: gcal.EventFields})
		if err != nil {
			serviceutil.Fatal("failed to render csv", err)
		}
		changed, err := sink.WriteIfChanged(*calendarOutput, buf.Bytes())
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}

		recordRun(ctx, "calendar", len(events), history.StatusOK)
		slog.Info("wrote calendar events",
			"events", len(events),
			"changed", changed,
			"output", *calendarOutput)
	},
}
