package commands

import (
	"fmt"
	"log/slog"
	"time"

	"datalab-backend/lib/history"
	"datalab-backend/lib/proposals"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/tabular"

	"github.com/spf13/cobra"
)

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "Decide Madrid participation proposal jobs over local exports.",
}

var (
	filterIn       *string
	filterOut      *string
	filterDrop     *[]string
	filterFromDate *string
	filterToDate   *string

	summaryIn      *string
	summaryPrev    *string
	summaryOutJson *string
	summaryOutMd   *string
)

func init() {
	filterFlags := proposalsFilterCmd.Flags()
	filterIn = filterFlags.String("in", "", "Input CSV path.")
	filterOut = filterFlags.String("out", "", "Output CSV path.")
	filterDrop = filterFlags.StringArray("drop-column", nil, "Column to drop (repeatable).")
	filterFromDate = filterFlags.String("from-date", "", "Inclusive lower bound (YYYY-MM-DD).")
	filterToDate = filterFlags.String("to-date", "", "Inclusive upper bound (YYYY-MM-DD).")
	proposalsFilterCmd.MarkFlagRequired("in")
	proposalsFilterCmd.MarkFlagRequired("out")
	proposalsFilterCmd.MarkFlagRequired("from-date")

	summaryFlags := proposalsSummaryCmd.Flags()
	summaryIn = summaryFlags.String("in", "decide-madrid/proposals_latest.csv", "Path to the latest proposals CSV.")
	summaryPrev = summaryFlags.String("prev", "", "Optional path to a previous export for the delta.")
	summaryOutJson = summaryFlags.String("out-json", "", "Optional path for the JSON summary.")
	summaryOutMd = summaryFlags.String("out-md", "", "Optional path for the Markdown summary.")

	proposalsCmd.AddCommand(proposalsFilterCmd)
	proposalsCmd.AddCommand(proposalsSummaryCmd)
	rootCmd.AddCommand(proposalsCmd)
}

var proposalsFilterCmd = &cobra.Command{
	Use:   "filter --in <csv> --out <csv> --from-date <date>",
	Short: "Filters a proposals export by created_at date and drops columns.",
	Run: func(cmd *cobra.Command, args []string) {
		from, err := time.Parse("2006-01-02", *filterFromDate)
		if err != nil {
			serviceutil.Fatal("invalid --from-date", err)
		}
		var to time.Time
		if *filterToDate != "" {
			to, err = time.Parse("2006-01-02", *filterToDate)
			if err != nil {
				serviceutil.Fatal("invalid --to-date", err)
			}
		}

		header, rows, err := proposals.ReadCsv(*filterIn)
		if err != nil {
			serviceutil.Fatal("failed to read input csv", err)
		}

		kept, filtered := proposals.Filter(header, rows, proposals.FilterOptions{
			From:        from,
			To:          to,
			DropColumns: *filterDrop,
		})
		err = sink.WriteCSV(*filterOut, filtered, tabular.WriteOptions{Fields: kept})
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}

		slog.Info("filtered proposals", "in", len(rows), "out", len(filtered))
	},
}

var proposalsSummaryCmd = &cobra.Command{
	Use:   "summary [--in <csv>]",
	Short: "Summarizes a proposals export, with a delta against the previous run.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		_, rows, err := proposals.ReadCsv(*summaryIn)
		if err != nil {
			serviceutil.Fatal("failed to read proposals csv", err)
		}
		metrics := proposals.Summarize(rows)

		var delta *int
		if *summaryPrev != "" {
			_, prevRows, err := proposals.ReadCsv(*summaryPrev)
			if err != nil {
				serviceutil.Fatal("failed to read previous csv", err)
			}
			delta = proposals.Delta(metrics, proposals.Summarize(prevRows).ProposalsCount)
		} else if *historyDb != "" {
			if db, err := history.OpenDB(*historyDb); err == nil {
				last, err := history.NewStore(db).LastRun(ctx, "proposals")
				db.Close()
				if err == nil && last != nil {
					delta = proposals.Delta(metrics, last.RowCount)
				}
			}
		}

		if *summaryOutJson != "" {
			err := sink.WriteJSON(*summaryOutJson, proposals.Summary{
				Metrics:            metrics,
				DeltaVsPreviousRun: delta,
				SourceFile:         *summaryIn,
			})
			if err != nil {
				serviceutil.Fatal("failed to write json summary", err)
			}
		}

		md := proposals.Markdown(metrics, delta)
		if *summaryOutMd != "" {
			if err := sink.WriteFile(*summaryOutMd, []byte(md)); err != nil {
				serviceutil.Fatal("failed to write markdown summary", err)
			}
		}

		recordRun(ctx, "proposals", metrics.ProposalsCount, history.StatusOK)
		fmt.Println(proposals.RenderTable(metrics, delta))
	},
}
