package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"datalab-backend/lib/history"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose   *bool
	historyDb *string
)

var rootCmd = &cobra.Command{
	Use:   "datalab",
	Short: "datalab fetches open datasets and reshapes them into dated CSV/JSON outputs.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*verbose)
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
	historyDb = rootCmd.PersistentFlags().String("history-db", "data/history.db", "Sqlite database tracking run history. Empty disables tracking.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// recordRun notes a run in the history store. History is best-effort,
// a broken store never fails the job itself.
func recordRun(ctx context.Context, dataset string, rows int, status string) {
	if *historyDb == "" {
		return
	}
	db, err := history.OpenDB(*historyDb)
	if err != nil {
		slog.Warn("failed to open history db", "err", err)
		return
	}
	defer db.Close()

	err = history.NewStore(db).RecordRun(ctx, history.Run{
		Dataset:  dataset,
		RunAt:    time.Now(),
		RowCount: rows,
		Status:   status,
	})
	if err != nil {
		slog.Warn("failed to record run", "dataset", dataset, "err", err)
	}
}

// failFetch drops a sentinel file where the dataset output would have
// gone, records the failed run, and exits non-zero.
func failFetch(dir, dataset string, cause error) {
	if err := sink.WriteSentinel(dir, dataset, cause); err != nil {
		slog.Error("failed to write sentinel", "err", err)
	}
	recordRun(context.Background(), dataset, 0, history.StatusSentinel)
	serviceutil.Fatal("fetch failed for "+dataset, cause)
}
