package commands

import (
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"datalab-backend/lib/configutil"
	"datalab-backend/lib/fetchers/onet"
	"datalab-backend/lib/history"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/tabular"

	"github.com/spf13/cobra"
)

var onetCmd = &cobra.Command{
	Use:   "onet",
	Short: "O*NET occupation jobs. Credentials come from ONET_USER/ONET_KEY.",
}

type onetConfig struct {
	User string `json:"user"`
	Key  string `json:"key"`
}

var (
	onetBaseUrl       *string
	onetMaxResults    *int
	onetSearchDelay   *float64
	onetSearchJson    *string
	onetSearchCsv     *string
	onetJobFamily     *string
	onetFamilyDelay   *float64
	onetFamilyJson    *string
	onetFamilyCsv     *string
	onetFamilyBaseUrl *string
)

func init() {
	searchFlags := onetSearchCmd.Flags()
	onetBaseUrl = searchFlags.String("base-url", onet.DefaultBaseUrl, "O*NET service base URL.")
	onetMaxResults = searchFlags.Int("max-results", 25, "Maximum number of search results.")
	onetSearchDelay = searchFlags.Float64("delay", 0.2, "Seconds to pause between detail requests.")
	onetSearchJson = searchFlags.String("json-output", "data/onet/occupations.json", "Path for the JSON output.")
	onetSearchCsv = searchFlags.String("csv-output", "data/onet/occupations.csv", "Path for the CSV output.")

	familyFlags := onetFamilyCmd.Flags()
	onetFamilyBaseUrl = familyFlags.String("base-url", onet.DefaultBaseUrl, "O*NET service base URL.")
	onetJobFamily = familyFlags.String("job-family", "human resources", "Job family match (lowercase substring).")
	onetFamilyDelay = familyFlags.Float64("delay", 0.2, "Seconds to pause between detail requests.")
	onetFamilyJson = familyFlags.String("json", "data/onet/human_resources_buckets.json", "Path for the grouped JSON output.")
	onetFamilyCsv = familyFlags.String("csv", "data/onet/human_resources_buckets.csv", "Path for the summary CSV output.")

	onetCmd.AddCommand(onetSearchCmd)
	onetCmd.AddCommand(onetFamilyCmd)
	rootCmd.AddCommand(onetCmd)
}

func onetClient(baseUrl string) *onet.Client {
	cfg, err := configutil.ReadConfig[onetConfig]("onet.json5")
	if err != nil {
		cfg = onetConfig{}
	}
	user, err := configutil.RequireEnv(cfg.User, "ONET_USER")
	if err != nil {
		serviceutil.Fatal("missing O*NET credentials", err)
	}
	key, err := configutil.RequireEnv(cfg.Key, "ONET_KEY")
	if err != nil {
		serviceutil.Fatal("missing O*NET credentials", err)
	}
	return onet.NewClient(baseUrl, user, key)
}

var onetSearchCmd = &cobra.Command{
	Use:   "search <keyword>...",
	Short: "Searches occupations by keyword and stores summaries plus full profiles.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := onetClient(*onetBaseUrl)

		delay := time.Duration(*onetSearchDelay * float64(time.Second))
		results, err := client.CollectSearch(ctx, args, *onetMaxResults, delay)
		if err != nil {
			failFetch(filepath.Dir(*onetSearchJson), "onet_search", err)
		}

		payload := map[string]any{"keywords": args, "occupations": results}
		if err := sink.WriteJSON(*onetSearchJson, payload); err != nil {
			serviceutil.Fatal("failed to write json", err)
		}
		err = sink.WriteCSV(*onetSearchCsv, onet.SearchCsvRows(results), tabular.WriteOptions{Fields: onet.SearchFields})
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}

		recordRun(ctx, "onet_search", len(results), history.StatusOK)
		slog.Info("saved occupation search results", "occupations", len(results))
	},
}

var onetFamilyCmd = &cobra.Command{
	Use:   "family [--job-family <match>]",
	Short: "Downloads a job family's occupations grouped into functional variants.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		client := onetClient(*onetFamilyBaseUrl)

		occupations, err := client.Occupations(ctx)
		if err != nil {
			failFetch(filepath.Dir(*onetFamilyJson), "onet_family", err)
		}
		matched := onet.FilterJobFamily(occupations, *onetJobFamily)
		if len(matched) == 0 {
			serviceutil.Fatal("no occupations matched the requested job family", errors.New(*onetJobFamily))
		}

		delay := time.Duration(*onetFamilyDelay * float64(time.Second))
		details, err := client.FetchDetails(ctx, matched, delay)
		if err != nil {
			failFetch(filepath.Dir(*onetFamilyJson), "onet_family", err)
		}
		buckets := onet.BucketByVariant(details)

		if err := sink.WriteJSON(*onetFamilyJson, buckets); err != nil {
			serviceutil.Fatal("failed to write json", err)
		}
		err = sink.WriteCSV(*onetFamilyCsv, onet.FamilyCsvRows(buckets), tabular.WriteOptions{Fields: onet.FamilyFields})
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}

		recordRun(ctx, "onet_family", len(details), history.StatusOK)
		for _, bucket := range append(append([]string{}, onet.BucketOrder...), "other") {
			if n := len(buckets[bucket]); n > 0 {
				slog.Info("variant bucket", "bucket", bucket, "occupations", n)
			}
		}
	},
}
