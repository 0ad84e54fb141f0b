package commands

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"datalab-backend/lib/fetchers/overpass"
	"datalab-backend/lib/history"
	"datalab-backend/lib/serviceutil"
	"datalab-backend/lib/sink"
	"datalab-backend/lib/tabular"

	"github.com/spf13/cobra"
)

var osmCmd = &cobra.Command{
	Use:   "osm",
	Short: "OpenStreetMap extraction jobs via the Overpass API.",
}

var (
	osmAreaTags     *[]string
	osmFromYear     *int
	osmToYear       *int
	osmUrl          *string
	osmCategoryKeys *[]string
	osmAmenities    *[]string
	osmAllAmenities *bool
	osmExtraTags    *[]string
	osmOutput       *string
	osmSleep        *float64
	osmQueryTimeout *int
)

func init() {
	flags := osmBusinessesCmd.Flags()
	osmAreaTags = flags.StringArray("area-tag", overpass.DefaultAreaTags, "Area tags key=value narrowing the search area.")
	osmFromYear = flags.Int("from-year", 2015, "First snapshot year.")
	osmToYear = flags.Int("to-year", time.Now().Year(), "Last snapshot year.")
	osmUrl = flags.String("overpass-url", overpass.DefaultUrl, "Overpass interpreter endpoint.")
	osmCategoryKeys = flags.StringArray("category-key", overpass.DefaultCategoryKeys, "OSM tag keys treated as business categories.")
	osmAmenities = flags.StringArray("allowed-amenity", nil, "Amenity values to keep (default: built-in commercial list).")
	osmAllAmenities = flags.Bool("allow-all-amenities", false, "Keep every amenity value.")
	osmExtraTags = flags.StringArray("extra-tag", overpass.DefaultExtraTags, "Extra tags copied into the output.")
	osmOutput = flags.String("output", "data/osm_usera_comercios.csv", "Output CSV path.")
	osmSleep = flags.Float64("sleep", 5.0, "Seconds to sleep between yearly snapshot queries.")
	osmQueryTimeout = flags.Int("timeout", 180, "Overpass query timeout in seconds.")

	osmCmd.AddCommand(osmBusinessesCmd)
	rootCmd.AddCommand(osmCmd)
}

var osmBusinessesCmd = &cobra.Command{
	Use:   "businesses",
	Short: "Collects yearly snapshots of businesses inside an area.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()

		areaTags, err := overpass.ParseAreaTags(*osmAreaTags)
		if err != nil {
			serviceutil.Fatal("invalid area tag", err)
		}
		if *osmFromYear > *osmToYear {
			serviceutil.Fatal("invalid year range", errors.New("--from-year is after --to-year"))
		}

		allowed := overpass.DefaultAllowedAmenities
		if len(*osmAmenities) > 0 {
			allowed = *osmAmenities
		}

		timeout := time.Duration(*osmQueryTimeout) * time.Second
		client := overpass.NewClient(*osmUrl, timeout+time.Second*30, time.Second*5)

		records, err := overpass.Collect(ctx, client, overpass.CollectOptions{
			AreaTags:     areaTags,
			FromYear:     *osmFromYear,
			ToYear:       *osmToYear,
			QueryTimeout: timeout,
			Sleep:        time.Duration(*osmSleep * float64(time.Second)),
			Record: overpass.RecordOptions{
				CategoryKeys:     *osmCategoryKeys,
				AllowedAmenities: overpass.AmenitySet(allowed),
				AllowAll:         *osmAllAmenities,
				ExtraTags:        *osmExtraTags,
			},
		})
		if err != nil {
			failFetch(filepath.Dir(*osmOutput), "osm_businesses", err)
		}

		fields := append(append([]string{}, overpass.RecordFields...), sortedTags(*osmExtraTags)...)
		err = sink.WriteCSV(*osmOutput, records, tabular.WriteOptions{Fields: fields})
		if err != nil {
			serviceutil.Fatal("failed to write csv", err)
		}

		recordRun(ctx, "osm_businesses", len(records), history.StatusOK)
		slog.Info("saved business snapshots", "rows", len(records), "output", *osmOutput)
	},
}

func sortedTags(tags []string) []string {
	out := append([]string{}, tags...)
	sort.Strings(out)
	return out
}
