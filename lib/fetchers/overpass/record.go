package overpass

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"datalab-backend/lib/tabular"
)

var DefaultAreaTags = []string{
	"name=Usera",
	"boundary=administrative",
	"admin_level=9",
}

var DefaultCategoryKeys = []string{"shop", "amenity"}

var DefaultExtraTags = []string{
	"addr:street",
	"addr:housenumber",
	"addr:postcode",
}

// DefaultAllowedAmenities keeps amenity values that describe an actual
// business; "amenity" in OSM also covers benches and fountains.
var DefaultAllowedAmenities = []string{
	"bar", "biergarten", "cafe", "fast_food", "food_court", "ice_cream",
	"pub", "restaurant", "nightclub", "casino", "cinema", "theatre",
	"arts_centre", "planetarium", "studio", "internet_cafe",
	"marketplace", "bank", "bureau_de_change", "atm", "money_transfer",
	"pharmacy", "clinic", "dentist", "doctors", "optician", "veterinary",
	"fuel", "car_wash", "car_rental", "car_sharing", "charging_station",
	"bicycle_rental", "motorcycle_rental", "boat_rental", "post_office",
	"parcel_locker", "copyshop", "coworking_space", "events_venue",
	"conference_centre", "spa", "sauna", "massage",
}

// RecordFields is the fixed prefix of the output CSV columns; extra
// address tags are appended after them in sorted order.
var RecordFields = []string{
	"observation_year",
	"observation_date",
	"osm_type",
	"osm_id",
	"name",
	"category_key",
	"category_value",
	"latitude",
	"longitude",
}

type RecordOptions struct {
	CategoryKeys     []string
	ExtraTags        []string
	AllowedAmenities map[string]bool
	AllowAll         bool
}

func AmenitySet(values []string) map[string]bool {
	out := map[string]bool{}
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out[v] = true
		}
	}
	return out
}

// ElementRecord transforms one Overpass element into an output row.
// Elements with no category tag, or with a filtered-out amenity value,
// report ok=false.
func ElementRecord(element tabular.Row, year int, isoDate string, opts RecordOptions) (tabular.Row, bool) {
	tags, _ := element["tags"].(map[string]any)

	var categoryKey, categoryValue string
	for _, key := range opts.CategoryKeys {
		if v := tabular.RenderCell(tags[key]); v != "" {
			categoryKey, categoryValue = key, v
			break
		}
	}
	if categoryKey == "" {
		return nil, false
	}
	if categoryKey == "amenity" && !opts.AllowAll && len(opts.AllowedAmenities) > 0 &&
		!opts.AllowedAmenities[strings.ToLower(strings.TrimSpace(categoryValue))] {
		return nil, false
	}

	record := tabular.Row{
		"observation_year": year,
		"observation_date": isoDate,
		"osm_type":         tabular.RenderCell(element["type"]),
		"osm_id":           tabular.RenderCell(element["id"]),
		"name":             tabular.RenderCell(tags["name"]),
		"category_key":     categoryKey,
		"category_value":   categoryValue,
		"latitude":         "",
		"longitude":        "",
	}
	if lat, lon, ok := coordinates(element); ok {
		record["latitude"] = fmt.Sprintf("%.7f", lat)
		record["longitude"] = fmt.Sprintf("%.7f", lon)
	}
	for _, tag := range opts.ExtraTags {
		record[tag] = tabular.RenderCell(tags[tag])
	}
	return record, true
}

func coordinates(element tabular.Row) (float64, float64, bool) {
	lat, latOk := element["lat"].(float64)
	lon, lonOk := element["lon"].(float64)
	if latOk && lonOk {
		return lat, lon, true
	}
	center, ok := element["center"].(map[string]any)
	if !ok {
		return 0, 0, false
	}
	lat, latOk = center["lat"].(float64)
	lon, lonOk = center["lon"].(float64)
	return lat, lon, latOk && lonOk
}

type CollectOptions struct {
	AreaTags     []AreaTag
	FromYear     int
	ToYear       int
	QueryTimeout time.Duration
	Sleep        time.Duration
	Record       RecordOptions
}

// Collect runs one snapshot query per year and transforms the elements
// into records, sleeping between years to respect the Overpass quota.
func Collect(ctx context.Context, client *Client, opts CollectOptions) ([]tabular.Row, error) {
	selector := AreaSelector(opts.AreaTags)
	now := time.Now()

	var records []tabular.Row
	for year := opts.FromYear; year <= opts.ToYear; year++ {
		isoDate := SnapshotDate(year, now)
		query := BuildQuery(selector, opts.Record.CategoryKeys, isoDate, opts.QueryTimeout)

		slog.Info("querying OSM snapshot", "year", year)
		payload, err := client.Execute(ctx, query)
		if err != nil {
			return records, fmt.Errorf("year %d: %w", year, err)
		}

		elements, _ := payload["elements"].([]any)
		slog.Info("snapshot returned", "year", year, "elements", len(elements))
		for _, e := range elements {
			element, ok := e.(map[string]any)
			if !ok {
				continue
			}
			if record, ok := ElementRecord(element, year, isoDate, opts.Record); ok {
				records = append(records, record)
			}
		}

		if opts.Sleep > 0 && year < opts.ToYear {
			select {
			case <-time.After(opts.Sleep):
			case <-ctx.Done():
				return records, ctx.Err()
			}
		}
	}
	return records, nil
}
