// Package overpass queries the OSM Overpass API for yearly snapshots
// of business listings inside an administrative area.
package overpass

import (
	"fmt"
	"strings"
	"time"
)

type AreaTag struct {
	Key   string
	Value string
}

// ParseAreaTags parses repeated key=value flags into area tags.
func ParseAreaTags(raw []string) ([]AreaTag, error) {
	var out []AreaTag
	for _, r := range raw {
		key, value, found := strings.Cut(r, "=")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if !found || key == "" || value == "" {
			return nil, fmt.Errorf("invalid area tag %q, expected key=value", r)
		}
		out = append(out, AreaTag{Key: key, Value: value})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("at least one area tag is required")
	}
	return out, nil
}

// AreaSelector renders the area filter block of an Overpass query.
func AreaSelector(tags []AreaTag) string {
	var filters strings.Builder
	for _, t := range tags {
		fmt.Fprintf(&filters, "[%q=%q]", t.Key, t.Value)
	}
	return fmt.Sprintf("area%s->.searchArea;", filters.String())
}

// SnapshotDate picks the attic date for a year: Dec 31 for years in
// the past, yesterday for the current (or a future) year since OSM has
// no data for dates that have not happened.
func SnapshotDate(year int, reference time.Time) string {
	if year < reference.Year() {
		return fmt.Sprintf("%d-12-31T23:59:59Z", year)
	}
	return reference.AddDate(0, 0, -1).UTC().Format("2006-01-02T15:04:05Z")
}

// BuildQuery assembles the full Overpass QL query for one snapshot.
func BuildQuery(areaSelector string, categoryKeys []string, isoDate string, timeout time.Duration) string {
	var blocks strings.Builder
	for _, key := range categoryKeys {
		fmt.Fprintf(&blocks, "  nwr[%q](area.searchArea);\n", key)
	}
	return fmt.Sprintf(
		"[out:json][timeout:%d][date:%q];\n%s\n(\n%s);\nout center tags;",
		int(timeout.Seconds()),
		isoDate,
		areaSelector,
		blocks.String(),
	)
}
