package overpass

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseAreaTags(t *testing.T) {
	tags, err := ParseAreaTags([]string{"name=Usera", "admin_level=9"})
	require.NoError(t, err)
	require.Equal(t, []AreaTag{{"name", "Usera"}, {"admin_level", "9"}}, tags)

	_, err = ParseAreaTags([]string{"broken"})
	require.Error(t, err)
	_, err = ParseAreaTags([]string{"="})
	require.Error(t, err)
	_, err = ParseAreaTags(nil)
	require.Error(t, err)
}

func TestBuildQuery(t *testing.T) {
	tags, err := ParseAreaTags([]string{"name=Usera", "boundary=administrative"})
	require.NoError(t, err)

	query := BuildQuery(AreaSelector(tags), []string{"shop", "amenity"}, "2020-12-31T23:59:59Z", time.Second*180)
	require.Contains(t, query, `[out:json][timeout:180][date:"2020-12-31T23:59:59Z"];`)
	require.Contains(t, query, `area["name"="Usera"]["boundary"="administrative"]->.searchArea;`)
	require.Contains(t, query, `nwr["shop"](area.searchArea);`)
	require.Contains(t, query, `nwr["amenity"](area.searchArea);`)
	require.Contains(t, query, "out center tags;")
}

func TestSnapshotDate(t *testing.T) {
	reference := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	require.Equal(t, "2020-12-31T23:59:59Z", SnapshotDate(2020, reference))
	require.Equal(t, "2024-06-14T10:00:00Z", SnapshotDate(2024, reference))
}

func TestElementRecord(t *testing.T) {
	opts := RecordOptions{
		CategoryKeys:     DefaultCategoryKeys,
		ExtraTags:        DefaultExtraTags,
		AllowedAmenities: AmenitySet(DefaultAllowedAmenities),
	}

	node := map[string]any{
		"type": "node",
		"id":   float64(123),
		"lat":  40.3812345,
		"lon":  -3.7065432,
		"tags": map[string]any{
			"amenity":     "restaurant",
			"name":        "Casa Pepe",
			"addr:street": "Calle de Marcelo Usera",
		},
	}
	record, ok := ElementRecord(node, 2020, "2020-12-31T23:59:59Z", opts)
	require.True(t, ok)
	require.Equal(t, "restaurant", record["category_value"])
	require.Equal(t, "amenity", record["category_key"])
	require.Equal(t, "40.3812345", record["latitude"])
	require.Equal(t, "Calle de Marcelo Usera", record["addr:street"])

	// shop wins over amenity
	shop := map[string]any{
		"type": "way",
		"id":   float64(9),
		"center": map[string]any{"lat": 40.1, "lon": -3.2},
		"tags": map[string]any{"shop": "bakery", "amenity": "bench"},
	}
	record, ok = ElementRecord(shop, 2020, "x", opts)
	require.True(t, ok)
	require.Equal(t, "shop", record["category_key"])
	require.Equal(t, "40.1000000", record["latitude"])

	// non-commercial amenity filtered out
	bench := map[string]any{
		"type": "node", "id": float64(1),
		"tags": map[string]any{"amenity": "bench"},
	}
	_, ok = ElementRecord(bench, 2020, "x", opts)
	require.False(t, ok)

	// unless the filter is bypassed
	opts.AllowAll = true
	_, ok = ElementRecord(bench, 2020, "x", opts)
	require.True(t, ok)

	// no category tag at all
	_, ok = ElementRecord(map[string]any{"type": "node", "id": float64(2)}, 2020, "x", opts)
	require.False(t, ok)
}

func TestCollect(t *testing.T) {
	years := []string{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		years = append(years, r.Form.Get("data"))
		fmt.Fprint(w, `{"elements":[
			{"type":"node","id":1,"lat":40.1,"lon":-3.1,"tags":{"shop":"bakery","name":"Horno"}},
			{"type":"node","id":2,"lat":40.2,"lon":-3.2,"tags":{"amenity":"bench"}}
		]}`)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second*5, time.Millisecond)
	tags, err := ParseAreaTags(DefaultAreaTags)
	require.NoError(t, err)

	records, err := Collect(context.Background(), client, CollectOptions{
		AreaTags:     tags,
		FromYear:     2019,
		ToYear:       2020,
		QueryTimeout: time.Second * 5,
		Record: RecordOptions{
			CategoryKeys:     DefaultCategoryKeys,
			AllowedAmenities: AmenitySet(DefaultAllowedAmenities),
		},
	})
	require.NoError(t, err)
	require.Len(t, years, 2)
	require.Contains(t, years[0], `[date:"2019-12-31T23:59:59Z"]`)

	// one bakery per year survives, the bench never does
	require.Len(t, records, 2)
	require.Equal(t, 2019, records[0]["observation_year"])
	require.Equal(t, "Horno", records[0]["name"])
}
