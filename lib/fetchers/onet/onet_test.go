package onet

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func jsonHandler(t *testing.T, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "test-user", user)
		require.Equal(t, "test-key", key)
		require.Equal(t, "json", r.URL.Query().Get("fmt"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}
}

func TestSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mnm/search", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "human resources talent", r.URL.Query().Get("keyword"))
		require.Equal(t, "1", r.URL.Query().Get("start"))
		require.Equal(t, "25", r.URL.Query().Get("end"))
		jsonHandler(t, `{"occupation": [
			{"code": "11-3121.00", "title": "Human Resources Managers"},
			{"code": "13-1071.00", "title": "Human Resources Specialists"}
		]}`)(w, r)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "test-user", "test-key")
	hits, err := client.Search(context.Background(), []string{"human resources", "talent"}, 25)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "11-3121.00", hits[0].Code)
}

func TestOccupationsAndFilterJobFamily(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mnm/occupations", jsonHandler(t, `{"occupation": [
		{"code": "11-3121.00", "title": "Human Resources Managers", "job_family": "Human Resources"},
		{"code": "29-1141.00", "title": "Registered Nurses", "job_family": "Health Care"}
	]}`))
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "test-user", "test-key")
	occupations, err := client.Occupations(context.Background())
	require.NoError(t, err)
	require.Len(t, occupations, 2)

	filtered := FilterJobFamily(occupations, "human resources")
	require.Len(t, filtered, 1)
	require.Equal(t, "11-3121.00", filtered[0].Code)
}

func TestProfileRequiresCode(t *testing.T) {
	client := NewClient("", "test-user", "test-key")
	_, err := client.Profile(context.Background(), "")
	require.Error(t, err)
}

func TestIsHRRelated(t *testing.T) {
	require.True(t, IsHRRelated(Occupation{Title: "Compensation Analysts"}))
	require.True(t, IsHRRelated(Occupation{Title: "Managers", JobFamily: "Human Resources"}))
	require.False(t, IsHRRelated(Occupation{Title: "Registered Nurses", JobFamily: "Health Care"}))
}

func TestCollectSearch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mnm/search", jsonHandler(t, `{"occupation": [
		{"code": "11-3121.00", "title": "Human Resources Managers", "job_family": "Human Resources"}
	]}`))
	mux.HandleFunc("/mnm/occupations/11-3121.00", jsonHandler(t, `{
		"occupation": {"description": "Plan, direct, or coordinate human resources activities."}
	}`))
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "test-user", "test-key")
	results, err := client.CollectSearch(context.Background(), []string{"human resources"}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, true, results[0].Summary["is_hr_related"])

	rows := SearchCsvRows(results)
	require.Len(t, rows, 1)
	require.Equal(t, "11-3121.00", rows[0]["onet_code"])
	require.Equal(t, "Plan, direct, or coordinate human resources activities.", rows[0]["description"])
}

func TestFetchDetailsAndBuckets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/mnm/occupations/13-1141.00", jsonHandler(t, `{
		"occupation": {"description": "Conduct compensation and benefits analyses."}
	}`))
	mux.HandleFunc("/mnm/occupations/13-1071.00", jsonHandler(t, `{
		"occupation": {"description": "Recruit, screen, and interview applicants."}
	}`))
	mux.HandleFunc("/mnm/occupations/11-3121.00", jsonHandler(t, `{
		"occupation": {"description": "Plan, direct, or coordinate."}
	}`))
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(server.URL, "test-user", "test-key")
	details, err := client.FetchDetails(context.Background(), []Occupation{
		{Code: "13-1141.00", Title: "Compensation, Benefits, and Job Analysis Specialists", JobFamily: "Human Resources"},
		{Code: "13-1071.00", Title: "Human Resources Specialists", JobFamily: "Human Resources"},
		{Code: "11-3121.00", Title: "Human Resources Managers", JobFamily: "Human Resources"},
	}, 0)
	require.NoError(t, err)
	require.Len(t, details, 3)

	buckets := BucketByVariant(details)
	require.Len(t, buckets["compensation"], 1)
	// the specialists match both "recruit" and "specialist";
	// talent_acquisition is checked first
	require.Len(t, buckets["talent_acquisition"], 1)
	require.Len(t, buckets["other"], 1)

	rows := FamilyCsvRows(buckets)
	require.Len(t, rows, 3)
	require.Equal(t, "compensation", rows[0]["bucket"])
	require.Equal(t, "other", rows[2]["bucket"])
}
