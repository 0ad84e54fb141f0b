package proposals

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestReadCsvLatin1Fallback(t *testing.T) {
	// "Soterramiento de la vía" with latin-1 í (0xED)
	data := []byte("id,title,created_at\n1,Soterramiento de la v\xeda,01/02/2024 08\n")
	path := writeFixture(t, "proposals.csv", data)

	header, rows, err := ReadCsv(path)
	require.NoError(t, err)
	require.Equal(t, []string{"id", "title", "created_at"}, header)
	require.Len(t, rows, 1)
	require.Equal(t, "Soterramiento de la vía", rows[0]["title"])
}

func TestExtractDate(t *testing.T) {
	date, ok := ExtractDate("15/03/2024 08")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), date)

	_, ok = ExtractDate("2024-03-15")
	require.False(t, ok)
	_, ok = ExtractDate("")
	require.False(t, ok)
}

func TestFilter(t *testing.T) {
	header := []string{"id", "title", "created_at", "summary"}
	rows := []map[string]string{
		{"id": "1", "title": "one", "created_at": "10/01/2024", "summary": "long text"},
		{"id": "2", "title": "two", "created_at": "20/06/2024 08", "summary": "more text"},
		{"id": "3", "title": "three", "created_at": "01/01/2025", "summary": ""},
		{"id": "4", "title": "bad date", "created_at": "soon", "summary": ""},
	}

	kept, filtered := Filter(header, rows, FilterOptions{
		From:        time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		To:          time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		DropColumns: []string{"summary"},
	})
	require.Equal(t, []string{"id", "title", "created_at"}, kept)
	require.Len(t, filtered, 1)
	require.Equal(t, "2", filtered[0]["id"])
	require.NotContains(t, filtered[0], "summary")
}

func TestFilterOpenEndedRange(t *testing.T) {
	header := []string{"id", "created_at"}
	rows := []map[string]string{
		{"id": "1", "created_at": "10/01/2024"},
		{"id": "2", "created_at": "01/01/2030"},
	}
	_, filtered := Filter(header, rows, FilterOptions{
		From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Len(t, filtered, 2)
}

func TestSummarize(t *testing.T) {
	rows := []map[string]string{
		{"confidence_score": "0.5", "cached_votes_up": "10", "retire_at": ""},
		{"confidence_score": "1.5", "cached_votes_up": "20", "retire_at": "2024-05-01"},
		{"confidence_score": "null", "cached_votes_up": "", "retire_at": "null"},
	}

	metrics := Summarize(rows)
	require.Equal(t, 3, metrics.ProposalsCount)
	require.Equal(t, 30, metrics.CachedVotesUpSum)
	require.NotNil(t, metrics.ConfidenceScoreMean)
	require.Equal(t, 1.0, *metrics.ConfidenceScoreMean)
	require.NotNil(t, metrics.CachedVotesUpMean)
	require.Equal(t, 15.0, *metrics.CachedVotesUpMean)
	require.Nil(t, metrics.CachedVotesTotalSum)
	require.Equal(t, 1, metrics.RetiredCount)
}

func TestSummarizeVotesTotal(t *testing.T) {
	rows := []map[string]string{
		{"cached_votes_up": "5", "cached_votes_total": "8"},
		{"cached_votes_up": "5", "cached_votes_total": "12"},
	}
	metrics := Summarize(rows)
	require.NotNil(t, metrics.CachedVotesTotalSum)
	require.Equal(t, 20, *metrics.CachedVotesTotalSum)
	require.Equal(t, 10.0, *metrics.CachedVotesTotalMean)
}

func TestMarkdown(t *testing.T) {
	mean := 0.123456
	up := 2.5
	metrics := Metrics{
		ProposalsCount:      42,
		ConfidenceScoreMean: &mean,
		CachedVotesUpSum:    105,
		CachedVotesUpMean:   &up,
		RetiredCount:        3,
	}
	delta := 2

	md := Markdown(metrics, &delta)
	require.Contains(t, md, "- Proposals: 42 (Δ +2)")
	require.Contains(t, md, "- Votes (cached_votes_up sum): 105")
	require.Contains(t, md, "- Mean cached_votes_up: 2.500")
	require.Contains(t, md, "- Mean confidence_score: 0.123456")
	require.Contains(t, md, "- Retired count: 3")
	require.NotContains(t, md, "Votes (total)")
}

func TestRenderTable(t *testing.T) {
	metrics := Metrics{ProposalsCount: 7, CachedVotesUpSum: 12}
	out := RenderTable(metrics, nil)
	require.Contains(t, out, "Proposals")
	require.Contains(t, out, "7")
	require.Contains(t, out, "12")
}
