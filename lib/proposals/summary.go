package proposals

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Metrics aggregates a proposals export. Means stay nil when no row
// carried the column; cached_votes_total only appears in some export
// vintages.
type Metrics struct {
	ProposalsCount       int      `json:"proposals_count"`
	ConfidenceScoreMean  *float64 `json:"confidence_score_mean"`
	CachedVotesUpSum     int      `json:"cached_votes_up_sum"`
	CachedVotesUpMean    *float64 `json:"cached_votes_up_mean"`
	CachedVotesTotalSum  *int     `json:"cached_votes_total_sum"`
	CachedVotesTotalMean *float64 `json:"cached_votes_total_mean"`
	RetiredCount         int      `json:"retired_count"`
}

// Summary is the JSON document the summarize run writes.
type Summary struct {
	Metrics            Metrics `json:"metrics"`
	DeltaVsPreviousRun *int    `json:"delta_vs_previous_run"`
	SourceFile         string  `json:"source_file"`
}

func parseCell(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "null") {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

var retiredColumns = []string{"retire_at", "retired_at", "retired_on"}

func isRetired(row map[string]string) bool {
	for _, key := range retiredColumns {
		value, present := row[key]
		if !present {
			continue
		}
		value = strings.TrimSpace(value)
		if value != "" && value != "null" && value != "None" {
			return true
		}
	}
	return false
}

// Summarize computes the metric aggregates over the parsed rows.
func Summarize(rows []map[string]string) Metrics {
	var metrics Metrics
	var confSum float64
	var confCount, upCount, totalSum, totalCount int

	for _, row := range rows {
		metrics.ProposalsCount++

		if value, ok := parseCell(row["confidence_score"]); ok {
			confSum += value
			confCount++
		}
		if value, ok := parseCell(row["cached_votes_up"]); ok {
			metrics.CachedVotesUpSum += int(value)
			upCount++
		}
		if value, ok := parseCell(row["cached_votes_total"]); ok {
			totalSum += int(value)
			totalCount++
		}
		if isRetired(row) {
			metrics.RetiredCount++
		}
	}

	if confCount > 0 {
		mean := confSum / float64(confCount)
		metrics.ConfidenceScoreMean = &mean
	}
	if upCount > 0 {
		mean := float64(metrics.CachedVotesUpSum) / float64(upCount)
		metrics.CachedVotesUpMean = &mean
	}
	if totalCount > 0 {
		metrics.CachedVotesTotalSum = &totalSum
		mean := float64(totalSum) / float64(totalCount)
		metrics.CachedVotesTotalMean = &mean
	}
	return metrics
}

// Delta compares proposal counts across runs.
func Delta(latest Metrics, previousCount int) *int {
	delta := latest.ProposalsCount - previousCount
	return &delta
}

// Markdown renders the summary the way the daily CI note publishes
// it.
func Markdown(metrics Metrics, delta *int) string {
	var lines []string
	lines = append(lines, "# Decide Madrid – Proposals summary", "")

	proposals := fmt.Sprintf("- Proposals: %d", metrics.ProposalsCount)
	if delta != nil {
		proposals += fmt.Sprintf(" (Δ %+d)", *delta)
	}
	lines = append(lines, proposals)

	if metrics.CachedVotesTotalSum != nil {
		lines = append(lines, fmt.Sprintf("- Votes (total): %d", *metrics.CachedVotesTotalSum))
		if metrics.CachedVotesTotalMean != nil {
			lines = append(lines, fmt.Sprintf("- Mean votes (total): %.3f", *metrics.CachedVotesTotalMean))
		}
	}

	lines = append(lines, fmt.Sprintf("- Votes (cached_votes_up sum): %d", metrics.CachedVotesUpSum))
	if metrics.CachedVotesUpMean != nil {
		lines = append(lines, fmt.Sprintf("- Mean cached_votes_up: %.3f", *metrics.CachedVotesUpMean))
	}
	if metrics.ConfidenceScoreMean != nil {
		lines = append(lines, fmt.Sprintf("- Mean confidence_score: %.6f", *metrics.ConfidenceScoreMean))
	}

	lines = append(lines, fmt.Sprintf("- Retired count: %d", metrics.RetiredCount), "")
	return strings.Join(lines, "\n")
}

// RenderTable renders the metrics as a console table for run logs.
func RenderTable(metrics Metrics, delta *int) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Proposals", metrics.ProposalsCount})
	if delta != nil {
		t.AppendRow(table.Row{"Delta vs previous run", fmt.Sprintf("%+d", *delta)})
	}
	t.AppendRow(table.Row{"Votes up (sum)", metrics.CachedVotesUpSum})
	if metrics.CachedVotesUpMean != nil {
		t.AppendRow(table.Row{"Votes up (mean)", fmt.Sprintf("%.3f", *metrics.CachedVotesUpMean)})
	}
	if metrics.CachedVotesTotalSum != nil {
		t.AppendRow(table.Row{"Votes total (sum)", *metrics.CachedVotesTotalSum})
	}
	if metrics.ConfidenceScoreMean != nil {
		t.AppendRow(table.Row{"Confidence score (mean)", fmt.Sprintf("%.6f", *metrics.ConfidenceScoreMean)})
	}
	t.AppendRow(table.Row{"Retired", metrics.RetiredCount})
	return t.Render()
}
