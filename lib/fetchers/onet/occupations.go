package onet

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"datalab-backend/lib/tabular"
)

// HRKeywords flag occupations that look related to Human Resources.
var HRKeywords = []string{
	"human resources", "hr", "talent", "recruit", "staffing",
	"people operations", "compensation", "benefits", "learning",
	"development",
}

func IsHRRelated(occ Occupation) bool {
	title := strings.ToLower(occ.Title)
	family := strings.ToLower(occ.JobFamily)
	description := strings.ToLower(occ.Description)
	for _, keyword := range HRKeywords {
		if strings.Contains(title, keyword) ||
			strings.Contains(family, keyword) ||
			strings.Contains(description, keyword) {
			return true
		}
	}
	return false
}

// SearchFields is the column layout of the search summary CSV.
var SearchFields = []string{"onet_code", "title", "job_family", "is_hr_related", "description"}

// SearchResult pairs a search hit with its full profile.
type SearchResult struct {
	Summary map[string]any `json:"summary"`
	Details map[string]any `json:"details"`
}

// CollectSearch searches for the keywords and downloads a profile for
// each hit, pausing between detail calls so we stay inside the
// service's rate expectations.
func (c *Client) CollectSearch(ctx context.Context, keywords []string, maxResults int, delay time.Duration) ([]SearchResult, error) {
	hits, err := c.Search(ctx, keywords, maxResults)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for _, occ := range hits {
		if occ.Code == "" {
			continue
		}
		profile, err := c.Profile(ctx, occ.Code)
		if err != nil {
			return nil, err
		}
		results = append(results, SearchResult{
			Summary: map[string]any{
				"code":          occ.Code,
				"title":         occ.Title,
				"job_family":    occ.JobFamily,
				"description":   occ.Description,
				"is_hr_related": IsHRRelated(occ),
			},
			Details: profile,
		})
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// SearchCsvRows flattens collected results into the summary layout.
func SearchCsvRows(results []SearchResult) []tabular.Row {
	rows := make([]tabular.Row, 0, len(results))
	for _, result := range results {
		rows = append(rows, tabular.Row{
			"onet_code":     result.Summary["code"],
			"title":         result.Summary["title"],
			"job_family":    result.Summary["job_family"],
			"is_hr_related": result.Summary["is_hr_related"],
			"description":   profileDescription(result.Details),
		})
	}
	return rows
}

func profileDescription(profile map[string]any) string {
	occupation, ok := profile["occupation"].(map[string]any)
	if !ok {
		return ""
	}
	description, _ := occupation["description"].(string)
	return description
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// FilterJobFamily keeps occupations whose job family contains the key
// as a lowercase substring.
func FilterJobFamily(occupations []Occupation, familyKey string) []Occupation {
	needle := strings.ToLower(familyKey)
	var filtered []Occupation
	for _, occ := range occupations {
		if strings.Contains(strings.ToLower(occ.JobFamily), needle) {
			filtered = append(filtered, occ)
		}
	}
	return filtered
}

// Detail is an occupation profile with the listing summary attached
// under the "summary" key, the shape the grouped JSON export uses.
type Detail map[string]any

// FetchDetails downloads the profile of every occupation.
func (c *Client) FetchDetails(ctx context.Context, occupations []Occupation, delay time.Duration) ([]Detail, error) {
	var details []Detail
	for _, occ := range occupations {
		if occ.Code == "" {
			continue
		}
		slog.Debug("fetching occupation profile", "code", occ.Code, "title", occ.Title)
		profile, err := c.Profile(ctx, occ.Code)
		if err != nil {
			return nil, err
		}
		detail := Detail(profile)
		detail["summary"] = occ
		details = append(details, detail)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return details, nil
}
