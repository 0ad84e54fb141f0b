package onet

import (
	"strings"

	"datalab-backend/lib/tabular"
)

// BucketOrder fixes the evaluation order of the variant buckets: the
// first bucket whose keywords match wins.
var BucketOrder = []string{
	"compensation",
	"professional_development",
	"business_partner",
	"organization",
	"talent_acquisition",
	"culture_engagement",
	"advisors",
}

// VariantBuckets groups occupations of a job family into functional
// variants by keyword.
var VariantBuckets = map[string][]string{
	"compensation":             {"compensation", "total rewards", "benefits"},
	"professional_development": {"learning", "training", "development"},
	"business_partner":         {"business partner", "hrbp", "partner"},
	"organization":             {"organizational", "org development", "org effectiveness"},
	"talent_acquisition":       {"talent acquisition", "recruit", "staffing", "sourcing"},
	"culture_engagement":       {"culture", "engagement", "employee experience"},
	"advisors":                 {"advisor", "consultant", "specialist"},
}

// BucketByVariant assigns each detail to the first matching bucket,
// looking at the summary title and the profile description.
// Unmatched details land in "other".
func BucketByVariant(details []Detail) map[string][]Detail {
	buckets := map[string][]Detail{}
	for _, detail := range details {
		title := ""
		if summary, ok := detail["summary"].(Occupation); ok {
			title = strings.ToLower(summary.Title)
		}
		description := strings.ToLower(profileDescription(detail))

		target := "other"
	scan:
		for _, bucket := range BucketOrder {
			for _, keyword := range VariantBuckets[bucket] {
				if strings.Contains(title, keyword) || strings.Contains(description, keyword) {
					target = bucket
					break scan
				}
			}
		}
		buckets[target] = append(buckets[target], detail)
	}
	return buckets
}

// FamilyFields is the column layout of the bucketed summary CSV.
var FamilyFields = []string{"bucket", "onet_code", "title", "job_family", "description"}

// FamilyCsvRows flattens the buckets into summary rows, walking the
// buckets in their fixed order, "other" last.
func FamilyCsvRows(buckets map[string][]Detail) []tabular.Row {
	var rows []tabular.Row
	for _, bucket := range append(append([]string{}, BucketOrder...), "other") {
		for _, detail := range buckets[bucket] {
			summary, _ := detail["summary"].(Occupation)
			rows = append(rows, tabular.Row{
				"bucket":      bucket,
				"onet_code":   summary.Code,
				"title":       summary.Title,
				"job_family":  summary.JobFamily,
				"description": profileDescription(detail),
			})
		}
	}
	return rows
}
