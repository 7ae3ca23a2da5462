package search

import (
	"sort"
	"strings"

	"github.com/zatekoja/geyser-noncompliance/internal/domain/entities"
)

const MaxIndexedTags = 100

// BuildAssessmentTags collects lowercase search terms for a record: the
// categories and severities of selected issues plus the geyser details.
func BuildAssessmentTags(record *entities.AssessmentRecord) []string {
	if record == nil {
		return nil
	}

	tagSet := make(map[string]struct{})
	for _, index := range record.ComplianceIssues.SelectedIndices() {
		add(tagSet, entities.CategoriesForIssue(index)...)
		add(tagSet, string(record.ComplianceIssues[index].Severity))
	}
	add(tagSet,
		record.GeyserMake,
		record.GeyserLocation,
		string(record.PlumberIndemnity),
		record.ClientSurname,
	)
	if record.UrgentAction {
		add(tagSet, "urgent")
	}

	return toSlice(tagSet, MaxIndexedTags)
}

func add(set map[string]struct{}, terms ...string) {
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			set[t] = struct{}{}
		}
	}
}

func toSlice(set map[string]struct{}, limit int) []string {
	result := make([]string, 0, len(set))
	for k := range set {
		result = append(result, k)
	}
	sort.Strings(result)
	if len(result) > limit {
		result = result[:limit]
	}
	return result
}
