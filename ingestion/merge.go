package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/poiesic/gleaner/core"
)

// Merge combines chunk records in input order. The first non-blank value of
// each scalar wins, and "unknown" counts as a value. List fields are
// concatenated and deduplicated. Nil records are skipped.
func Merge(records []*core.ExtractedRecord) *core.ExtractedRecord {
	merged := &core.ExtractedRecord{}
	for _, r := range records {
		if r == nil {
			continue
		}
		firstWins(&merged.Author, r.Author)
		firstWins(&merged.Site, r.Site)
		firstWins(&merged.PublishDate, r.PublishDate)
		firstWins(&merged.MainTopic, r.MainTopic)
		firstWins(&merged.ParentTopic, r.ParentTopic)
		firstWins(&merged.Field, r.Field)

		merged.Keywords = append(merged.Keywords, r.Keywords...)
		merged.MajorInsights = append(merged.MajorInsights, r.MajorInsights...)
		merged.SupportingDetails = append(merged.SupportingDetails, r.SupportingDetails...)
		merged.RelevantQuotations = append(merged.RelevantQuotations, r.RelevantQuotations...)
		merged.ExternalLinks = append(merged.ExternalLinks, r.ExternalLinks...)
	}
	dedupeRecord(merged)
	return merged
}

func firstWins(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// dedupeRecord deduplicates every list field in place.
func dedupeRecord(r *core.ExtractedRecord) {
	r.Keywords = Dedupe(r.Keywords)
	r.MajorInsights = Dedupe(r.MajorInsights)
	r.SupportingDetails = Dedupe(r.SupportingDetails)
	r.RelevantQuotations = Dedupe(r.RelevantQuotations)
	r.ExternalLinks = Dedupe(r.ExternalLinks)
}

// Dedupe keeps the first occurrence of each structurally distinct item,
// preserving order. Items are compared by the fingerprint of their JSON
// encoding. The result is never nil.
func Dedupe[T any](items []T) []T {
	out := make([]T, 0, len(items))
	seen := make(map[core.ID]struct{}, len(items))
	for _, item := range items {
		id := fingerprint(item)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}

func fingerprint(v any) core.ID {
	b, err := json.Marshal(v)
	if err != nil {
		return core.IDFromContent(fmt.Sprintf("%#v", v))
	}
	return core.IDFromContent(string(b))
}
