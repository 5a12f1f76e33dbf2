package extract

import (
	"fmt"
	"strings"

	"github.com/poiesic/gleaner/core"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Outcome reports which step of the repair ladder produced a record.
type Outcome int

const (
	// OutcomeFailed means no step produced a JSON object.
	OutcomeFailed Outcome = iota
	// OutcomeStrict means the reply decoded after fence stripping and
	// control character escaping.
	OutcomeStrict
	// OutcomeRepaired means textual repair was needed.
	OutcomeRepaired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStrict:
		return "strict"
	case OutcomeRepaired:
		return "repaired"
	default:
		return "failed"
	}
}

// insightsAltKey is accepted in place of major_insights.
const insightsAltKey = "major_insights_or_novel_concepts"

// Parse decodes an LLM reply into a record, repairing common defects.
// It returns core.ErrUnparsableReply when the reply cannot be repaired.
func Parse(reply string) (*core.ExtractedRecord, error) {
	rec, _, err := ParseOutcome(reply)
	return rec, err
}

// ParseOutcome is Parse that also reports which repair step succeeded.
func ParseOutcome(reply string) (*core.ExtractedRecord, Outcome, error) {
	escaped := escapeControlChars(stripFences(reply))
	if obj, ok := decodeObject(escaped); ok {
		return toRecord(obj), OutcomeStrict, nil
	}

	repaired := escapeControlChars(textualRepair(escaped))
	if obj, ok := decodeObject(repaired); ok {
		return toRecord(obj), OutcomeRepaired, nil
	}

	return nil, OutcomeFailed, fmt.Errorf("%w: %s", core.ErrUnparsableReply, preview(reply))
}

func decodeObject(s string) (gjson.Result, bool) {
	if !gjson.Valid(s) {
		return gjson.Result{}, false
	}
	obj := gjson.Parse(s)
	return obj, obj.IsObject()
}

func toRecord(obj gjson.Result) *core.ExtractedRecord {
	insights := obj.Get("major_insights")
	if !insights.Exists() {
		insights = obj.Get(insightsAltKey)
	}

	return &core.ExtractedRecord{
		Author:             scalar(obj.Get("author")),
		Site:               scalar(obj.Get("site")),
		PublishDate:        scalar(obj.Get("publish_date")),
		MainTopic:          scalar(obj.Get("main_topic")),
		ParentTopic:        scalar(obj.Get("parent_topic")),
		Field:              scalar(obj.Get("field")),
		Keywords:           keywords(obj.Get("keywords")),
		MajorInsights:      majorInsights(insights),
		SupportingDetails:  stringList(obj.Get("supporting_details")),
		RelevantQuotations: stringList(obj.Get("relevant_quotations")),
		ExternalLinks:      stringList(obj.Get("external_links")),
	}
}

// scalar renders a value as text. Arrays are joined with ", ".
func scalar(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.Str
	case v.IsArray():
		parts := make([]string, 0, len(v.Array()))
		for _, item := range v.Array() {
			if s := scalar(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return compact(v.Raw)
	}
}

// stringList accepts an array or a single value. Non-string items are kept
// as compact JSON text; nulls carry no content and are skipped.
func stringList(v gjson.Result) []string {
	out := []string{}
	each(v, func(item gjson.Result) {
		switch item.Type {
		case gjson.Null:
		case gjson.String:
			out = append(out, item.Str)
		default:
			out = append(out, compact(item.Raw))
		}
	})
	return out
}

func keywords(v gjson.Result) []core.Keyword {
	out := []core.Keyword{}
	each(v, func(item gjson.Result) {
		switch {
		case item.Type == gjson.Null:
		case item.IsObject():
			out = append(out, core.Keyword{
				Keyword:         scalar(item.Get("keyword")),
				Definition:      scalar(item.Get("definition")),
				RelationToTopic: scalar(item.Get("relation_to_topic")),
			})
		default:
			out = append(out, core.Keyword{Keyword: scalar(item)})
		}
	})
	return out
}

func majorInsights(v gjson.Result) []core.Insight {
	out := []core.Insight{}
	each(v, func(item gjson.Result) {
		switch {
		case item.Type == gjson.Null:
		case item.IsObject():
			out = append(out, core.Insight{
				Insight: scalar(item.Get("insight")),
				Concept: scalar(item.Get("concept")),
			})
		default:
			out = append(out, core.Insight{Insight: scalar(item)})
		}
	})
	return out
}

func each(v gjson.Result, fn func(gjson.Result)) {
	if !v.Exists() {
		return
	}
	if !v.IsArray() {
		fn(v)
		return
	}
	v.ForEach(func(_, item gjson.Result) bool {
		fn(item)
		return true
	})
}

func compact(raw string) string {
	return string(pretty.Ugly([]byte(raw)))
}

func preview(s string) string {
	const max = 120
	r := []rune(strings.TrimSpace(s))
	if len(r) > max {
		return string(r[:max]) + "..."
	}
	return string(r)
}
