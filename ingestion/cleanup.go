package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/gleaner/ai"
	"github.com/poiesic/gleaner/core"
	"github.com/poiesic/gleaner/extract"
	"github.com/poiesic/gleaner/metrics"
)

// cleaner sends a merged record back through the LLM to tighten it up.
type cleaner struct {
	completer   ai.Completer
	profile     ai.Profile
	instruction string
	logger      *slog.Logger
}

func newCleaner(completer ai.Completer, profile ai.Profile, instruction string, logger *slog.Logger) *cleaner {
	return &cleaner{
		completer:   completer,
		profile:     profile,
		instruction: instruction,
		logger:      logger.With("stage", "cleanup"),
	}
}

// cleanup returns the cleaned record. Every error wraps core.ErrCleanupFailed.
func (c *cleaner) cleanup(ctx context.Context, merged *core.ExtractedRecord) (*core.ExtractedRecord, error) {
	payload, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCleanupFailed, err)
	}

	prompt := ai.Prompt{
		System: c.instruction,
		User:   cleanupPrefix + string(payload),
	}
	reply, err := c.completer.Complete(ctx, prompt, c.profile)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCleanupFailed, err)
	}

	cleaned, outcome, err := extract.ParseOutcome(reply)
	metrics.ReplyParsed(outcome.String())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCleanupFailed, err)
	}

	if isEmptyRecord(cleaned) {
		return nil, fmt.Errorf("%w: %w", core.ErrCleanupFailed, ErrEmptyCleanup)
	}

	dedupeRecord(cleaned)
	c.logger.Debug("cleaned record",
		"keywords", len(cleaned.Keywords),
		"insights", len(cleaned.MajorInsights),
		"repair", outcome.String())
	return cleaned, nil
}

// isEmptyRecord reports whether r has no non-blank scalar and no list item.
func isEmptyRecord(r *core.ExtractedRecord) bool {
	for _, v := range []string{r.Author, r.Site, r.PublishDate, r.MainTopic, r.ParentTopic, r.Field} {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return len(r.Keywords) == 0 && len(r.MajorInsights) == 0 &&
		len(r.SupportingDetails) == 0 && len(r.RelevantQuotations) == 0 &&
		len(r.ExternalLinks) == 0
}
