package masking

import (
	"fmt"
	"sort"
	"time"
)

// Result describes one call to Engine.MaskResult.
type Result struct {
	// Original is the unmasked input
	Original string `json:"-"`

	// Masked is the input after all rules ran
	Masked string `json:"masked"`

	// ByRule maps rule IDs to the number of outer spans they rewrote
	ByRule map[string]int `json:"by_rule,omitempty"`

	// TotalSpans is the sum of ByRule
	TotalSpans int `json:"total_spans"`

	// Skipped lists rules that failed on this message, in order
	Skipped []string `json:"skipped,omitempty"`

	// Duration is how long masking took
	Duration time.Duration `json:"duration"`
}

// Changed reports whether masking altered the message.
func (r *Result) Changed() bool {
	return r.Masked != r.Original
}

// RuleIDs returns the IDs of rules that rewrote at least one span, sorted.
func (r *Result) RuleIDs() []string {
	ids := make([]string, 0, len(r.ByRule))
	for id := range r.ByRule {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Summary returns a brief description of the result.
func (r *Result) Summary() string {
	switch {
	case r.TotalSpans == 0 && len(r.Skipped) == 0:
		return "nothing masked"
	case len(r.Skipped) > 0:
		return fmt.Sprintf("%d span(s) masked, %d rule(s) skipped", r.TotalSpans, len(r.Skipped))
	default:
		return fmt.Sprintf("%d span(s) masked", r.TotalSpans)
	}
}
