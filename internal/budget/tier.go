package budget

import (
	"fmt"
	"time"
)

// RetentionMode is how much of an aging item is kept.
type RetentionMode string

const (
	RetentionFull    RetentionMode = "full"    // verbatim retention
	RetentionSummary RetentionMode = "summary" // compressed retention
	RetentionIndex   RetentionMode = "index"   // reference-only retention
)

// TierInfo classifies one dated content item by age.
type TierInfo struct {
	Tier      string        `json:"tier"`
	Retention RetentionMode `json:"retention_mode"`
	AgeDays   int           `json:"age_days"`
}

// Tier age boundaries in days.
const (
	tier1MaxAgeDays = 30
	tier2MaxAgeDays = 90
)

// dateLayouts are the accepted input formats for Tier.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
}

// Tier classifies a date string by its age relative to now.
func Tier(raw string) (*TierInfo, error) {
	return TierAt(raw, time.Now())
}

// TierAt classifies a date string by its age relative to a fixed
// reference time. Age is measured in whole elapsed days, so a date
// exactly 30 days old is still tier1 and one 31 days old is tier2.
func TierAt(raw string, now time.Time) (*TierInfo, error) {
	var parsed time.Time
	var err error
	for _, layout := range dateLayouts {
		parsed, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q (expected YYYY-MM-DD or RFC3339)", ErrInvalidDate, raw)
	}

	ageDays := int(now.Sub(parsed).Hours() / 24)
	return classifyAge(ageDays), nil
}

func classifyAge(ageDays int) *TierInfo {
	switch {
	case ageDays <= tier1MaxAgeDays:
		return &TierInfo{Tier: "tier1", Retention: RetentionFull, AgeDays: ageDays}
	case ageDays <= tier2MaxAgeDays:
		return &TierInfo{Tier: "tier2", Retention: RetentionSummary, AgeDays: ageDays}
	default:
		return &TierInfo{Tier: "tier3", Retention: RetentionIndex, AgeDays: ageDays}
	}
}
