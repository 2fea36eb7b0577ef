package state

import (
	"fmt"
	"strings"
	"time"
)

// TimeRange is a history window preset.
type TimeRange string

const (
	Range5m  TimeRange = "5m"
	Range1h  TimeRange = "1h"
	Range24h TimeRange = "24h"

	DefaultTimeRange = Range1h
)

// TimeRanges lists presets in selection order.
var TimeRanges = []TimeRange{Range5m, Range1h, Range24h}

// Duration returns the span of the preset.
func (r TimeRange) Duration() time.Duration {
	switch r {
	case Range5m:
		return 5 * time.Minute
	case Range24h:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

// Label returns the human-readable name of the preset.
func (r TimeRange) Label() string {
	switch r {
	case Range5m:
		return "5 minutes"
	case Range24h:
		return "24 hours"
	default:
		return "1 hour"
	}
}

// Bounds returns the window ending at now.
func (r TimeRange) Bounds(now time.Time) (from, to time.Time) {
	return now.Add(-r.Duration()), now
}

// ParseTimeRange accepts a preset name such as "5m", "1h" or "24h".
func ParseTimeRange(value string) (TimeRange, error) {
	candidate := TimeRange(strings.ToLower(strings.TrimSpace(value)))
	for _, r := range TimeRanges {
		if r == candidate {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown time range %q", value)
}

func normalizeRange(r TimeRange) TimeRange {
	if parsed, err := ParseTimeRange(string(r)); err == nil {
		return parsed
	}
	return DefaultTimeRange
}
