// Package window resolves named time filters into absolute ranges.
package window

import (
	"errors"
	"fmt"
	"time"
)

// Filter is a named leaderboard time window.
type Filter string

// Supported filters. The set is closed; anything else is a client error.
const (
	Today     Filter = "today"
	Yesterday Filter = "yesterday"
	ThisWeek  Filter = "this_week"
)

// ErrInvalidFilter marks an unrecognized filter name. Callers must treat it
// as a client error, not a retryable condition.
var ErrInvalidFilter = errors.New("invalid time filter")

// Range is a half-open [Start, End) interval in the same timezone domain as
// stored timestamps.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// ParseFilter validates a raw filter string. An empty string defaults to
// Today, matching the dashboards' default selection.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case Today, Yesterday, ThisWeek:
		return Filter(s), nil
	case "":
		return Today, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, s)
	}
}

// Resolve converts a filter into an absolute range anchored to now.
// The week starts on Monday; if now is itself a Monday, this_week starts at
// today's midnight.
func Resolve(f Filter, now time.Time) (Range, error) {
	mid := midnight(now)
	switch f {
	case Today:
		return Range{Start: mid, End: now}, nil
	case Yesterday:
		return Range{Start: mid.AddDate(0, 0, -1), End: mid}, nil
	case ThisWeek:
		daysSinceMonday := (int(now.Weekday()) + 6) % 7
		return Range{Start: mid.AddDate(0, 0, -daysSinceMonday), End: now}, nil
	default:
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidFilter, string(f))
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
