package timerange

import (
	"fmt"
	"strings"
	"time"

	"strategy-lab/internal/domain"
)

var dateLayouts = []string{
	domain.DateLayout,
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
}

// ParseDate parses a calendar date in any of the layouts the service and
// operators use. An empty string yields the zero time.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// ParseRange parses both ends of a window. Missing ends stay zero.
func ParseRange(start, end string) (domain.TimeRange, error) {
	s, err := ParseDate(start)
	if err != nil {
		return domain.TimeRange{}, domain.NewValidationError("start", err.Error())
	}
	e, err := ParseDate(end)
	if err != nil {
		return domain.TimeRange{}, domain.NewValidationError("end", err.Error())
	}
	return domain.TimeRange{Start: s, End: e}, nil
}

// FromEpochMillis converts a service epoch timestamp to a calendar date.
func FromEpochMillis(ms int64) time.Time {
	return Day(time.UnixMilli(ms).UTC())
}
