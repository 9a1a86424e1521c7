// Package timerange generates and parses backtest date windows.
package timerange

import (
	"time"

	"strategy-lab/internal/domain"
)

// DefaultCutoff is the earliest start a generated window may have.
var DefaultCutoff = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// GenerateWindows returns up to count nested windows that all end at today.
// Window i (1-based) starts i*durationDays before today. Generation stops at
// the first window whose start would precede cutoff.
func GenerateWindows(count, durationDays int, today, cutoff time.Time) []domain.TimeRange {
	if count <= 0 || durationDays <= 0 {
		return nil
	}
	end := Day(today)
	cutoff = Day(cutoff)

	out := make([]domain.TimeRange, 0, count)
	for i := 1; i <= count; i++ {
		start := end.AddDate(0, 0, -i*durationDays)
		if start.Before(cutoff) {
			break
		}
		out = append(out, domain.TimeRange{Start: start, End: end})
	}
	return out
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Preset is a quick-select window length.
type Preset string

const (
	PresetHalfYear Preset = "half_year"
	PresetOneYear  Preset = "one_year"
	PresetTwoYears Preset = "two_years"
)

// PresetRange returns the preset window ending today.
func PresetRange(p Preset, today time.Time) (domain.TimeRange, error) {
	end := Day(today)
	var start time.Time
	switch p {
	case PresetHalfYear:
		start = end.AddDate(0, -6, 0)
	case PresetOneYear:
		start = end.AddDate(-1, 0, 0)
	case PresetTwoYears:
		start = end.AddDate(-2, 0, 0)
	default:
		return domain.TimeRange{}, domain.NewValidationError("preset", "unknown preset "+string(p))
	}
	return domain.TimeRange{Start: start, End: end}, nil
}
