package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// TimeRange is a calendar window. A zero Start or End marks a range that is
// still being edited.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Complete reports whether both dates are present.
func (r TimeRange) Complete() bool {
	return !r.Start.IsZero() && !r.End.IsZero()
}

// Ordered reports whether Start is not after End.
func (r TimeRange) Ordered() bool {
	return !r.Start.After(r.End)
}

// StartText formats Start, or "" when missing.
func (r TimeRange) StartText() string {
	if r.Start.IsZero() {
		return ""
	}
	return r.Start.Format(DateLayout)
}

// EndText formats End, or "" when missing.
func (r TimeRange) EndText() string {
	if r.End.IsZero() {
		return ""
	}
	return r.End.Format(DateLayout)
}

func (r TimeRange) String() string {
	return r.StartText() + " ~ " + r.EndText()
}

type timeRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MarshalJSON writes the range as {"start":"YYYY-MM-DD","end":"YYYY-MM-DD"}.
// Missing dates are written as "".
func (r TimeRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(timeRangeJSON{Start: r.StartText(), End: r.EndText()})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (r *TimeRange) UnmarshalJSON(data []byte) error {
	var raw timeRangeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := parseDay("start", raw.Start)
	if err != nil {
		return err
	}
	end, err := parseDay("end", raw.End)
	if err != nil {
		return err
	}
	r.Start, r.End = start, end
	return nil
}

func parseDay(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, NewValidationError(field, "expected a YYYY-MM-DD date")
	}
	return t, nil
}
