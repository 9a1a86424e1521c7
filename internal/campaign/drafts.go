package campaign

import (
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/timerange"
)

// Drafts holds the per-strategy window lists of a multi-range campaign,
// keyed by strategy name. Every function here returns a new map and never
// modifies its input.
type Drafts map[string][]domain.TimeRange

// Generator holds the auto-generation parameters.
type Generator struct {
	Count        int
	DurationDays int
	Cutoff       time.Time
}

// DefaultGenerator produces 20 windows of 15-day steps back to 2000-01-01.
var DefaultGenerator = Generator{Count: 20, DurationDays: 15, Cutoff: timerange.DefaultCutoff}

// Windows generates the nested windows ending today.
func (g Generator) Windows(today time.Time) []domain.TimeRange {
	return timerange.GenerateWindows(g.Count, g.DurationDays, today, g.Cutoff)
}

func (d Drafts) clone() Drafts {
	out := make(Drafts, len(d))
	for name, windows := range d {
		out[name] = append([]domain.TimeRange(nil), windows...)
	}
	return out
}

// InitDrafts keeps the windows of strategies still selected and gives every
// newly selected strategy one empty window to edit.
func InitDrafts(d Drafts, strategies []domain.Strategy) Drafts {
	out := make(Drafts, len(strategies))
	for _, st := range strategies {
		if windows, ok := d[st.Name]; ok && len(windows) > 0 {
			out[st.Name] = append([]domain.TimeRange(nil), windows...)
			continue
		}
		out[st.Name] = []domain.TimeRange{{}}
	}
	return out
}

// AddRange appends an empty window to a strategy's list.
func AddRange(d Drafts, name string) Drafts {
	out := d.clone()
	out[name] = append(out[name], domain.TimeRange{})
	return out
}

// RemoveRange drops the window at i. Out-of-range positions are ignored.
func RemoveRange(d Drafts, name string, i int) Drafts {
	windows := d[name]
	if i < 0 || i >= len(windows) {
		return d
	}
	out := d.clone()
	out[name] = append(out[name][:i:i], windows[i+1:]...)
	return out
}

// SetRange replaces the window at i. Out-of-range positions are ignored.
func SetRange(d Drafts, name string, i int, r domain.TimeRange) Drafts {
	if i < 0 || i >= len(d[name]) {
		return d
	}
	out := d.clone()
	out[name][i] = r
	return out
}

// FillPreset sets the window at i to a quick preset ending today.
func FillPreset(d Drafts, name string, i int, p timerange.Preset, today time.Time) (Drafts, error) {
	r, err := timerange.PresetRange(p, today)
	if err != nil {
		return d, err
	}
	return SetRange(d, name, i, r), nil
}

// FillGenerated replaces one strategy's list with generated windows.
func FillGenerated(d Drafts, name string, g Generator, today time.Time) (Drafts, error) {
	windows := g.Windows(today)
	if len(windows) == 0 {
		return d, domain.NewValidationError("generator", "count and duration must be positive and within the cutoff")
	}
	out := d.clone()
	out[name] = windows
	return out, nil
}

// AutoGenerate replaces the lists of every given strategy with generated windows.
func AutoGenerate(d Drafts, strategies []domain.Strategy, g Generator, today time.Time) (Drafts, error) {
	if len(strategies) == 0 {
		return d, domain.NewValidationError("strategies", "select at least one strategy")
	}
	windows := g.Windows(today)
	if len(windows) == 0 {
		return d, domain.NewValidationError("generator", "count and duration must be positive and within the cutoff")
	}
	out := d.clone()
	for _, st := range strategies {
		out[st.Name] = append([]domain.TimeRange(nil), windows...)
	}
	return out, nil
}

// Total counts the windows across the given strategies.
func (d Drafts) Total(strategies []domain.Strategy) int {
	n := 0
	for _, st := range strategies {
		n += len(d[st.Name])
	}
	return n
}
