// Package domain holds the plain data types shared by the catalog, the campaign
// orchestrator and the leaderboard engine.
package domain

import "time"

// DateLayout is the calendar date format used on the wire and in backtest ids.
const DateLayout = "2006-01-02"

// Strategy is a named pair of buy/sell condition sets together with its
// submission history. The name is the identity and never changes.
type Strategy struct {
	Name            string
	BuyConditions   []string
	SellConditions  []string
	BaseData        []string
	BacktestHistory []BacktestRecord
}

// BacktestRecord is one submitted backtest as listed by the execution service,
// plus the view state the dashboard keeps for it.
type BacktestRecord struct {
	ID             string
	StrategyName   string
	SubmittedAt    string
	StartDate      time.Time
	EndDate        time.Time
	Instruments    []string
	BuyConditions  []string
	SellConditions []string
	IndexCode      string
	IndexName      string

	Expanded bool
	Selected bool

	// Leaderboards is nil until the first successful fetch.
	Leaderboards  map[string][]LeaderboardRow
	CategoryOrder []string

	// VisibleCategories restricts which cached categories are shown.
	// Nil means every cached category is visible.
	VisibleCategories map[string]struct{}
	SelectedCategory  string
}

// Fetched reports whether the record's leaderboards are cached.
func (r *BacktestRecord) Fetched() bool {
	return r.Leaderboards != nil
}

// CategoryVisible reports whether a cached category is part of the record's view.
func (r *BacktestRecord) CategoryVisible(category string) bool {
	if _, ok := r.Leaderboards[category]; !ok {
		return false
	}
	if r.VisibleCategories == nil {
		return true
	}
	_, ok := r.VisibleCategories[category]
	return ok
}

// VisibleCategoryNames returns the visible cached categories in service order.
func (r *BacktestRecord) VisibleCategoryNames() []string {
	out := make([]string, 0, len(r.CategoryOrder))
	for _, category := range r.CategoryOrder {
		if r.CategoryVisible(category) {
			out = append(out, category)
		}
	}
	return out
}

// FirstInstrument returns the first instrument of the record, or "".
func (r *BacktestRecord) FirstInstrument() string {
	if len(r.Instruments) == 0 {
		return ""
	}
	return r.Instruments[0]
}

// Range returns the record's window.
func (r *BacktestRecord) Range() TimeRange {
	return TimeRange{Start: r.StartDate, End: r.EndDate}
}

// IndexOption is an index the service can expand into a constituent instrument list.
type IndexOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Option is a selectable value offered by the reference data feed.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Confirmer asks the operator to confirm a destructive action.
type Confirmer func(prompt string) bool

// AlwaysConfirm approves every prompt.
func AlwaysConfirm(string) bool { return true }

// NeverConfirm declines every prompt.
func NeverConfirm(string) bool { return false }
