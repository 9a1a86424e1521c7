package leaderboard

import (
	"strategy-lab/internal/domain"
	"strategy-lab/internal/state"
)

// View is one rendered leaderboard: the filtered set, its optional
// one-row-per-instrument projection and the current page of whichever is
// displayed.
type View struct {
	// Filtered is the full filtered set. It is kept even when Unique is on so
	// that turning the projection off needs no recomputation upstream.
	Filtered []domain.LeaderboardRow `json:"-"`
	// Displayed is Filtered, or its projection when Unique is on.
	Displayed []domain.LeaderboardRow `json:"-"`

	Rows          []domain.LeaderboardRow `json:"rows"`
	Unique        bool                    `json:"unique"`
	FilteredCount int                     `json:"filteredCount"`
	Total         int                     `json:"total"`
	Page          int                     `json:"page"`
	TotalPages    int                     `json:"totalPages"`
	Category      string                  `json:"category,omitempty"`
}

// Build derives a view from rows and the view settings.
func Build(rows []domain.LeaderboardRow, filters []domain.FilterCondition, unique bool, page int) View {
	filtered := Filter(rows, filters)
	displayed := filtered
	if unique {
		displayed = Unique(filtered)
	}
	total := TotalPages(len(displayed), PageSize)
	page = ClampPage(page, total)
	return View{
		Filtered:      filtered,
		Displayed:     displayed,
		Rows:          PageOf(displayed, page, PageSize),
		Unique:        unique,
		FilteredCount: len(filtered),
		Total:         len(displayed),
		Page:          page,
		TotalPages:    total,
	}
}

// Global is the cross-backtest view over every expanded record.
func Global(s state.State) View {
	return Build(Aggregate(s.Strategies), s.Filters, s.Unique, s.Page)
}

// Record is the view of one record's selected category with the global
// filters applied. The second result is false when the record is unknown or
// has no cached leaderboards.
func Record(s state.State, id string) (View, bool) {
	r, ok := s.Record(id)
	if !ok || !r.Fetched() {
		return View{}, false
	}
	var rows []domain.LeaderboardRow
	if r.CategoryVisible(r.SelectedCategory) {
		rows = r.Leaderboards[r.SelectedCategory]
	}
	v := Build(rows, s.Filters, false, state.RecordPage(s, id))
	v.Category = r.SelectedCategory
	return v, true
}

// Export returns the comma-joined distinct instrument codes of the current
// page, or of the whole displayed set when all is true.
func (v View) Export(all bool) string {
	if all {
		return InstrumentCodes(v.Displayed)
	}
	return InstrumentCodes(v.Rows)
}
