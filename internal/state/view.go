package state

import (
	"strategy-lab/internal/domain"
)

// ApplyLeaderboards caches a fetched leaderboard set on a record and expands
// it. Every row is tagged with the record id and with the instrument code read
// from instrumentColumn. The selected category defaults to the first category
// in service order. visible restricts the record's view; nil leaves it
// unrestricted.
func ApplyLeaderboards(s State, id string, set *domain.LeaderboardSet, instrumentColumn string, visible map[string]struct{}) State {
	if set == nil {
		return s
	}
	rows := make(map[string][]domain.LeaderboardRow, len(set.Categories))
	for _, category := range set.Categories {
		tagged := make([]domain.LeaderboardRow, 0, len(set.Rows[category]))
		for _, row := range set.Rows[category] {
			code, _ := row.Get(instrumentColumn)
			tagged = append(tagged, domain.LeaderboardRow{
				Row:            row,
				InstrumentCode: code.Text(),
				BacktestID:     id,
			})
		}
		rows[category] = tagged
	}
	order := append([]string(nil), set.Categories...)

	s = updateRecord(s, id, func(r domain.BacktestRecord) domain.BacktestRecord {
		r.Leaderboards = rows
		r.CategoryOrder = order
		r.VisibleCategories = copySet(visible)
		r.Expanded = true
		r.SelectedCategory = firstVisible(r)
		return r
	})
	s = setRecordPage(s, id, 1)
	return resetPage(s)
}

// SetExpanded toggles a record's visibility flag. The cache is never touched.
// Expanding a record that has no cache is a no-op; the fetch path expands it
// once data arrives.
func SetExpanded(s State, id string, expanded bool) State {
	r, ok := s.Record(id)
	if !ok || r.Expanded == expanded {
		return s
	}
	if expanded && !r.Fetched() {
		return s
	}
	s = updateRecord(s, id, func(r domain.BacktestRecord) domain.BacktestRecord {
		r.Expanded = expanded
		return r
	})
	return resetPage(s)
}

// CollapseAll hides every record without discarding any cache.
func CollapseAll(s State) State {
	s = updateHistories(s, func(r domain.BacktestRecord) domain.BacktestRecord {
		r.Expanded = false
		return r
	})
	return resetPage(s)
}

// RestrictCategories limits a record's view to the given categories. Cached
// data outside the subset stays cached and reappears once the restriction is
// lifted with a nil subset.
func RestrictCategories(s State, id string, categories map[string]struct{}) State {
	s = updateRecord(s, id, func(r domain.BacktestRecord) domain.BacktestRecord {
		r.VisibleCategories = copySet(categories)
		if !r.CategoryVisible(r.SelectedCategory) {
			r.SelectedCategory = firstVisible(r)
		}
		return r
	})
	return resetPage(s)
}

// SelectCategory changes the category shown in a record's own view. Unknown or
// hidden categories are ignored.
func SelectCategory(s State, id, category string) State {
	r, ok := s.Record(id)
	if !ok || !r.CategoryVisible(category) {
		return s
	}
	s = updateRecord(s, id, func(r domain.BacktestRecord) domain.BacktestRecord {
		r.SelectedCategory = category
		return r
	})
	return setRecordPage(s, id, 1)
}

// SetFilters replaces the global filter set.
func SetFilters(s State, filters []domain.FilterCondition) State {
	s.Filters = append([]domain.FilterCondition(nil), filters...)
	s.RecordPages = nil
	return resetPage(s)
}

// RemoveFilter drops the filter at position i.
func RemoveFilter(s State, i int) State {
	if i < 0 || i >= len(s.Filters) {
		return s
	}
	next := make([]domain.FilterCondition, 0, len(s.Filters)-1)
	next = append(next, s.Filters[:i]...)
	next = append(next, s.Filters[i+1:]...)
	return SetFilters(s, next)
}

// ClearFilters removes every global filter.
func ClearFilters(s State) State {
	return SetFilters(s, nil)
}

// SetUnique toggles the one-row-per-instrument projection.
func SetUnique(s State, unique bool) State {
	if s.Unique == unique {
		return s
	}
	s.Unique = unique
	return resetPage(s)
}

// SetPage moves the global leaderboard to page, clamped into [1, totalPages].
func SetPage(s State, page, totalPages int) State {
	s.Page = clamp(page, totalPages)
	return s
}

// SetRecordPage moves a record's own view to page, clamped into [1, totalPages].
func SetRecordPage(s State, id string, page, totalPages int) State {
	return setRecordPage(s, id, clamp(page, totalPages))
}

// RecordPage returns the current page of a record's own view.
func RecordPage(s State, id string) int {
	if p, ok := s.RecordPages[id]; ok && p > 0 {
		return p
	}
	return 1
}

func setRecordPage(s State, id string, page int) State {
	next := make(map[string]int, len(s.RecordPages)+1)
	for k, v := range s.RecordPages {
		next[k] = v
	}
	next[id] = page
	s.RecordPages = next
	return s
}

func clamp(page, totalPages int) int {
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

func firstVisible(r domain.BacktestRecord) string {
	if names := r.VisibleCategoryNames(); len(names) > 0 {
		return names[0]
	}
	return ""
}

func copySet(in map[string]struct{}) map[string]struct{} {
	if in == nil {
		return nil
	}
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}
