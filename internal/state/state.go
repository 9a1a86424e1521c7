// Package state holds the dashboard's application state and the pure
// transition functions that are the only way to change it.
//
// A State is treated as immutable: every transition returns a new value and
// copies whatever slices or maps it touches, so a State handed out earlier is
// never observed changing.
package state

import (
	"strategy-lab/internal/domain"
)

// State is the complete client-side state of the strategy dashboard.
type State struct {
	Strategies []domain.Strategy

	// SelectedStrategies scopes batch campaigns, keyed by strategy name.
	SelectedStrategies map[string]struct{}

	Filters []domain.FilterCondition
	Unique  bool
	Page    int

	// RecordPages is the per-record leaderboard page, keyed by backtest id.
	RecordPages map[string]int

	// RangeDrafts holds the per-strategy windows of a multi-range campaign.
	RangeDrafts map[string][]domain.TimeRange
}

// New returns the empty state.
func New() State {
	return State{Page: 1}
}

// StrategyIndex returns the position of a strategy by name.
func (s State) StrategyIndex(name string) (int, bool) {
	for i := range s.Strategies {
		if s.Strategies[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Strategy returns a strategy by name.
func (s State) Strategy(name string) (domain.Strategy, bool) {
	i, ok := s.StrategyIndex(name)
	if !ok {
		return domain.Strategy{}, false
	}
	return s.Strategies[i], true
}

// FindRecord locates a backtest record by id.
func (s State) FindRecord(id string) (strategyIdx, recordIdx int, ok bool) {
	for si := range s.Strategies {
		for ri := range s.Strategies[si].BacktestHistory {
			if s.Strategies[si].BacktestHistory[ri].ID == id {
				return si, ri, true
			}
		}
	}
	return -1, -1, false
}

// Record returns a copy of a backtest record by id.
func (s State) Record(id string) (domain.BacktestRecord, bool) {
	si, ri, ok := s.FindRecord(id)
	if !ok {
		return domain.BacktestRecord{}, false
	}
	return s.Strategies[si].BacktestHistory[ri], true
}

// RecordIDs lists every record id in strategy-then-record order.
func (s State) RecordIDs() []string {
	var ids []string
	for _, st := range s.Strategies {
		for _, r := range st.BacktestHistory {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

// updateRecord returns a state in which the record with id has been replaced
// by fn's result. Only the touched strategy and history are copied.
func updateRecord(s State, id string, fn func(r domain.BacktestRecord) domain.BacktestRecord) State {
	si, ri, ok := s.FindRecord(id)
	if !ok {
		return s
	}
	strategies := append([]domain.Strategy(nil), s.Strategies...)
	st := strategies[si]
	history := append([]domain.BacktestRecord(nil), st.BacktestHistory...)
	history[ri] = fn(history[ri])
	st.BacktestHistory = history
	strategies[si] = st
	s.Strategies = strategies
	return s
}

// updateHistories applies fn to every record, copying everything.
func updateHistories(s State, fn func(r domain.BacktestRecord) domain.BacktestRecord) State {
	strategies := make([]domain.Strategy, len(s.Strategies))
	for i, st := range s.Strategies {
		history := make([]domain.BacktestRecord, len(st.BacktestHistory))
		for j, r := range st.BacktestHistory {
			history[j] = fn(r)
		}
		st.BacktestHistory = history
		strategies[i] = st
	}
	s.Strategies = strategies
	return s
}

// resetPage returns the state with the global leaderboard back on page 1.
// Every transition that changes the filtered set calls it.
func resetPage(s State) State {
	s.Page = 1
	return s
}

// ReplaceCatalog installs a freshly listed catalog. View state (expansion,
// cached leaderboards, category choice, selection) survives for records whose
// id is still present. Selected strategies that no longer exist are dropped.
func ReplaceCatalog(s State, strategies []domain.Strategy) State {
	previous := make(map[string]domain.BacktestRecord)
	for _, st := range s.Strategies {
		for _, r := range st.BacktestHistory {
			previous[r.ID] = r
		}
	}

	next := make([]domain.Strategy, len(strategies))
	names := make(map[string]struct{}, len(strategies))
	for i, st := range strategies {
		history := make([]domain.BacktestRecord, len(st.BacktestHistory))
		for j, r := range st.BacktestHistory {
			if old, ok := previous[r.ID]; ok {
				r.Expanded = old.Expanded
				r.Selected = old.Selected
				r.Leaderboards = old.Leaderboards
				r.CategoryOrder = old.CategoryOrder
				r.VisibleCategories = old.VisibleCategories
				r.SelectedCategory = old.SelectedCategory
			}
			history[j] = r
		}
		st.BacktestHistory = history
		next[i] = st
		names[st.Name] = struct{}{}
	}
	s.Strategies = next

	if len(s.SelectedStrategies) > 0 {
		selected := make(map[string]struct{}, len(s.SelectedStrategies))
		for name := range s.SelectedStrategies {
			if _, ok := names[name]; ok {
				selected[name] = struct{}{}
			}
		}
		s.SelectedStrategies = selected
	}
	return resetPage(s)
}
