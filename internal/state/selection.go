package state

import (
	"strategy-lab/internal/domain"
)

// The per-record Selected flag is the only stored form of record selection.
// The per-strategy index set is derived from it, so the two views cannot
// diverge.

// SetRecordSelected sets the selection flag of the record at index within a strategy.
// Out-of-range positions leave the state unchanged.
func SetRecordSelected(s State, strategyName string, index int, selected bool) State {
	si, ok := s.StrategyIndex(strategyName)
	if !ok || index < 0 || index >= len(s.Strategies[si].BacktestHistory) {
		return s
	}
	id := s.Strategies[si].BacktestHistory[index].ID
	return updateRecord(s, id, func(r domain.BacktestRecord) domain.BacktestRecord {
		r.Selected = selected
		return r
	})
}

// ToggleRecordSelected flips the selection flag of one record.
func ToggleRecordSelected(s State, strategyName string, index int) State {
	si, ok := s.StrategyIndex(strategyName)
	if !ok || index < 0 || index >= len(s.Strategies[si].BacktestHistory) {
		return s
	}
	current := s.Strategies[si].BacktestHistory[index].Selected
	return SetRecordSelected(s, strategyName, index, !current)
}

// SelectedIndices is the per-strategy index-set view of record selection, ascending.
func SelectedIndices(s State, strategyName string) []int {
	st, ok := s.Strategy(strategyName)
	if !ok {
		return nil
	}
	var out []int
	for i, r := range st.BacktestHistory {
		if r.Selected {
			out = append(out, i)
		}
	}
	return out
}

// SelectedRecordIDs resolves the strategy's selection into record identities.
func SelectedRecordIDs(s State, strategyName string) []string {
	st, ok := s.Strategy(strategyName)
	if !ok {
		return nil
	}
	var out []string
	for _, r := range st.BacktestHistory {
		if r.Selected {
			out = append(out, r.ID)
		}
	}
	return out
}

// ClearRecordSelection deselects every record of a strategy.
func ClearRecordSelection(s State, strategyName string) State {
	si, ok := s.StrategyIndex(strategyName)
	if !ok {
		return s
	}
	strategies := append([]domain.Strategy(nil), s.Strategies...)
	st := strategies[si]
	history := make([]domain.BacktestRecord, len(st.BacktestHistory))
	for i, r := range st.BacktestHistory {
		r.Selected = false
		history[i] = r
	}
	st.BacktestHistory = history
	strategies[si] = st
	s.Strategies = strategies
	return s
}

// RemoveRecords drops records of a strategy by identity and clears that
// strategy's selection. Removing by id keeps multi-record deletes correct no
// matter how positions shift.
func RemoveRecords(s State, strategyName string, ids []string) State {
	si, ok := s.StrategyIndex(strategyName)
	if !ok {
		return s
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	strategies := append([]domain.Strategy(nil), s.Strategies...)
	st := strategies[si]
	history := make([]domain.BacktestRecord, 0, len(st.BacktestHistory))
	for _, r := range st.BacktestHistory {
		if _, gone := drop[r.ID]; gone {
			continue
		}
		r.Selected = false
		history = append(history, r)
	}
	st.BacktestHistory = history
	strategies[si] = st
	s.Strategies = strategies
	return resetPage(s)
}

// SetStrategySelected adds or removes a strategy from the batch scope.
func SetStrategySelected(s State, name string, selected bool) State {
	if _, ok := s.StrategyIndex(name); !ok {
		return s
	}
	next := make(map[string]struct{}, len(s.SelectedStrategies)+1)
	for k := range s.SelectedStrategies {
		next[k] = struct{}{}
	}
	if selected {
		next[name] = struct{}{}
	} else {
		delete(next, name)
	}
	s.SelectedStrategies = next
	return s
}

// ClearStrategySelection empties the batch scope.
func ClearStrategySelection(s State) State {
	s.SelectedStrategies = nil
	return s
}

// SelectedStrategies returns the strategies in the batch scope in catalog order.
func SelectedStrategies(s State) []domain.Strategy {
	var out []domain.Strategy
	for _, st := range s.Strategies {
		if _, ok := s.SelectedStrategies[st.Name]; ok {
			out = append(out, st)
		}
	}
	return out
}

// SetRangeDrafts replaces the multi-range drafts.
func SetRangeDrafts(s State, drafts map[string][]domain.TimeRange) State {
	next := make(map[string][]domain.TimeRange, len(drafts))
	for name, windows := range drafts {
		next[name] = append([]domain.TimeRange(nil), windows...)
	}
	s.RangeDrafts = next
	return s
}
