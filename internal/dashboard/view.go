package dashboard

import (
	"context"
	"fmt"
	"io"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/leaderboard"
	"strategy-lab/internal/state"
	"strategy-lab/internal/storage"
)

// Leaderboard returns the current cross-backtest view.
func (d *Dashboard) Leaderboard() leaderboard.View {
	return leaderboard.Global(d.State())
}

// RecordLeaderboard returns one record's view of its selected category.
func (d *Dashboard) RecordLeaderboard(id string) (leaderboard.View, error) {
	v, ok := leaderboard.Record(d.State(), id)
	if !ok {
		return leaderboard.View{}, fmt.Errorf("leaderboard of %q: %w", id, storage.ErrNotFound)
	}
	return v, nil
}

// ApplyFilters replaces the global filters with the non-empty drafts.
func (d *Dashboard) ApplyFilters(drafts []leaderboard.FilterDraft) ([]domain.FilterCondition, error) {
	filters, err := leaderboard.BuildFilters(drafts)
	if err != nil {
		return nil, err
	}
	d.update(func(s state.State) state.State { return state.SetFilters(s, filters) })
	return filters, nil
}

// RemoveFilter drops one global filter by position.
func (d *Dashboard) RemoveFilter(i int) {
	d.update(func(s state.State) state.State { return state.RemoveFilter(s, i) })
}

// ClearFilters removes every global filter.
func (d *Dashboard) ClearFilters() {
	d.update(state.ClearFilters)
}

// SetUnique toggles the one-row-per-instrument projection.
func (d *Dashboard) SetUnique(unique bool) {
	d.update(func(s state.State) state.State { return state.SetUnique(s, unique) })
}

// Navigate moves the global view one step and returns the new page.
func (d *Dashboard) Navigate(dir leaderboard.Direction) int {
	st := d.update(func(s state.State) state.State {
		total := leaderboard.Global(s).TotalPages
		return state.SetPage(s, leaderboard.Navigate(s.Page, total, dir), total)
	})
	return st.Page
}

// GoToPage jumps the global view to page, clamped.
func (d *Dashboard) GoToPage(page int) int {
	st := d.update(func(s state.State) state.State {
		return state.SetPage(s, page, leaderboard.Global(s).TotalPages)
	})
	return st.Page
}

// NavigateRecord moves one record's view one step and returns the new page.
func (d *Dashboard) NavigateRecord(id string, dir leaderboard.Direction) (int, error) {
	var page int
	var found bool
	d.update(func(s state.State) state.State {
		v, ok := leaderboard.Record(s, id)
		if !ok {
			return s
		}
		found = true
		s = state.SetRecordPage(s, id, leaderboard.Navigate(v.Page, v.TotalPages, dir), v.TotalPages)
		page = state.RecordPage(s, id)
		return s
	})
	if !found {
		return 0, fmt.Errorf("leaderboard of %q: %w", id, storage.ErrNotFound)
	}
	return page, nil
}

// SelectCategory switches the category shown in a record's own view.
func (d *Dashboard) SelectCategory(id, category string) error {
	r, ok := d.State().Record(id)
	if !ok {
		return fmt.Errorf("backtest %q: %w", id, storage.ErrNotFound)
	}
	if !r.CategoryVisible(category) {
		return domain.NewValidationError("category", fmt.Sprintf("category %q is not loaded for %s", category, id))
	}
	d.update(func(s state.State) state.State { return state.SelectCategory(s, id, category) })
	return nil
}

// Export returns the distinct instrument codes of the current page, or of
// the whole filtered view when all is true.
func (d *Dashboard) Export(all bool) string {
	return d.Leaderboard().Export(all)
}

// Columns lists the filterable leaderboard columns.
func (d *Dashboard) Columns() []leaderboard.Column {
	return leaderboard.Columns(d.State().Strategies)
}

// Categories lists every cached leaderboard category.
func (d *Dashboard) Categories() []string {
	return leaderboard.Categories(d.State().Strategies)
}

// WriteHistoryCSV writes a strategy's backtest history as CSV.
func (d *Dashboard) WriteHistoryCSV(w io.Writer, strategy string) error {
	st, err := d.Strategy(strategy)
	if err != nil {
		return err
	}
	return leaderboard.WriteHistoryCSV(w, st)
}

// ToggleRecordSelection flips one record's selection.
func (d *Dashboard) ToggleRecordSelection(strategy string, index int) []int {
	st := d.update(func(s state.State) state.State { return state.ToggleRecordSelected(s, strategy, index) })
	return state.SelectedIndices(st, strategy)
}

// SetRecordSelected sets one record's selection.
func (d *Dashboard) SetRecordSelected(strategy string, index int, selected bool) []int {
	st := d.update(func(s state.State) state.State {
		return state.SetRecordSelected(s, strategy, index, selected)
	})
	return state.SelectedIndices(st, strategy)
}

// SelectedIndices returns a strategy's selected record positions.
func (d *Dashboard) SelectedIndices(strategy string) []int {
	return state.SelectedIndices(d.State(), strategy)
}

// DeleteSelected deletes a strategy's selected records once confirm approves
// it. Records are resolved to ids before anything is sent, and the local
// history changes only after the service acknowledged the delete.
func (d *Dashboard) DeleteSelected(ctx context.Context, strategy string, confirm domain.Confirmer) ([]string, error) {
	ids := state.SelectedRecordIDs(d.State(), strategy)
	if len(ids) == 0 {
		return nil, domain.NewValidationError("selection", "select at least one backtest")
	}
	if confirm == nil || !confirm(fmt.Sprintf("delete %d backtests of %q?", len(ids), strategy)) {
		return nil, nil
	}
	if err := d.svc.DeleteBacktests(ctx, ids); err != nil {
		d.logger.Error("delete backtests failed", "strategy", strategy, "count", len(ids), "err", err)
		return nil, fmt.Errorf("delete backtests: %w", err)
	}

	d.mu.Lock()
	for _, id := range ids {
		if f, ok := d.inflight[id]; ok {
			f.cancel()
			delete(d.inflight, id)
		}
	}
	d.st = state.RemoveRecords(d.st, strategy, ids)
	st := d.st
	d.mu.Unlock()

	updateGauges(st)
	d.logger.Info("backtests deleted", "strategy", strategy, "count", len(ids))
	return ids, nil
}

// SetStrategySelected adds or removes a strategy from the batch scope.
func (d *Dashboard) SetStrategySelected(name string, selected bool) error {
	if _, err := d.Strategy(name); err != nil {
		return err
	}
	d.update(func(s state.State) state.State { return state.SetStrategySelected(s, name, selected) })
	return nil
}

// SelectedStrategies returns the batch scope in catalog order.
func (d *Dashboard) SelectedStrategies() []domain.Strategy {
	return state.SelectedStrategies(d.State())
}
