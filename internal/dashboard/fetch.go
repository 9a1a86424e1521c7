package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/state"
	"strategy-lab/internal/storage"
)

// fetch is one in-flight leaderboard request.
type fetch struct {
	cancel context.CancelFunc
}

// FetchFailure is one record an expand-all could not load.
type FetchFailure struct {
	BacktestID string `json:"backtest_id"`
	Error      string `json:"error"`
}

// ExpandAllResult reports an expand-all run.
type ExpandAllResult struct {
	Expanded []string       `json:"expanded"`
	Failed   []FetchFailure `json:"failed,omitempty"`
}

// Expand shows a record's leaderboards. The first expand fetches them; later
// expands reuse the cache. A failed fetch leaves the record collapsed.
func (d *Dashboard) Expand(ctx context.Context, id string) error {
	r, ok := d.State().Record(id)
	if !ok {
		return fmt.Errorf("backtest %q: %w", id, storage.ErrNotFound)
	}
	if r.Fetched() {
		st := d.update(func(s state.State) state.State { return state.SetExpanded(s, id, true) })
		updateGauges(st)
		return nil
	}
	return d.load(ctx, r, nil)
}

// Reload fetches a record's leaderboards again, replacing its cache.
func (d *Dashboard) Reload(ctx context.Context, id string) error {
	r, ok := d.State().Record(id)
	if !ok {
		return fmt.Errorf("backtest %q: %w", id, storage.ErrNotFound)
	}
	return d.load(ctx, r, r.VisibleCategories)
}

// Collapse hides a record and cancels its in-flight fetch, if any. The cache
// is kept.
func (d *Dashboard) Collapse(id string) {
	d.mu.Lock()
	if f, ok := d.inflight[id]; ok {
		f.cancel()
		delete(d.inflight, id)
	}
	d.st = state.SetExpanded(d.st, id, false)
	st := d.st
	d.mu.Unlock()
	updateGauges(st)
}

// CollapseAll hides every record and cancels every in-flight fetch.
func (d *Dashboard) CollapseAll() {
	d.mu.Lock()
	for id, f := range d.inflight {
		f.cancel()
		delete(d.inflight, id)
	}
	d.st = state.CollapseAll(d.st)
	st := d.st
	d.mu.Unlock()
	updateGauges(st)
}

// ExpandAll expands every record, one at a time. When categories is not
// empty each record's view is limited to those categories; cached data for
// other categories is kept. A record that fails to load is reported and the
// run continues.
func (d *Dashboard) ExpandAll(ctx context.Context, categories []string) (*ExpandAllResult, error) {
	var visible map[string]struct{}
	if len(categories) > 0 {
		visible = make(map[string]struct{}, len(categories))
		for _, c := range categories {
			visible[c] = struct{}{}
		}
	}

	result := &ExpandAllResult{}
	for _, id := range d.State().RecordIDs() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		r, ok := d.State().Record(id)
		if !ok {
			continue
		}

		if r.Fetched() {
			st := d.update(func(s state.State) state.State {
				s = state.RestrictCategories(s, id, visible)
				return state.SetExpanded(s, id, true)
			})
			updateGauges(st)
			result.Expanded = append(result.Expanded, id)
			continue
		}

		if err := d.load(ctx, r, visible); err != nil {
			result.Failed = append(result.Failed, FetchFailure{BacktestID: id, Error: err.Error()})
			continue
		}
		result.Expanded = append(result.Expanded, id)
	}

	d.logger.Info("expand all finished",
		"expanded", len(result.Expanded),
		"failed", len(result.Failed),
	)
	return result, nil
}

// load fetches and caches one record's leaderboards.
func (d *Dashboard) load(ctx context.Context, r domain.BacktestRecord, visible map[string]struct{}) error {
	fetchCtx, f, err := d.begin(ctx, r.ID)
	if err != nil {
		return err
	}

	start := time.Now()
	set, err := d.svc.FetchLeaderboards(fetchCtx, r.ID, r.FirstInstrument())
	elapsed := time.Since(start).Seconds()

	d.mu.Lock()
	current := d.inflight[r.ID] == f
	if current {
		delete(d.inflight, r.ID)
	}
	f.cancel()
	if !current {
		d.mu.Unlock()
		observability.RecordLeaderboardFetch("canceled", elapsed)
		return fmt.Errorf("backtest %s: %w", r.ID, ErrFetchCanceled)
	}
	if err != nil {
		d.mu.Unlock()
		observability.RecordLeaderboardFetch("error", elapsed)
		d.logger.Error("leaderboard fetch failed", "backtest_id", r.ID, "err", err)
		return fmt.Errorf("fetch leaderboards %s: %w", r.ID, err)
	}
	if set == nil {
		set = &domain.LeaderboardSet{Rows: map[string][]domain.Row{}}
	}
	d.st = state.ApplyLeaderboards(d.st, r.ID, set, d.instrumentColumn, visible)
	st := d.st
	d.mu.Unlock()

	observability.RecordLeaderboardFetch("ok", elapsed)
	updateGauges(st)
	d.logger.Info("leaderboards loaded",
		"backtest_id", r.ID,
		"categories", len(set.Categories),
	)

	if applied, ok := st.Record(r.ID); ok {
		d.archiveRows(ctx, applied)
	}
	return nil
}

// begin registers a fetch for id, superseding any earlier one.
func (d *Dashboard) begin(ctx context.Context, id string) (context.Context, *fetch, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, nil, ErrClosed
	}
	if old, ok := d.inflight[id]; ok {
		old.cancel()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	f := &fetch{cancel: cancel}
	d.inflight[id] = f
	return fetchCtx, f, nil
}

// archiveRows copies a record's cached leaderboards to the archive. Failures
// are logged and never reach the caller.
func (d *Dashboard) archiveRows(ctx context.Context, r domain.BacktestRecord) {
	if d.archive == nil {
		return
	}
	now := d.now().UTC()
	var rows []*domain.ArchivedRow
	for _, category := range r.CategoryOrder {
		for i, row := range r.Leaderboards[category] {
			payload, err := json.Marshal(row.Row)
			if err != nil {
				d.logger.Warn("archive row encode failed", "backtest_id", r.ID, "category", category, "err", err)
				continue
			}
			rows = append(rows, &domain.ArchivedRow{
				BacktestID:     r.ID,
				Category:       category,
				Position:       i,
				InstrumentCode: row.InstrumentCode,
				Payload:        string(payload),
				ArchivedAt:     now,
			})
		}
	}
	if len(rows) == 0 {
		return
	}
	if err := d.archive.InsertBulk(ctx, rows); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.Warn("leaderboard archive failed", "backtest_id", r.ID, "err", err)
	}
}

// ArchivedRows returns the archived leaderboard rows of a backtest.
func (d *Dashboard) ArchivedRows(ctx context.Context, id string) ([]*domain.ArchivedRow, error) {
	if d.archive == nil {
		return nil, fmt.Errorf("leaderboard archive: %w", storage.ErrNotFound)
	}
	return d.archive.GetByBacktestID(ctx, id)
}

func updateGauges(s state.State) {
	expanded, rows := 0, 0
	for _, st := range s.Strategies {
		for i := range st.BacktestHistory {
			r := &st.BacktestHistory[i]
			if r.Expanded {
				expanded++
			}
			for _, cached := range r.Leaderboards {
				rows += len(cached)
			}
		}
	}
	observability.UpdateLeaderboardGauges(expanded, rows)
}
