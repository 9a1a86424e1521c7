package dashboard

import (
	"context"
	"errors"
	"fmt"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/refdata"
	"strategy-lab/internal/storage"
)

// Indexes lists the indexes that can prefill an instrument list.
func (d *Dashboard) Indexes(ctx context.Context) ([]domain.IndexOption, error) {
	return d.svc.ListIndexes(ctx)
}

// IndexConstituents resolves an index to its instrument codes.
func (d *Dashboard) IndexConstituents(ctx context.Context, code string) ([]string, error) {
	if code == "" {
		return nil, domain.NewValidationError("index_code", "index code is required")
	}
	return d.svc.IndexConstituents(ctx, code)
}

// Trades returns the transaction rows of one backtest for an instrument.
// An empty instrument uses the record's first instrument.
func (d *Dashboard) Trades(ctx context.Context, id, instrument string) ([]domain.Row, error) {
	r, ok := d.State().Record(id)
	if !ok {
		return nil, fmt.Errorf("backtest %q: %w", id, storage.ErrNotFound)
	}
	if instrument == "" {
		instrument = r.FirstInstrument()
	}
	return d.svc.FetchTrades(ctx, id, instrument)
}

// ReferenceOptions reads the factor base data and instrument option lists.
func (d *Dashboard) ReferenceOptions(ctx context.Context) (*refdata.Options, error) {
	if d.options == nil {
		return nil, errors.New("reference data feed is not configured")
	}
	return d.options.Fetch(ctx)
}
