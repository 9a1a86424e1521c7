// Package dashboard is the process-local owner of the strategy dashboard
// state. It wires the catalog, the campaign orchestrator and the leaderboard
// engine together and is the only place the state is replaced.
//
// Every mutation is a pure state.State transition applied under one mutex.
// Network calls run outside the lock; their results are applied by record id
// so concurrent completions never overwrite each other.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"strategy-lab/internal/campaign"
	"strategy-lab/internal/catalog"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/refdata"
	"strategy-lab/internal/state"
	"strategy-lab/internal/storage"
)

// DefaultInstrumentColumn is the leaderboard column holding the instrument code.
const DefaultInstrumentColumn = "股票代码"

// ErrClosed is returned by fetches started after Close.
var ErrClosed = errors.New("dashboard closed")

// ErrFetchCanceled is returned when a leaderboard fetch was canceled by a
// collapse, a newer fetch of the same record or Close.
var ErrFetchCanceled = errors.New("leaderboard fetch canceled")

// Service is everything the dashboard needs from the execution service.
type Service interface {
	catalog.Service
	campaign.Submitter
	FetchLeaderboards(ctx context.Context, backtestID, instrument string) (*domain.LeaderboardSet, error)
	FetchTrades(ctx context.Context, backtestID, instrument string) ([]domain.Row, error)
	DeleteBacktests(ctx context.Context, ids []string) error
	ListIndexes(ctx context.Context) ([]domain.IndexOption, error)
	IndexConstituents(ctx context.Context, code string) ([]string, error)
}

// OptionSource supplies the reference data option lists.
type OptionSource interface {
	Fetch(ctx context.Context) (*refdata.Options, error)
}

// Options for creating Dashboard.
type Options struct {
	// Required
	Service Service

	// Optional collaborators
	OptionSource OptionSource
	Campaigns    storage.CampaignStore
	Archive      storage.LeaderboardArchive

	Logger           *slog.Logger
	InstrumentColumn string             // defaults to DefaultInstrumentColumn
	Generator        campaign.Generator // defaults to campaign.DefaultGenerator
	Now              func() time.Time
	Suffix           func() string
}

// Dashboard owns the application state.
type Dashboard struct {
	svc       Service
	options   OptionSource
	campaigns storage.CampaignStore
	archive   storage.LeaderboardArchive
	catalog   *catalog.Catalog
	orch      *campaign.Orchestrator
	logger    *slog.Logger

	instrumentColumn string
	generator        campaign.Generator
	now              func() time.Time

	mu       sync.Mutex
	st       state.State
	inflight map[string]*fetch
	closed   bool
}

// New creates a Dashboard with an empty catalog. Call Refresh to load it.
func New(opts Options) *Dashboard {
	d := &Dashboard{
		svc:              opts.Service,
		options:          opts.OptionSource,
		campaigns:        opts.Campaigns,
		archive:          opts.Archive,
		logger:           opts.Logger,
		instrumentColumn: opts.InstrumentColumn,
		generator:        opts.Generator,
		now:              opts.Now,
		st:               state.New(),
		inflight:         make(map[string]*fetch),
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	if d.instrumentColumn == "" {
		d.instrumentColumn = DefaultInstrumentColumn
	}
	if d.generator.Count == 0 && d.generator.DurationDays == 0 {
		d.generator = campaign.DefaultGenerator
	}
	if d.now == nil {
		d.now = time.Now
	}

	d.catalog = catalog.New(opts.Service, d.logger)
	d.orch = campaign.New(campaign.Options{
		Submitter: opts.Service,
		Indexes:   opts.Service,
		Store:     opts.Campaigns,
		Refresh:   d.Refresh,
		Logger:    d.logger,
		Now:       opts.Now,
		Suffix:    opts.Suffix,
	})
	return d
}

// State returns a snapshot of the current state.
func (d *Dashboard) State() state.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.st
}

// update applies one transition and returns the resulting state.
func (d *Dashboard) update(fn func(state.State) state.State) state.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.st = fn(d.st)
	return d.st
}

// Refresh reloads the whole catalog, keeping view state of records that
// still exist.
func (d *Dashboard) Refresh(ctx context.Context) error {
	strategies, err := d.catalog.List(ctx)
	if err != nil {
		return err
	}
	d.replaceCatalog(strategies)
	return nil
}

func (d *Dashboard) replaceCatalog(strategies []domain.Strategy) {
	st := d.update(func(s state.State) state.State {
		return state.ReplaceCatalog(s, strategies)
	})
	updateGauges(st)
}

// Strategies returns the current catalog.
func (d *Dashboard) Strategies() []domain.Strategy {
	return d.State().Strategies
}

// Strategy returns one strategy by name.
func (d *Dashboard) Strategy(name string) (domain.Strategy, error) {
	st, ok := d.State().Strategy(name)
	if !ok {
		return domain.Strategy{}, fmt.Errorf("strategy %q: %w", name, storage.ErrNotFound)
	}
	return st, nil
}

// CreateStrategy saves a new strategy and reloads the catalog.
func (d *Dashboard) CreateStrategy(ctx context.Context, s domain.Strategy) error {
	strategies, err := d.catalog.Create(ctx, s)
	if err != nil {
		return err
	}
	d.replaceCatalog(strategies)
	return nil
}

// UpdateStrategy replaces a strategy's conditions and reloads the catalog.
func (d *Dashboard) UpdateStrategy(ctx context.Context, s domain.Strategy) error {
	strategies, err := d.catalog.Update(ctx, s)
	if err != nil {
		return err
	}
	d.replaceCatalog(strategies)
	return nil
}

// DeleteStrategy deletes a strategy once confirm approves it. The catalog is
// reloaded only after the service acknowledged the delete.
func (d *Dashboard) DeleteStrategy(ctx context.Context, name string, confirm domain.Confirmer) (bool, error) {
	strategies, deleted, err := d.catalog.Delete(ctx, name, confirm)
	if !deleted {
		return false, err
	}
	if err != nil {
		return true, fmt.Errorf("strategy deleted but catalog reload failed: %w", err)
	}
	d.replaceCatalog(strategies)
	return true, nil
}

// Close cancels every in-flight fetch. Later fetches fail with ErrClosed.
func (d *Dashboard) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for id, f := range d.inflight {
		f.cancel()
		delete(d.inflight, id)
	}
}
