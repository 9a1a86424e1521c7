// Package catalog owns the list of strategies and their backtest histories.
//
// The execution service is the source of truth: every successful mutation is
// followed by a full re-listing instead of a local patch.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/observability"
)

// Service is the part of the execution service the catalog needs.
type Service interface {
	ListStrategies(ctx context.Context) ([]domain.Strategy, error)
	UpsertStrategy(ctx context.Context, s domain.Strategy) error
	DeleteStrategy(ctx context.Context, name string) error
	ListBacktests(ctx context.Context, strategyName string) ([]domain.BacktestRecord, error)
}

// Catalog lists and mutates strategies through a Service.
type Catalog struct {
	svc    Service
	logger *slog.Logger
}

// New creates a Catalog. A nil logger uses slog.Default().
func New(svc Service, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{svc: svc, logger: logger}
}

// List returns every strategy with its backtest history. A history that
// cannot be listed is reported as empty and logged; only a failure to list
// the strategies themselves is an error.
func (c *Catalog) List(ctx context.Context) ([]domain.Strategy, error) {
	start := time.Now()
	strategies, err := c.svc.ListStrategies(ctx)
	if err != nil {
		observability.RecordCatalogRefresh("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("list strategies: %w", err)
	}

	for i := range strategies {
		history, err := c.svc.ListBacktests(ctx, strategies[i].Name)
		if err != nil {
			if ctx.Err() != nil {
				observability.RecordCatalogRefresh("error", time.Since(start).Seconds())
				return nil, fmt.Errorf("list backtests: %w", ctx.Err())
			}
			c.logger.Warn("backtest history unavailable",
				"strategy", strategies[i].Name,
				"err", err,
			)
			history = nil
		}
		strategies[i].BacktestHistory = history
	}

	observability.RecordCatalogRefresh("ok", time.Since(start).Seconds())
	return strategies, nil
}

// Create saves a new strategy and returns the refreshed catalog.
// An empty or blank name fails before any network call.
func (c *Catalog) Create(ctx context.Context, s domain.Strategy) ([]domain.Strategy, error) {
	s, err := normalize(s)
	if err != nil {
		return nil, err
	}
	err = c.svc.UpsertStrategy(ctx, s)
	observability.RecordStrategyMutation("create", err)
	if err != nil {
		c.logger.Error("create strategy failed", "strategy", s.Name, "err", err)
		return nil, fmt.Errorf("create strategy %q: %w", s.Name, err)
	}
	c.logger.Info("strategy created", "strategy", s.Name)
	return c.List(ctx)
}

// Update replaces a strategy's conditions and returns the refreshed catalog.
// The name is the identity and cannot change.
func (c *Catalog) Update(ctx context.Context, s domain.Strategy) ([]domain.Strategy, error) {
	s, err := normalize(s)
	if err != nil {
		return nil, err
	}
	err = c.svc.UpsertStrategy(ctx, s)
	observability.RecordStrategyMutation("update", err)
	if err != nil {
		c.logger.Error("update strategy failed", "strategy", s.Name, "err", err)
		return nil, fmt.Errorf("update strategy %q: %w", s.Name, err)
	}
	c.logger.Info("strategy updated", "strategy", s.Name)
	return c.List(ctx)
}

// Delete removes a strategy after confirm approves it. A declined prompt
// returns (nil, false, nil) and sends nothing.
func (c *Catalog) Delete(ctx context.Context, name string, confirm domain.Confirmer) ([]domain.Strategy, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, false, domain.NewValidationError("strategy_name", "strategy name is required")
	}
	if confirm == nil || !confirm(fmt.Sprintf("delete strategy %q?", name)) {
		return nil, false, nil
	}
	err := c.svc.DeleteStrategy(ctx, name)
	observability.RecordStrategyMutation("delete", err)
	if err != nil {
		c.logger.Error("delete strategy failed", "strategy", name, "err", err)
		return nil, false, fmt.Errorf("delete strategy %q: %w", name, err)
	}
	c.logger.Info("strategy deleted", "strategy", name)
	strategies, err := c.List(ctx)
	return strategies, true, err
}

func normalize(s domain.Strategy) (domain.Strategy, error) {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return s, domain.NewValidationError("strategy_name", "strategy name is required")
	}
	s.BuyConditions = compact(s.BuyConditions)
	s.SellConditions = compact(s.SellConditions)
	s.BaseData = compact(s.BaseData)
	return s, nil
}

// compact trims entries and drops empty ones.
func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
