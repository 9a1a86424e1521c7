// Package campaign builds and submits backtest campaigns: single
// submissions and batches over selected strategies with either one shared
// window or per-strategy window lists.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/observability"
	"strategy-lab/internal/storage"
)

// Submitter sends one backtest request to the execution service.
type Submitter interface {
	SubmitBacktest(ctx context.Context, req domain.BacktestRequest) error
}

// IndexResolver lists the constituent instruments of an index.
type IndexResolver interface {
	IndexConstituents(ctx context.Context, code string) ([]string, error)
}

// Refresher reloads the strategy catalog after submissions.
type Refresher func(ctx context.Context) error

// Orchestrator submits campaigns. Items are submitted one at a time and each
// item's outcome is recorded independently.
type Orchestrator struct {
	submitter Submitter
	indexes   IndexResolver
	store     storage.CampaignStore
	refresh   Refresher
	logger    *slog.Logger
	now       func() time.Time
	suffix    func() string
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Submitter Submitter

	// Optional resolver for targets that name only an index. Without it such
	// targets are rejected.
	Indexes IndexResolver

	// Optional journal of finished campaigns
	Store storage.CampaignStore

	// Optional catalog refresh run once after a campaign
	Refresh Refresher

	Logger *slog.Logger
	Now    func() time.Time // defaults to time.Now
	Suffix func() string    // defaults to RandomSuffix
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		submitter: opts.Submitter,
		indexes:   opts.Indexes,
		store:     opts.Store,
		refresh:   opts.Refresh,
		logger:    opts.Logger,
		now:       opts.Now,
		suffix:    opts.Suffix,
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.suffix == nil {
		o.suffix = RandomSuffix
	}
	return o
}

// SingleRequest is one backtest of one strategy over one window.
// Nil conditions default to the strategy's current ones.
type SingleRequest struct {
	Strategy       domain.Strategy
	Range          domain.TimeRange
	Target         Target
	BuyConditions  []string
	SellConditions []string
}

// BatchRequest is a campaign over several strategies.
type BatchRequest struct {
	Mode       domain.CampaignMode
	Strategies []domain.Strategy

	// Range is the shared window of ModeSharedRange.
	Range domain.TimeRange
	// Ranges holds each strategy's windows for ModeMultiRange, keyed by name.
	Ranges map[string][]domain.TimeRange

	Target Target
}

// task is one pending submission.
type task struct {
	strategy domain.Strategy
	window   domain.TimeRange
}

// SubmitSingle submits one backtest. A service failure is returned as the
// error and nothing is refreshed. On success the catalog is refreshed; a
// refresh failure is recorded on the report, not returned.
func (o *Orchestrator) SubmitSingle(ctx context.Context, req SingleRequest) (*domain.CampaignReport, error) {
	if req.Strategy.Name == "" {
		return nil, domain.NewValidationError("strategy", "strategy is required")
	}
	if err := ValidateRange("range", req.Range); err != nil {
		return nil, err
	}
	if err := req.Target.validate(); err != nil {
		return nil, err
	}
	target, err := o.resolveTarget(ctx, req.Target)
	if err != nil {
		return nil, err
	}

	buy, sell := req.BuyConditions, req.SellConditions
	if buy == nil {
		buy = req.Strategy.BuyConditions
	}
	if sell == nil {
		sell = req.Strategy.SellConditions
	}

	report := o.newReport(domain.ModeSingle)
	now := o.now()
	id := BacktestID(TagSingle, req.Range, o.suffix())
	backtest := BuildRequest(req.Strategy.Name, buy, sell, req.Range, target, id, now)

	if err := o.submitter.SubmitBacktest(ctx, backtest); err != nil {
		observability.RecordSubmission(string(domain.ModeSingle), "error")
		o.logger.Error("backtest submission failed",
			"strategy", req.Strategy.Name,
			"backtest_id", id,
			"err", err,
		)
		return nil, fmt.Errorf("submit backtest %s: %w", id, err)
	}
	observability.RecordSubmission(string(domain.ModeSingle), "ok")
	o.logger.Info("backtest submitted", "strategy", req.Strategy.Name, "backtest_id", id)

	report.Succeeded = append(report.Succeeded, outcome(req.Strategy.Name, id, req.Range, nil))
	o.finish(ctx, report)
	return report, nil
}

// SubmitBatch validates the whole campaign, then submits every item in order.
// Per-item failures are collected on the report; the only errors returned are
// raised before anything is sent: validation errors and index resolution
// failures.
func (o *Orchestrator) SubmitBatch(ctx context.Context, req BatchRequest) (*domain.CampaignReport, error) {
	tasks, err := plan(req)
	if err != nil {
		return nil, err
	}
	target, err := o.resolveTarget(ctx, req.Target)
	if err != nil {
		return nil, err
	}

	report := o.newReport(req.Mode)
	o.logger.Info("campaign started",
		"campaign_id", report.ID,
		"mode", req.Mode,
		"items", len(tasks),
	)

	for _, t := range tasks {
		id := BacktestID(TagBatch, t.window, o.suffix())
		backtest := BuildRequest(t.strategy.Name, t.strategy.BuyConditions, t.strategy.SellConditions,
			t.window, target, id, o.now())

		if err := o.submitter.SubmitBacktest(ctx, backtest); err != nil {
			observability.RecordSubmission(string(req.Mode), "error")
			o.logger.Warn("campaign item failed",
				"campaign_id", report.ID,
				"strategy", t.strategy.Name,
				"backtest_id", id,
				"err", err,
			)
			report.Failed = append(report.Failed, outcome(t.strategy.Name, id, t.window, err))
			continue
		}
		observability.RecordSubmission(string(req.Mode), "ok")
		report.Succeeded = append(report.Succeeded, outcome(t.strategy.Name, id, t.window, nil))
	}

	o.finish(ctx, report)
	o.logger.Info("campaign finished",
		"campaign_id", report.ID,
		"succeeded", len(report.Succeeded),
		"failed", len(report.Failed),
	)
	return report, nil
}

// plan validates a batch and expands it into its ordered task list. Multi
// range mode collects one message per incomplete strategy.
func plan(req BatchRequest) ([]task, error) {
	if len(req.Strategies) == 0 {
		return nil, domain.NewValidationError("strategies", "select at least one strategy")
	}
	if err := req.Target.validate(); err != nil {
		return nil, err
	}

	var tasks []task
	switch req.Mode {
	case domain.ModeSharedRange:
		if err := ValidateRange("range", req.Range); err != nil {
			return nil, err
		}
		for _, st := range req.Strategies {
			tasks = append(tasks, task{strategy: st, window: req.Range})
		}

	case domain.ModeMultiRange:
		var errs []error
		for _, st := range req.Strategies {
			windows := req.Ranges[st.Name]
			if len(windows) == 0 {
				errs = append(errs, domain.NewValidationError(st.Name, "add at least one time range"))
				continue
			}
			for i, w := range windows {
				if err := ValidateRange(fmt.Sprintf("%s range %d", st.Name, i+1), w); err != nil {
					errs = append(errs, err)
					continue
				}
				tasks = append(tasks, task{strategy: st, window: w})
			}
		}
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}

	default:
		return nil, domain.NewValidationError("mode", fmt.Sprintf("unsupported batch mode %q", req.Mode))
	}
	return tasks, nil
}

// resolveTarget fills an index-only target with the index's constituents.
// The execution service rejects requests without instruments.
func (o *Orchestrator) resolveTarget(ctx context.Context, t Target) (Target, error) {
	if len(compact(t.Instruments)) > 0 {
		return t, nil
	}
	code := strings.TrimSpace(t.IndexCode)
	if o.indexes == nil {
		return t, domain.NewValidationError("instruments", "select at least one instrument")
	}
	constituents, err := o.indexes.IndexConstituents(ctx, code)
	if err != nil {
		return t, fmt.Errorf("resolve index %s: %w", code, err)
	}
	if len(compact(constituents)) == 0 {
		return t, domain.NewValidationError("instruments", fmt.Sprintf("index %s has no constituents", code))
	}
	t.Instruments = compact(constituents)
	o.logger.Debug("index resolved", "index_code", code, "instruments", len(t.Instruments))
	return t, nil
}

func (o *Orchestrator) newReport(mode domain.CampaignMode) *domain.CampaignReport {
	return &domain.CampaignReport{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: o.now().UTC(),
	}
}

// finish refreshes the catalog once, stamps the report and journals it.
func (o *Orchestrator) finish(ctx context.Context, report *domain.CampaignReport) {
	if o.refresh != nil {
		if err := o.refresh(ctx); err != nil {
			o.logger.Error("catalog refresh after campaign failed", "campaign_id", report.ID, "err", err)
			report.RefreshError = err.Error()
		}
	}
	report.FinishedAt = o.now().UTC()
	observability.RecordCampaign(string(report.Mode), report.HasFailures(),
		report.FinishedAt.Sub(report.StartedAt).Seconds())

	if o.store == nil {
		return
	}
	if err := o.store.Insert(ctx, report); err != nil {
		o.logger.Error("journal campaign failed", "campaign_id", report.ID, "err", err)
	}
}

func outcome(strategy, id string, window domain.TimeRange, err error) domain.SubmissionOutcome {
	o := domain.SubmissionOutcome{
		StrategyName: strategy,
		BacktestID:   id,
		Start:        window.Start,
		End:          window.End,
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}
