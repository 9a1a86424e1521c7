package dashboard

import (
	"context"
	"errors"

	"strategy-lab/internal/campaign"
	"strategy-lab/internal/domain"
	"strategy-lab/internal/state"
	"strategy-lab/internal/timerange"
)

// SingleSubmission is a single backtest of a catalog strategy. Nil
// conditions default to the strategy's current ones.
type SingleSubmission struct {
	StrategyName   string           `json:"strategy_name"`
	Range          domain.TimeRange `json:"range"`
	Target         campaign.Target  `json:"target"`
	BuyConditions  []string         `json:"buy_conditions,omitempty"`
	SellConditions []string         `json:"sell_conditions,omitempty"`
}

// BatchSubmission is a campaign over the selected strategies. Range is used
// by the shared-range mode; the multi-range mode uses the current drafts.
type BatchSubmission struct {
	Mode   domain.CampaignMode `json:"mode"`
	Range  domain.TimeRange    `json:"range"`
	Target campaign.Target     `json:"target"`
}

// SubmitSingle submits one backtest and reloads the catalog on success.
func (d *Dashboard) SubmitSingle(ctx context.Context, req SingleSubmission) (*domain.CampaignReport, error) {
	st, err := d.Strategy(req.StrategyName)
	if err != nil {
		return nil, err
	}
	return d.orch.SubmitSingle(ctx, campaign.SingleRequest{
		Strategy:       st,
		Range:          req.Range,
		Target:         req.Target,
		BuyConditions:  req.BuyConditions,
		SellConditions: req.SellConditions,
	})
}

// SubmitBatch runs a campaign over the selected strategies. Once the
// campaign has run the strategy selection is cleared; a campaign rejected by
// validation keeps it.
func (d *Dashboard) SubmitBatch(ctx context.Context, req BatchSubmission) (*domain.CampaignReport, error) {
	s := d.State()
	report, err := d.orch.SubmitBatch(ctx, campaign.BatchRequest{
		Mode:       req.Mode,
		Strategies: state.SelectedStrategies(s),
		Range:      req.Range,
		Ranges:     s.RangeDrafts,
		Target:     req.Target,
	})
	if err != nil {
		return nil, err
	}
	d.update(func(s state.State) state.State {
		s = state.ClearStrategySelection(s)
		if req.Mode == domain.ModeMultiRange {
			s = state.SetRangeDrafts(s, nil)
		}
		return s
	})
	return report, nil
}

// Drafts returns the multi-range drafts.
func (d *Dashboard) Drafts() campaign.Drafts {
	return d.State().RangeDrafts
}

// InitDrafts aligns the drafts with the selected strategies.
func (d *Dashboard) InitDrafts() campaign.Drafts {
	return d.editDrafts(func(s state.State, dr campaign.Drafts) (campaign.Drafts, error) {
		return campaign.InitDrafts(dr, state.SelectedStrategies(s)), nil
	})
}

// AddRange appends an empty window to a strategy's drafts.
func (d *Dashboard) AddRange(name string) campaign.Drafts {
	return d.editDrafts(func(_ state.State, dr campaign.Drafts) (campaign.Drafts, error) {
		return campaign.AddRange(dr, name), nil
	})
}

// RemoveRange drops one draft window.
func (d *Dashboard) RemoveRange(name string, i int) campaign.Drafts {
	return d.editDrafts(func(_ state.State, dr campaign.Drafts) (campaign.Drafts, error) {
		return campaign.RemoveRange(dr, name, i), nil
	})
}

// SetRange replaces one draft window.
func (d *Dashboard) SetRange(name string, i int, r domain.TimeRange) campaign.Drafts {
	return d.editDrafts(func(_ state.State, dr campaign.Drafts) (campaign.Drafts, error) {
		return campaign.SetRange(dr, name, i, r), nil
	})
}

// FillPreset sets one draft window to a quick preset ending today.
func (d *Dashboard) FillPreset(name string, i int, p timerange.Preset) (campaign.Drafts, error) {
	return d.editDraftsErr(func(_ state.State, dr campaign.Drafts) (campaign.Drafts, error) {
		return campaign.FillPreset(dr, name, i, p, d.now())
	})
}

// FillGenerated replaces one strategy's drafts with generated windows. Zero
// count or duration fall back to the configured generator.
func (d *Dashboard) FillGenerated(name string, count, durationDays int) (campaign.Drafts, error) {
	g := d.generatorFor(count, durationDays)
	return d.editDraftsErr(func(_ state.State, dr campaign.Drafts) (campaign.Drafts, error) {
		return campaign.FillGenerated(dr, name, g, d.now())
	})
}

// AutoGenerate fills the drafts of every selected strategy with generated windows.
func (d *Dashboard) AutoGenerate(count, durationDays int) (campaign.Drafts, error) {
	g := d.generatorFor(count, durationDays)
	return d.editDraftsErr(func(s state.State, dr campaign.Drafts) (campaign.Drafts, error) {
		return campaign.AutoGenerate(dr, state.SelectedStrategies(s), g, d.now())
	})
}

// Windows previews generated windows without touching the drafts.
func (d *Dashboard) Windows(count, durationDays int) []domain.TimeRange {
	return d.generatorFor(count, durationDays).Windows(d.now())
}

// PresetRange returns a quick preset window ending today.
func (d *Dashboard) PresetRange(p timerange.Preset) (domain.TimeRange, error) {
	return timerange.PresetRange(p, d.now())
}

func (d *Dashboard) generatorFor(count, durationDays int) campaign.Generator {
	g := d.generator
	if count > 0 {
		g.Count = count
	}
	if durationDays > 0 {
		g.DurationDays = durationDays
	}
	return g
}

func (d *Dashboard) editDrafts(fn func(state.State, campaign.Drafts) (campaign.Drafts, error)) campaign.Drafts {
	drafts, _ := d.editDraftsErr(fn)
	return drafts
}

// editDraftsErr applies fn under the lock. On error the drafts are unchanged.
func (d *Dashboard) editDraftsErr(fn func(state.State, campaign.Drafts) (campaign.Drafts, error)) (campaign.Drafts, error) {
	var fnErr error
	st := d.update(func(s state.State) state.State {
		next, err := fn(s, s.RangeDrafts)
		if err != nil {
			fnErr = err
			return s
		}
		return state.SetRangeDrafts(s, next)
	})
	if fnErr != nil {
		return st.RangeDrafts, fnErr
	}
	return st.RangeDrafts, nil
}

// Campaigns lists journaled campaign reports, newest first.
func (d *Dashboard) Campaigns(ctx context.Context, limit int) ([]*domain.CampaignReport, error) {
	if d.campaigns == nil {
		return nil, nil
	}
	return d.campaigns.List(ctx, limit)
}

// Campaign returns one journaled campaign report.
func (d *Dashboard) Campaign(ctx context.Context, id string) (*domain.CampaignReport, error) {
	if d.campaigns == nil {
		return nil, errors.New("campaign journal is not configured")
	}
	return d.campaigns.GetByID(ctx, id)
}
