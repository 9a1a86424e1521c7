package domain

import (
	"fmt"
	"strings"
	"time"
)

// CampaignMode identifies how a set of submissions was built.
type CampaignMode string

const (
	ModeSingle      CampaignMode = "single"
	ModeSharedRange CampaignMode = "shared_range"
	ModeMultiRange  CampaignMode = "multi_range"
)

// SubmissionOutcome is the result of one submitted backtest request.
type SubmissionOutcome struct {
	StrategyName string    `json:"strategy_name"`
	BacktestID   string    `json:"backtest_id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Error        string    `json:"error,omitempty"`
}

// Label names the outcome the way the report lists it.
func (o SubmissionOutcome) Label(mode CampaignMode) string {
	if mode == ModeMultiRange {
		return fmt.Sprintf("%s (%s ~ %s)", o.StrategyName, o.Start.Format(DateLayout), o.End.Format(DateLayout))
	}
	return o.StrategyName
}

// CampaignReport collects the per-item outcomes of one campaign.
// Failures are data, never an error of the campaign itself.
type CampaignReport struct {
	ID           string              `json:"id"`
	Mode         CampaignMode        `json:"mode"`
	Succeeded    []SubmissionOutcome `json:"succeeded"`
	Failed       []SubmissionOutcome `json:"failed"`
	RefreshError string              `json:"refresh_error,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	FinishedAt   time.Time           `json:"finished_at"`
}

// Total returns the number of submitted items.
func (r *CampaignReport) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// HasFailures reports whether any item failed.
func (r *CampaignReport) HasFailures() bool {
	return len(r.Failed) > 0
}

// Message renders the combined success/failure summary shown after a campaign.
func (r *CampaignReport) Message() string {
	var sb strings.Builder
	if len(r.Succeeded) > 0 {
		sb.WriteString("submitted:\n")
		for _, o := range r.Succeeded {
			sb.WriteString(o.Label(r.Mode))
			sb.WriteByte('\n')
		}
	}
	if len(r.Failed) > 0 {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("failed:\n")
		for _, o := range r.Failed {
			sb.WriteString(o.Label(r.Mode))
			sb.WriteString(": ")
			sb.WriteString(o.Error)
			sb.WriteByte('\n')
		}
	}
	if sb.Len() == 0 {
		return "nothing was submitted"
	}
	return strings.TrimRight(sb.String(), "\n")
}

// ArchivedRow is a leaderboard row kept by the leaderboard archive.
type ArchivedRow struct {
	BacktestID     string    `json:"backtest_id"`
	Category       string    `json:"category"`
	Position       int       `json:"position"`
	InstrumentCode string    `json:"instrument_code"`
	Payload        string    `json:"payload"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// BacktestRequest is one backtest submission sent to the execution service.
// Conditions are captured at build time, independent of later strategy edits.
type BacktestRequest struct {
	StrategyName   string
	BacktestID     string
	SubmittedAt    string
	Range          TimeRange
	Instruments    []string
	BuyConditions  []string
	SellConditions []string
	IndexCode      string
	IndexName      string
}

// LeaderboardSet is the full category breakdown of one backtest as returned
// by the service, categories in service order.
type LeaderboardSet struct {
	Categories []string
	Rows       map[string][]Row
}
