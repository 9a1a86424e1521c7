package campaign

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"strategy-lab/internal/domain"
)

// Id tags prefix every generated backtest id.
const (
	TagSingle = "backtest"
	TagBatch  = "batch"
)

// submittedAtLayout is how submission timestamps are recorded.
const submittedAtLayout = "2006-01-02 15:04:05"

// Target is the instrument universe shared by the requests of one campaign.
type Target struct {
	Instruments []string `json:"instruments"`
	IndexCode   string   `json:"index_code,omitempty"`
	IndexName   string   `json:"index_name,omitempty"`
}

func (t Target) validate() error {
	if len(compact(t.Instruments)) == 0 && strings.TrimSpace(t.IndexCode) == "" {
		return domain.NewValidationError("instruments", "select at least one instrument or an index")
	}
	return nil
}

// RandomSuffix returns the random part of a backtest id.
func RandomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// BacktestID formats <tag>_<start>_<end>_<suffix>.
func BacktestID(tag string, r domain.TimeRange, suffix string) string {
	return fmt.Sprintf("%s_%s_%s_%s", tag, r.StartText(), r.EndText(), suffix)
}

// BuildRequest assembles one backtest request. Conditions are copied so the
// request is independent of later strategy edits.
func BuildRequest(strategyName string, buy, sell []string, r domain.TimeRange, target Target, id string, now time.Time) domain.BacktestRequest {
	return domain.BacktestRequest{
		StrategyName:   strategyName,
		BacktestID:     id,
		SubmittedAt:    now.Format(submittedAtLayout),
		Range:          r,
		Instruments:    compact(target.Instruments),
		BuyConditions:  append([]string(nil), buy...),
		SellConditions: append([]string(nil), sell...),
		IndexCode:      strings.TrimSpace(target.IndexCode),
		IndexName:      strings.TrimSpace(target.IndexName),
	}
}

// ValidateRange requires both dates and start <= end.
func ValidateRange(field string, r domain.TimeRange) error {
	if !r.Complete() {
		return domain.NewValidationError(field, "both start and end dates are required")
	}
	if !r.Ordered() {
		return domain.NewValidationError(field, fmt.Sprintf("start %s is after end %s", r.StartText(), r.EndText()))
	}
	return nil
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
