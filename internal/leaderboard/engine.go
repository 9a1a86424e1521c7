// Package leaderboard derives the cross-backtest leaderboard view from the
// dashboard state: aggregation over expanded records, typed filters, the
// one-row-per-instrument projection, pagination and export.
//
// Everything here is a pure function of its inputs. Nothing is cached.
package leaderboard

import (
	"strings"

	"strategy-lab/internal/domain"
)

// Aggregate returns every visible row of every expanded record in
// strategy, record, category, row order.
func Aggregate(strategies []domain.Strategy) []domain.LeaderboardRow {
	var out []domain.LeaderboardRow
	for _, st := range strategies {
		for i := range st.BacktestHistory {
			r := &st.BacktestHistory[i]
			if !r.Expanded || !r.Fetched() {
				continue
			}
			for _, category := range r.VisibleCategoryNames() {
				out = append(out, r.Leaderboards[category]...)
			}
		}
	}
	return out
}

// Filter keeps the rows that satisfy every condition, preserving order.
func Filter(rows []domain.LeaderboardRow, conds []domain.FilterCondition) []domain.LeaderboardRow {
	if len(conds) == 0 {
		return rows
	}
	out := make([]domain.LeaderboardRow, 0, len(rows))
	for _, row := range rows {
		if MatchAll(row.Row, conds) {
			out = append(out, row)
		}
	}
	return out
}

// Unique keeps the first row seen per instrument code. A missing code is a
// key like any other, so rows without one collapse to the first of them.
func Unique(rows []domain.LeaderboardRow) []domain.LeaderboardRow {
	seen := make(map[string]struct{}, len(rows))
	out := make([]domain.LeaderboardRow, 0, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.InstrumentCode]; dup {
			continue
		}
		seen[row.InstrumentCode] = struct{}{}
		out = append(out, row)
	}
	return out
}

// InstrumentCodes joins the distinct instrument codes of rows with commas in
// first-seen order.
func InstrumentCodes(rows []domain.LeaderboardRow) string {
	seen := make(map[string]struct{}, len(rows))
	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(row.InstrumentCode)
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return strings.Join(codes, ",")
}

// FilterDraft is one column's pending filter as entered by the operator.
type FilterDraft struct {
	Column    string `json:"column"`
	Predicate string `json:"type"`
	Value     string `json:"value"`
}

// BuildFilters turns drafts into filter conditions. Drafts without a column
// or value are skipped. If nothing valid remains the result is a
// ValidationError.
func BuildFilters(drafts []FilterDraft) ([]domain.FilterCondition, error) {
	var out []domain.FilterCondition
	for _, d := range drafts {
		column := strings.TrimSpace(d.Column)
		value := strings.TrimSpace(d.Value)
		if column == "" || value == "" {
			continue
		}
		predicate, err := domain.ParsePredicateType(d.Predicate)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.FilterCondition{Column: column, Predicate: predicate, Value: value})
	}
	if len(out) == 0 {
		return nil, domain.NewValidationError("filters", "at least one filter value is required")
	}
	return out, nil
}
