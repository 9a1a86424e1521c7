package leaderboard

import (
	"regexp"

	"strategy-lab/internal/domain"
)

// ColumnKind is how a column is offered for filtering.
type ColumnKind string

const (
	ColumnString ColumnKind = "string"
	ColumnNumber ColumnKind = "number"
	ColumnDate   ColumnKind = "date"
)

// Column describes one discovered leaderboard column.
type Column struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
}

var isoDate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// Columns lists the union of columns across every cached leaderboard in
// first-seen order. A column's kind comes from the first row of the first
// category that has it.
func Columns(strategies []domain.Strategy) []Column {
	var out []Column
	seen := make(map[string]struct{})
	eachCategory(strategies, func(_ string, rows []domain.LeaderboardRow) {
		if len(rows) == 0 {
			return
		}
		first := rows[0]
		for _, name := range first.Columns {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			v, _ := first.Get(name)
			out = append(out, Column{Name: name, Kind: KindOf(v)})
		}
	})
	return out
}

// Categories lists the union of cached category names in first-seen order.
func Categories(strategies []domain.Strategy) []string {
	var out []string
	seen := make(map[string]struct{})
	eachCategory(strategies, func(category string, _ []domain.LeaderboardRow) {
		if _, ok := seen[category]; ok {
			return
		}
		seen[category] = struct{}{}
		out = append(out, category)
	})
	return out
}

// KindOf classifies a sample cell.
func KindOf(v domain.Value) ColumnKind {
	switch v.Kind {
	case domain.KindNumber:
		return ColumnNumber
	case domain.KindString:
		if isoDate.MatchString(v.Raw) {
			return ColumnDate
		}
	}
	return ColumnString
}

func eachCategory(strategies []domain.Strategy, fn func(category string, rows []domain.LeaderboardRow)) {
	for _, st := range strategies {
		for i := range st.BacktestHistory {
			r := &st.BacktestHistory[i]
			for _, category := range r.CategoryOrder {
				rows, ok := r.Leaderboards[category]
				if !ok {
					continue
				}
				fn(category, rows)
			}
		}
	}
}
