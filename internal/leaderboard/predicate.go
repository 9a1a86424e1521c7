package leaderboard

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"strategy-lab/internal/domain"
	"strategy-lab/internal/timerange"
)

// Match reports whether row satisfies one filter condition. A row without the
// filtered column never matches.
func Match(row domain.Row, cond domain.FilterCondition) bool {
	v, ok := row.Get(cond.Column)
	if !ok || v.Kind == domain.KindNull {
		return false
	}

	switch cond.Predicate {
	case domain.PredicateExact, "":
		return fold(v.Text()) == fold(cond.Value)
	case domain.PredicateContains:
		return strings.Contains(fold(v.Text()), fold(cond.Value))
	case domain.PredicateMin, domain.PredicateMax:
		n, ok := v.Decimal()
		if !ok {
			return false
		}
		threshold, err := decimal.NewFromString(strings.TrimSpace(cond.Value))
		if err != nil {
			return false
		}
		if cond.Predicate == domain.PredicateMin {
			return n.GreaterThanOrEqual(threshold)
		}
		return n.LessThanOrEqual(threshold)
	case domain.PredicateDateMin, domain.PredicateDateMax:
		d, ok := date(v.Text())
		if !ok {
			return false
		}
		threshold, ok := date(cond.Value)
		if !ok {
			return false
		}
		if cond.Predicate == domain.PredicateDateMin {
			return !d.Before(threshold)
		}
		return !d.After(threshold)
	default:
		return false
	}
}

// MatchAll reports whether row satisfies every condition.
func MatchAll(row domain.Row, conds []domain.FilterCondition) bool {
	for _, cond := range conds {
		if !Match(row, cond) {
			return false
		}
	}
	return true
}

// fold applies Unicode case folding, so comparisons ignore case beyond ASCII.
func fold(s string) string {
	return cases.Fold().String(s)
}

// date parses a cell or threshold as a calendar day.
func date(s string) (time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := timerange.ParseDate(s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
