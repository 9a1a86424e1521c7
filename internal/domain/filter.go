package domain

import (
	"fmt"
	"strings"
)

// PredicateType selects how a filter compares a column value.
type PredicateType string

const (
	PredicateExact    PredicateType = "exact"
	PredicateContains PredicateType = "contains"
	PredicateMin      PredicateType = "min"
	PredicateMax      PredicateType = "max"
	PredicateDateMin  PredicateType = "dateMin"
	PredicateDateMax  PredicateType = "dateMax"
)

// ParsePredicateType validates a predicate name.
func ParsePredicateType(raw string) (PredicateType, error) {
	switch p := PredicateType(strings.TrimSpace(raw)); p {
	case PredicateExact, PredicateContains, PredicateMin, PredicateMax, PredicateDateMin, PredicateDateMax:
		return p, nil
	case "":
		return PredicateExact, nil
	default:
		return "", NewValidationError("predicate", fmt.Sprintf("unknown predicate %q", raw))
	}
}

// FilterCondition is one column predicate of the global leaderboard filter.
type FilterCondition struct {
	Column    string        `json:"column"`
	Predicate PredicateType `json:"type"`
	Value     string        `json:"value"`
}
