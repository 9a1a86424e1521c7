package domain

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/shopspring/decimal"
)

// ValueKind is the JSON kind of a schema-free column value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindNumber
	KindString
	KindBool
)

// Value is one cell of a schema-free result row. Raw keeps the JSON number
// text for numbers and the decoded text for strings.
type Value struct {
	Kind ValueKind
	Raw  string
}

// NumberValue builds a numeric value from its textual form.
func NumberValue(raw string) Value { return Value{Kind: KindNumber, Raw: raw} }

// StringValue builds a string value.
func StringValue(s string) Value { return Value{Kind: KindString, Raw: s} }

// BoolValue builds a boolean value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Raw: strconv.FormatBool(b)} }

// Decimal returns the numeric value. Only KindNumber values convert.
func (v Value) Decimal() (decimal.Decimal, bool) {
	if v.Kind != KindNumber {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(v.Raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Text renders the value the way it is compared by text predicates.
// Numbers are normalized, so 1.50 and 1.5 render alike.
func (v Value) Text() string {
	switch v.Kind {
	case KindNumber:
		if d, ok := v.Decimal(); ok {
			return d.String()
		}
		return v.Raw
	case KindNull:
		return ""
	default:
		return v.Raw
	}
}

// MarshalJSON writes the value back in its original JSON kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNumber, KindBool:
		return []byte(v.Raw), nil
	case KindString:
		return json.Marshal(v.Raw)
	default:
		return []byte("null"), nil
	}
}

// Row is a schema-free object returned by the execution service. Columns
// keeps the service's key order.
type Row struct {
	Columns []string
	Values  map[string]Value
}

// Get returns a column value.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// MarshalJSON writes the row as an object in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	return marshalOrdered(r.Columns, r.Values, nil)
}

// LeaderboardRow is a Row from one leaderboard category, tagged with the
// backtest it came from.
type LeaderboardRow struct {
	Row
	InstrumentCode string
	BacktestID     string
}

// MarshalJSON writes the metrics in column order plus the backtestId back-reference.
func (r LeaderboardRow) MarshalJSON() ([]byte, error) {
	return marshalOrdered(r.Columns, r.Values, []extraField{{"backtestId", r.BacktestID}})
}

type extraField struct {
	key   string
	value string
}

func marshalOrdered(columns []string, values map[string]Value, extra []extraField) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	writeKey := func(key string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		return nil
	}
	for _, column := range columns {
		if err := writeKey(column); err != nil {
			return nil, err
		}
		raw, err := values[column].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	for _, f := range extra {
		if err := writeKey(f.key); err != nil {
			return nil, err
		}
		raw, err := json.Marshal(f.value)
		if err != nil {
			return nil, err
		}
		buf.Write(raw)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
